// Package redis caches denylist membership in front of the durable
// revocation store. Reads dominate writes by orders of magnitude, so a
// short TTL bounds validation latency at the cost of a documented staleness
// window: a fresh revocation may take up to the TTL to propagate.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/obs"
)

type Config struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// RevocationCache implements token.RevocationRepo by layering redis over an
// inner durable repo. Cache trouble degrades to the inner store; only the
// inner store failing makes the lookup fail (and validation fails closed).
type RevocationCache struct {
	client *redis.Client
	inner  domain.RevocationRepo
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

var _ domain.RevocationRepo = (*RevocationCache)(nil)

const defaultTTL = 30 * time.Second

func NewRevocationCache(client *redis.Client, inner domain.RevocationRepo, cfg Config, log *zap.Logger) *RevocationCache {
	if log == nil {
		log = zap.NewNop()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "auth:revoked:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RevocationCache{
		client: client,
		inner:  inner,
		prefix: prefix,
		ttl:    ttl,
		log:    log.With(zap.String("component", "revocation-cache")),
	}
}

func (c *RevocationCache) Add(ctx context.Context, markers ...domain.Marker) error {
	if err := c.inner.Add(ctx, markers...); err != nil {
		return err
	}
	// Best effort: pre-warm the cache so the staleness window shrinks for
	// lookups landing on this instance.
	for _, m := range markers {
		if err := c.client.Set(ctx, c.prefix+m.JTI, "1", c.ttl).Err(); err != nil {
			c.log.Debug("cache warm failed", zap.Error(err))
			break
		}
	}
	return nil
}

func (c *RevocationCache) IsRevoked(ctx context.Context, jti string, now time.Time) (bool, error) {
	key := c.prefix + jti
	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		obs.RevocationCacheRequests.WithLabelValues("hit").Inc()
		return val == "1", nil
	case err == redis.Nil:
		obs.RevocationCacheRequests.WithLabelValues("miss").Inc()
	default:
		obs.RevocationCacheRequests.WithLabelValues("bypass").Inc()
		c.log.Warn("cache lookup failed", zap.Error(err))
	}

	revoked, err := c.inner.IsRevoked(ctx, jti, now)
	if err != nil {
		return false, err
	}
	cached := "0"
	if revoked {
		cached = "1"
	}
	if err := c.client.Set(ctx, key, cached, c.ttl).Err(); err != nil {
		c.log.Debug("cache fill failed", zap.Error(err))
	}
	return revoked, nil
}
