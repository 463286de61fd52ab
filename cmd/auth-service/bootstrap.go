package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mkshuvo/e-commerce-store-sub001/internal/audit"
	config "github.com/mkshuvo/e-commerce-store-sub001/internal/config/auth-service"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/httpapi"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/identity"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/obs"
	kafkarepo "github.com/mkshuvo/e-commerce-store-sub001/internal/repository/kafka"
	pg "github.com/mkshuvo/e-commerce-store-sub001/internal/repository/postgres"
	redisrepo "github.com/mkshuvo/e-commerce-store-sub001/internal/repository/redis"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/servicekey"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/session"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/token"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(obs.LogConfig{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		App:    cfg.App.Name,
		Env:    cfg.App.Env,
		Ver:    cfg.App.Version,
	})
}

func initOTel(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	closer, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		return nil, err
	}
	return closer.Shutdown, nil
}

func initDB(ctx context.Context, cfg *config.Config) (*pg.DB, error) {
	return pg.New(ctx, cfg.DB)
}

type core struct {
	api      *httpapi.API
	producer *kafkarepo.AuditProducer
	rdb      *redis.Client
}

func (c *core) close() {
	_ = c.producer.Close()
	_ = c.rdb.Close()
}

func buildCore(cfg *config.Config, logger *zap.Logger, db *pg.DB) (*core, error) {
	signer, err := token.NewSigner(token.SignerConfig{
		Secret:    []byte(cfg.Auth.Secret),
		Issuer:    cfg.Auth.Issuer,
		Audience:  cfg.Auth.Audience,
		AccessTTL: cfg.Auth.AccessTTL,
	})
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	tokens := pg.NewRefreshTokenRepo(db)
	revocations := redisrepo.NewRevocationCache(rdb, pg.NewRevocationRepo(db), cfg.Redis, logger)
	users := pg.NewUserRepo(db)

	validator := token.NewValidator(signer, revocations, token.ValidatorConfig{
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Leeway:   cfg.Auth.ClockSkew,
	})

	producer := kafkarepo.NewAuditProducer(cfg.Kafka, logger)
	recorder := audit.NewRecorder(producer, logger)

	sessions := session.New(
		logger, signer, validator, tokens, revocations,
		identity.NewVerifier(users), recorder,
		session.Config{RefreshTTL: cfg.Auth.RefreshTTL},
	)

	svcKeys := servicekey.New(cfg.Auth.ServiceKeys)

	return &core{
		api:      httpapi.New(logger, sessions, svcKeys, recorder),
		producer: producer,
		rdb:      rdb,
	}, nil
}
