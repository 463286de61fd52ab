package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
)

type RevocationRepo struct {
	mu      sync.Mutex
	markers map[string]time.Time // jti -> expires_at
}

var _ token.RevocationRepo = (*RevocationRepo)(nil)

func NewRevocationRepo() *RevocationRepo {
	return &RevocationRepo{markers: make(map[string]time.Time)}
}

func (r *RevocationRepo) Add(_ context.Context, markers ...token.Marker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range markers {
		r.markers[m.JTI] = m.ExpiresAt
	}
	return nil
}

func (r *RevocationRepo) IsRevoked(_ context.Context, jti string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.markers[jti]
	return ok && exp.After(now), nil
}
