// Package memory holds in-process implementations of the credential-store
// ports. They keep the same conditional-update semantics as the Postgres
// repos and back the unit tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
)

type RefreshTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*token.RefreshToken
}

var _ token.RefreshTokenRepo = (*RefreshTokenRepo)(nil)

func NewRefreshTokenRepo() *RefreshTokenRepo {
	return &RefreshTokenRepo{tokens: make(map[string]*token.RefreshToken)}
}

func (r *RefreshTokenRepo) Create(_ context.Context, t *token.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tokens[t.ID] = &cp
	return nil
}

func (r *RefreshTokenRepo) Find(_ context.Context, id string) (*token.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, token.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *RefreshTokenRepo) Rotate(_ context.Context, id, successorID string, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return false, token.ErrNotFound
	}
	if t.Status != token.StatusActive {
		return false, nil
	}
	t.Status = token.StatusRotated
	t.SuccessorID = &successorID
	return true, nil
}

func (r *RefreshTokenRepo) Revoke(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || t.Status == token.StatusRevoked {
		return nil
	}
	t.Status = token.StatusRevoked
	t.RevokedAt = &at
	return nil
}

func (r *RefreshTokenRepo) RevokeFamily(_ context.Context, familyID string, at time.Time) ([]token.Marker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var markers []token.Marker
	for _, t := range r.tokens {
		if t.FamilyID != familyID || t.Status == token.StatusRevoked {
			continue
		}
		t.Status = token.StatusRevoked
		revokedAt := at
		t.RevokedAt = &revokedAt
		if t.AccessExpiresAt.After(at) {
			markers = append(markers, token.Marker{JTI: t.AccessJTI, ExpiresAt: t.AccessExpiresAt})
		}
	}
	return markers, nil
}

func (r *RefreshTokenRepo) RevokeAllForUser(_ context.Context, userID string, at time.Time) ([]token.Marker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var markers []token.Marker
	for _, t := range r.tokens {
		if t.UserID != userID || t.Status == token.StatusRevoked {
			continue
		}
		t.Status = token.StatusRevoked
		revokedAt := at
		t.RevokedAt = &revokedAt
		if t.AccessExpiresAt.After(at) {
			markers = append(markers, token.Marker{JTI: t.AccessJTI, ExpiresAt: t.AccessExpiresAt})
		}
	}
	return markers, nil
}
