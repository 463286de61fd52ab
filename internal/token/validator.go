package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/obs"
)

// RevocationChecker answers whether an access-token jti is on the denylist.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string, now time.Time) (bool, error)
}

type ValidatorConfig struct {
	Issuer   string
	Audience string
	// Leeway is the clock-skew tolerance, applied symmetrically to exp
	// and iat. Default is zero.
	Leeway time.Duration
	Now    func() time.Time
}

// Validator runs the full acceptance pipeline over incoming access tokens.
// It is stateless and safe for unbounded concurrent use.
type Validator struct {
	signer   *Signer
	revoked  RevocationChecker
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

func NewValidator(signer *Signer, revoked RevocationChecker, cfg ValidatorConfig) *Validator {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Validator{
		signer:   signer,
		revoked:  revoked,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   cfg.Leeway,
		now:      now,
	}
}

// Validate checks signature, expiry, issuer/audience and revocation, in that
// order. No embedded claim is trusted before the signature check, and the
// denylist lookup is skipped for tokens that already failed locally, so an
// expired token costs no store round-trip.
func (v *Validator) Validate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := v.validate(ctx, raw)
	if err != nil {
		obs.TokenValidations.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}
	obs.TokenValidations.WithLabelValues("success").Inc()
	return claims, nil
}

func (v *Validator) validate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := v.signer.VerifySignature(raw)
	if err != nil {
		return nil, err
	}

	now := v.now()
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, domain.ErrSignature
	}
	if !now.Before(claims.ExpiresAt.Time.Add(v.leeway)) {
		return nil, domain.ErrExpired
	}
	if claims.IssuedAt.Time.After(now.Add(v.leeway)) {
		return nil, domain.ErrNotYetValid
	}

	if claims.Issuer != v.issuer {
		return nil, domain.ErrInvalidIssuer
	}
	if !hasAudience(claims, v.audience) {
		return nil, domain.ErrInvalidAudience
	}

	revoked, err := v.revoked.IsRevoked(ctx, claims.ID, now)
	if err != nil {
		// Fail closed: an unreachable denylist means unauthenticated.
		return nil, fmt.Errorf("revocation lookup: %w", domain.ErrStoreUnavailable)
	}
	if revoked {
		return nil, domain.ErrRevoked
	}
	return claims, nil
}

func hasAudience(claims *Claims, want string) bool {
	for _, aud := range claims.Audience {
		if aud == want {
			return true
		}
	}
	return false
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrSignature):
		return "signature"
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, domain.ErrInvalidIssuer):
		return "issuer"
	case errors.Is(err, domain.ErrInvalidAudience):
		return "audience"
	case errors.Is(err, domain.ErrRevoked):
		return "revoked"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
