// Package session orchestrates the bearer-credential lifecycle: login,
// refresh rotation, and revocation. It is the only code allowed to mutate
// refresh-token state.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mkshuvo/e-commerce-store-sub001/internal/audit"
	domainaudit "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/audit"
	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/obs"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/token"
)

// Identities is the external user-management collaborator. Verify checks
// login credentials; Snapshot re-reads the principal at rotation time so a
// disabled account stops refreshing immediately.
type Identities interface {
	Verify(ctx context.Context, email, password string) (domain.Principal, error)
	Snapshot(ctx context.Context, userID string) (domain.Principal, error)
}

// RequestMeta carries the caller context recorded in the audit trail.
type RequestMeta struct {
	Origin    string
	UserAgent string
}

type Config struct {
	RefreshTTL time.Duration
	Now        func() time.Time
}

type Service struct {
	log         *zap.Logger
	signer      *token.Signer
	validator   *token.Validator
	tokens      domain.RefreshTokenRepo
	revocations domain.RevocationRepo
	identities  Identities
	audit       *audit.Recorder
	tracer      trace.Tracer
	refreshTTL  time.Duration
	now         func() time.Time
}

func New(
	log *zap.Logger,
	signer *token.Signer,
	validator *token.Validator,
	tokens domain.RefreshTokenRepo,
	revocations domain.RevocationRepo,
	identities Identities,
	recorder *audit.Recorder,
	cfg Config,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		log:         log.With(zap.String("component", "session")),
		signer:      signer,
		validator:   validator,
		tokens:      tokens,
		revocations: revocations,
		identities:  identities,
		audit:       recorder,
		tracer:      otel.Tracer("session"),
		refreshTTL:  cfg.RefreshTTL,
		now:         now,
	}
}

// Login verifies credentials through the identity collaborator and, on
// success, mints a fresh access+refresh pair rooted in a new token family.
// The failure is generic: callers never learn whether the identifier or the
// secret was wrong.
func (s *Service) Login(ctx context.Context, email, password string, meta RequestMeta) (*domain.Pair, error) {
	ctx, span := s.tracer.Start(ctx, "session.Login")
	defer span.End()

	principal, err := s.identities.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		obs.Logins.WithLabelValues("failure").Inc()
		s.audit.Record(ctx, domainaudit.Record{
			Kind: domainaudit.KindLogin, Outcome: domainaudit.OutcomeFailure,
			Origin: meta.Origin, UserAgent: meta.UserAgent,
		})
		return nil, domain.ErrAuthFailed
	}

	pair, rec, err := s.mintPair(ctx, principal, "", meta.Origin)
	if err != nil {
		return nil, err
	}

	obs.Logins.WithLabelValues("success").Inc()
	s.audit.Record(ctx, domainaudit.Record{
		ActorID: rec.UserID, Kind: domainaudit.KindLogin, Outcome: domainaudit.OutcomeSuccess,
		Origin: meta.Origin, UserAgent: meta.UserAgent,
	})
	return pair, nil
}

// Refresh rotates a refresh token: the presented token becomes rotated, a
// successor becomes the only active member of the family, and a new access
// token is issued. Under concurrent presentations of the same token exactly
// one caller wins; everyone else observes Reused. Reuse of an already spent
// token revokes the whole family - it is the replay signal of a stolen
// credential.
func (s *Service) Refresh(ctx context.Context, raw string, meta RequestMeta) (*domain.Pair, error) {
	ctx, span := s.tracer.Start(ctx, "session.Refresh")
	defer span.End()

	id, secret, err := token.SplitRefreshToken(raw)
	if err != nil {
		obs.Refreshes.WithLabelValues("not_found").Inc()
		s.auditRefresh(ctx, "", domainaudit.OutcomeFailure, meta)
		return nil, domain.ErrNotFound
	}

	rec, err := s.tokens.Find(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			obs.Refreshes.WithLabelValues("not_found").Inc()
			s.auditRefresh(ctx, "", domainaudit.OutcomeFailure, meta)
			return nil, domain.ErrNotFound
		}
		return nil, s.storeErr("find refresh token", err)
	}

	if !token.RefreshSecretMatches(rec.TokenHash, secret) {
		// Correct id, wrong secret: someone is probing. Spend the token.
		if err := s.tokens.Revoke(ctx, rec.ID, s.now()); err != nil {
			obs.WithTrace(ctx, s.log).Warn("revoke probed token failed", zap.Error(err))
		}
		obs.Refreshes.WithLabelValues("not_found").Inc()
		s.auditRefresh(ctx, rec.UserID, domainaudit.OutcomeFailure, meta)
		return nil, domain.ErrNotFound
	}

	now := s.now()

	if rec.Status != domain.StatusActive {
		if err := s.revokeFamily(ctx, rec.FamilyID, now); err != nil {
			return nil, err
		}
		obs.ReplaysDetected.Inc()
		obs.Refreshes.WithLabelValues("reused").Inc()
		s.auditRefresh(ctx, rec.UserID, domainaudit.OutcomeReplay, meta)
		return nil, domain.ErrReused
	}

	if rec.ExpiresAt.Before(now) {
		obs.Refreshes.WithLabelValues("expired").Inc()
		s.auditRefresh(ctx, rec.UserID, domainaudit.OutcomeFailure, meta)
		return nil, domain.ErrExpired
	}

	principal, err := s.identities.Snapshot(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		obs.Refreshes.WithLabelValues("failure").Inc()
		s.auditRefresh(ctx, rec.UserID, domainaudit.OutcomeFailure, meta)
		return nil, domain.ErrAuthFailed
	}

	pair, succ, err := s.mintPair(ctx, principal, rec.FamilyID, meta.Origin)
	if err != nil {
		return nil, err
	}

	ok, err := s.tokens.Rotate(ctx, rec.ID, succ.ID, now)
	if err != nil {
		return nil, s.storeErr("rotate refresh token", err)
	}
	if !ok {
		// Lost the race: a concurrent refresh spent the token first.
		// The successor minted above is part of the family and dies
		// with it.
		if err := s.revokeFamily(ctx, rec.FamilyID, now); err != nil {
			return nil, err
		}
		obs.ReplaysDetected.Inc()
		obs.Refreshes.WithLabelValues("reused").Inc()
		s.auditRefresh(ctx, rec.UserID, domainaudit.OutcomeReplay, meta)
		return nil, domain.ErrReused
	}

	obs.Refreshes.WithLabelValues("success").Inc()
	s.auditRefresh(ctx, rec.UserID, domainaudit.OutcomeSuccess, meta)
	return pair, nil
}

// Revoke marks the presented refresh token revoked and denylists its paired
// access token. Idempotent: revoking an unknown or already revoked token
// succeeds silently.
func (s *Service) Revoke(ctx context.Context, raw string, meta RequestMeta) error {
	ctx, span := s.tracer.Start(ctx, "session.Revoke")
	defer span.End()

	id, secret, err := token.SplitRefreshToken(raw)
	if err != nil {
		return nil
	}
	rec, err := s.tokens.Find(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return s.storeErr("find refresh token", err)
	}
	if !token.RefreshSecretMatches(rec.TokenHash, secret) {
		return nil
	}

	now := s.now()
	if err := s.tokens.Revoke(ctx, rec.ID, now); err != nil {
		return s.storeErr("revoke refresh token", err)
	}
	if rec.AccessExpiresAt.After(now) {
		m := domain.Marker{JTI: rec.AccessJTI, ExpiresAt: rec.AccessExpiresAt}
		if err := s.revocations.Add(ctx, m); err != nil {
			return s.storeErr("denylist access token", err)
		}
	}

	obs.Revocations.WithLabelValues("token").Inc()
	s.audit.Record(ctx, domainaudit.Record{
		ActorID: rec.UserID, Kind: domainaudit.KindRevoke, Outcome: domainaudit.OutcomeSuccess,
		Origin: meta.Origin, UserAgent: meta.UserAgent,
	})
	return nil
}

// RevokeAllForUser revokes every outstanding refresh token of a principal
// and denylists the access tokens still inside their lifetime. Used on
// password change and suspected account compromise.
func (s *Service) RevokeAllForUser(ctx context.Context, userID string, meta RequestMeta) error {
	ctx, span := s.tracer.Start(ctx, "session.RevokeAllForUser")
	defer span.End()

	markers, err := s.tokens.RevokeAllForUser(ctx, userID, s.now())
	if err != nil {
		return s.storeErr("revoke user tokens", err)
	}
	if len(markers) > 0 {
		if err := s.revocations.Add(ctx, markers...); err != nil {
			return s.storeErr("denylist access tokens", err)
		}
	}

	obs.Revocations.WithLabelValues("user").Inc()
	s.audit.Record(ctx, domainaudit.Record{
		ActorID: userID, Kind: domainaudit.KindRevokeAll, Outcome: domainaudit.OutcomeSuccess,
		Origin: meta.Origin, UserAgent: meta.UserAgent,
		Detail: map[string]string{"revoked": fmt.Sprintf("%d", len(markers))},
	})
	return nil
}

// ValidateAccess runs the full access-token pipeline. Stateless; safe for
// unbounded concurrency.
func (s *Service) ValidateAccess(ctx context.Context, raw string) (*token.Claims, error) {
	return s.validator.Validate(ctx, raw)
}

func (s *Service) mintPair(ctx context.Context, principal domain.Principal, familyID, origin string) (*domain.Pair, *domain.RefreshToken, error) {
	now := s.now()
	access, claims, err := s.signer.IssueAccess(principal, now)
	if err != nil {
		return nil, nil, fmt.Errorf("issue access token: %w", err)
	}
	wire, id, hash, err := token.NewRefreshToken()
	if err != nil {
		return nil, nil, fmt.Errorf("issue refresh token: %w", err)
	}
	if familyID == "" {
		familyID = id
	}
	rec := &domain.RefreshToken{
		ID:              id,
		UserID:          principal.ID,
		FamilyID:        familyID,
		TokenHash:       hash,
		AccessJTI:       claims.ID,
		AccessExpiresAt: claims.ExpiresAt.Time,
		Origin:          origin,
		Status:          domain.StatusActive,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.refreshTTL),
	}
	if err := s.tokens.Create(ctx, rec); err != nil {
		return nil, nil, s.storeErr("persist refresh token", err)
	}
	return &domain.Pair{
		AccessToken:      access,
		RefreshToken:     wire,
		AccessExpiresAt:  claims.ExpiresAt.Time,
		RefreshExpiresAt: rec.ExpiresAt,
	}, rec, nil
}

func (s *Service) revokeFamily(ctx context.Context, familyID string, now time.Time) error {
	markers, err := s.tokens.RevokeFamily(ctx, familyID, now)
	if err != nil {
		return s.storeErr("revoke token family", err)
	}
	if len(markers) > 0 {
		if err := s.revocations.Add(ctx, markers...); err != nil {
			return s.storeErr("denylist family access tokens", err)
		}
	}
	obs.Revocations.WithLabelValues("family").Inc()
	return nil
}

func (s *Service) auditRefresh(ctx context.Context, actorID string, outcome domainaudit.Outcome, meta RequestMeta) {
	s.audit.Record(ctx, domainaudit.Record{
		ActorID: actorID, Kind: domainaudit.KindRefresh, Outcome: outcome,
		Origin: meta.Origin, UserAgent: meta.UserAgent,
	})
}

func (s *Service) storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	s.log.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, domain.ErrStoreUnavailable)
}
