package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkshuvo/e-commerce-store-sub001/internal/audit"
	domainaudit "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/audit"
	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/repository/memory"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/token"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(at time.Time) *testClock { return &testClock{now: at} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeIdentities struct {
	mu        sync.Mutex
	principal domain.Principal
	email     string
	password  string
	err       error
}

func (f *fakeIdentities) Verify(_ context.Context, email, password string) (domain.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Principal{}, f.err
	}
	if email != f.email || password != f.password || !f.principal.Active {
		return domain.Principal{}, domain.ErrAuthFailed
	}
	return f.principal, nil
}

func (f *fakeIdentities) Snapshot(_ context.Context, userID string) (domain.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Principal{}, f.err
	}
	if userID != f.principal.ID || !f.principal.Active {
		return domain.Principal{}, domain.ErrAuthFailed
	}
	return f.principal, nil
}

func (f *fakeIdentities) deactivate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.principal.Active = false
}

type fixture struct {
	svc         *Service
	clock       *testClock
	tokens      *memory.RefreshTokenRepo
	revocations *memory.RevocationRepo
	sink        *memory.AuditSink
	identities  *fakeIdentities
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newTestClock(t0)

	signer, err := token.NewSigner(token.SignerConfig{
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:    "store-auth",
		Audience:  "store-api",
		AccessTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	tokens := memory.NewRefreshTokenRepo()
	revocations := memory.NewRevocationRepo()
	sink := memory.NewAuditSink()
	identities := &fakeIdentities{
		principal: domain.Principal{ID: "user-1", Roles: map[string]string{"customer": "*"}, Active: true},
		email:     "a@example.com",
		password:  "correct horse",
	}

	validator := token.NewValidator(signer, revocations, token.ValidatorConfig{
		Issuer:   "store-auth",
		Audience: "store-api",
		Now:      clock.Now,
	})

	svc := New(
		zap.NewNop(),
		signer,
		validator,
		tokens,
		revocations,
		identities,
		audit.NewRecorder(sink, zap.NewNop()),
		Config{RefreshTTL: 7 * 24 * time.Hour, Now: clock.Now},
	)
	return &fixture{
		svc:         svc,
		clock:       clock,
		tokens:      tokens,
		revocations: revocations,
		sink:        sink,
		identities:  identities,
	}
}

var meta = RequestMeta{Origin: "203.0.113.7", UserAgent: "test-agent"}

func (f *fixture) login(t *testing.T) *domain.Pair {
	t.Helper()
	pair, err := f.svc.Login(context.Background(), "a@example.com", "correct horse", meta)
	require.NoError(t, err)
	return pair
}

func lastRecord(t *testing.T, f *fixture) domainaudit.Record {
	t.Helper()
	recs := f.sink.Records()
	require.NotEmpty(t, recs)
	return recs[len(recs)-1]
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)

	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.True(t, pair.AccessExpiresAt.Equal(t0.Add(15*time.Minute)))
	require.True(t, pair.RefreshExpiresAt.Equal(t0.Add(7*24*time.Hour)))

	claims, err := f.svc.ValidateAccess(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)

	rec := lastRecord(t, f)
	require.Equal(t, domainaudit.KindLogin, rec.Kind)
	require.Equal(t, domainaudit.OutcomeSuccess, rec.Outcome)
	require.Equal(t, "user-1", rec.ActorID)
	require.Equal(t, meta.Origin, rec.Origin)
}

func TestLoginFailureIsGeneric(t *testing.T) {
	f := newFixture(t)

	for _, c := range []struct{ email, password string }{
		{"a@example.com", "wrong"},
		{"nobody@example.com", "correct horse"},
		{"", ""},
	} {
		_, err := f.svc.Login(context.Background(), c.email, c.password, meta)
		require.ErrorIs(t, err, domain.ErrAuthFailed)
	}

	rec := lastRecord(t, f)
	require.Equal(t, domainaudit.KindLogin, rec.Kind)
	require.Equal(t, domainaudit.OutcomeFailure, rec.Outcome)
	require.Empty(t, rec.ActorID)
}

func TestLoginStoreOutageStaysRetryable(t *testing.T) {
	f := newFixture(t)
	f.identities.err = domain.ErrStoreUnavailable

	_, err := f.svc.Login(context.Background(), "a@example.com", "correct horse", meta)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	require.NotErrorIs(t, err, domain.ErrAuthFailed)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)

	f.clock.Advance(time.Minute)
	next, err := f.svc.Refresh(context.Background(), pair.RefreshToken, meta)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)
	require.NotEqual(t, pair.AccessToken, next.AccessToken)

	// Both records share the rotation family.
	oldID, _, err := token.SplitRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	newID, _, err := token.SplitRefreshToken(next.RefreshToken)
	require.NoError(t, err)

	oldRec, err := f.tokens.Find(context.Background(), oldID)
	require.NoError(t, err)
	newRec, err := f.tokens.Find(context.Background(), newID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRotated, oldRec.Status)
	require.Equal(t, domain.StatusActive, newRec.Status)
	require.Equal(t, oldRec.FamilyID, newRec.FamilyID)
	require.Equal(t, newID, *oldRec.SuccessorID)
}

// Login at T0, refresh at T0+1m, replay the spent token at T0+2m: the reuse
// is detected, the whole family dies, and the freshest access token stops
// validating at T0+3m.
func TestRefreshReplayRevokesFamily(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)

	f.clock.Advance(time.Minute)
	next, err := f.svc.Refresh(context.Background(), pair.RefreshToken, meta)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.svc.Refresh(context.Background(), pair.RefreshToken, meta)
	require.ErrorIs(t, err, domain.ErrReused)

	rec := lastRecord(t, f)
	require.Equal(t, domainaudit.KindRefresh, rec.Kind)
	require.Equal(t, domainaudit.OutcomeReplay, rec.Outcome)

	f.clock.Advance(time.Minute)
	_, err = f.svc.ValidateAccess(context.Background(), next.AccessToken)
	require.ErrorIs(t, err, domain.ErrRevoked)

	// The successor refresh token died with the family too.
	_, err = f.svc.Refresh(context.Background(), next.RefreshToken, meta)
	require.ErrorIs(t, err, domain.ErrReused)
}

func TestRefreshConcurrentPresentationsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)
	f.clock.Advance(time.Minute)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Refresh(context.Background(), pair.RefreshToken, meta)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, reuses int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, domain.ErrReused)
			reuses++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, callers-1, reuses)
}

func TestRefreshExpiredToken(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)

	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err := f.svc.Refresh(context.Background(), pair.RefreshToken, meta)
	require.ErrorIs(t, err, domain.ErrExpired)
}

func TestRefreshUnknownToken(t *testing.T) {
	f := newFixture(t)

	for _, raw := range []string{"", "garbage", "no-such-id.c2VjcmV0"} {
		_, err := f.svc.Refresh(context.Background(), raw, meta)
		require.ErrorIs(t, err, domain.ErrNotFound)
	}
}

// A known id with the wrong secret is a probe: the caller gets the same
// answer as for an unknown token, and the probed token is spent.
func TestRefreshWrongSecretSpendsToken(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)

	id, _, err := token.SplitRefreshToken(pair.RefreshToken)
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), id+".forged-secret", meta)
	require.ErrorIs(t, err, domain.ErrNotFound)

	rec, err := f.tokens.Find(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRevoked, rec.Status)
}

func TestRefreshDeactivatedUser(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)
	f.identities.deactivate()

	f.clock.Advance(time.Minute)
	_, err := f.svc.Refresh(context.Background(), pair.RefreshToken, meta)
	require.ErrorIs(t, err, domain.ErrAuthFailed)
}

func TestRevokeDenylistsPairedAccessToken(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)

	require.NoError(t, f.svc.Revoke(context.Background(), pair.RefreshToken, meta))

	_, err := f.svc.ValidateAccess(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, domain.ErrRevoked)

	_, err = f.svc.Refresh(context.Background(), pair.RefreshToken, meta)
	require.ErrorIs(t, err, domain.ErrReused)
}

func TestRevokeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)

	require.NoError(t, f.svc.Revoke(context.Background(), pair.RefreshToken, meta))
	require.NoError(t, f.svc.Revoke(context.Background(), pair.RefreshToken, meta))
	require.NoError(t, f.svc.Revoke(context.Background(), "unknown.token", meta))
	require.NoError(t, f.svc.Revoke(context.Background(), "garbage", meta))
}

func TestRevokeAllForUser(t *testing.T) {
	f := newFixture(t)
	first := f.login(t)
	second := f.login(t)

	require.NoError(t, f.svc.RevokeAllForUser(context.Background(), "user-1", meta))

	for _, pair := range []*domain.Pair{first, second} {
		_, err := f.svc.ValidateAccess(context.Background(), pair.AccessToken)
		require.ErrorIs(t, err, domain.ErrRevoked)
		_, err = f.svc.Refresh(context.Background(), pair.RefreshToken, meta)
		require.ErrorIs(t, err, domain.ErrReused)
	}

	rec := lastRecord(t, f)
	require.Equal(t, domainaudit.KindRevokeAll, rec.Kind)
	require.Equal(t, "2", rec.Detail["revoked"])
}

func TestRevokeAllForUnknownUserSucceeds(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.RevokeAllForUser(context.Background(), "nobody", meta))
	require.Equal(t, "0", lastRecord(t, f).Detail["revoked"])
}

// A broken audit sink degrades forensics, never authentication.
func TestAuditOutageDoesNotBlockLogin(t *testing.T) {
	f := newFixture(t)
	f.sink.Err = context.DeadlineExceeded

	pair := f.login(t)
	require.NotEmpty(t, pair.AccessToken)
	require.Empty(t, f.sink.Records())
}

func TestAuditTrailCoversLifecycle(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)
	f.clock.Advance(time.Minute)
	next, err := f.svc.Refresh(context.Background(), pair.RefreshToken, meta)
	require.NoError(t, err)
	require.NoError(t, f.svc.Revoke(context.Background(), next.RefreshToken, meta))

	var kinds []domainaudit.Kind
	for _, rec := range f.sink.Records() {
		kinds = append(kinds, rec.Kind)
		require.False(t, rec.At.IsZero())
	}
	require.Equal(t, []domainaudit.Kind{
		domainaudit.KindLogin,
		domainaudit.KindRefresh,
		domainaudit.KindRevoke,
	}, kinds)
}
