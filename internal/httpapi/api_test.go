package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkshuvo/e-commerce-store-sub001/internal/audit"
	domainaudit "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/audit"
	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/repository/memory"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/servicekey"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/session"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/token"
)

const testServiceKey = "svc-key-for-tests"

type stubIdentities struct {
	principal domain.Principal
	password  string
	err       error
}

func (s *stubIdentities) Verify(_ context.Context, email, password string) (domain.Principal, error) {
	if s.err != nil {
		return domain.Principal{}, s.err
	}
	if email != "a@example.com" || password != s.password {
		return domain.Principal{}, domain.ErrAuthFailed
	}
	return s.principal, nil
}

func (s *stubIdentities) Snapshot(_ context.Context, userID string) (domain.Principal, error) {
	if s.err != nil {
		return domain.Principal{}, s.err
	}
	if userID != s.principal.ID {
		return domain.Principal{}, domain.ErrAuthFailed
	}
	return s.principal, nil
}

type apiFixture struct {
	handler    http.Handler
	sink       *memory.AuditSink
	identities *stubIdentities
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	signer, err := token.NewSigner(token.SignerConfig{
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:    "store-auth",
		Audience:  "store-api",
		AccessTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	revocations := memory.NewRevocationRepo()
	validator := token.NewValidator(signer, revocations, token.ValidatorConfig{
		Issuer:   "store-auth",
		Audience: "store-api",
	})

	sink := memory.NewAuditSink()
	recorder := audit.NewRecorder(sink, zap.NewNop())
	identities := &stubIdentities{
		principal: domain.Principal{ID: "user-1", Roles: map[string]string{"customer": "*"}, Active: true},
		password:  "correct horse",
	}

	sessions := session.New(
		zap.NewNop(),
		signer,
		validator,
		memory.NewRefreshTokenRepo(),
		revocations,
		identities,
		recorder,
		session.Config{RefreshTTL: 7 * 24 * time.Hour},
	)

	api := New(zap.NewNop(), sessions, servicekey.New([]string{testServiceKey}), recorder)
	return &apiFixture{handler: api.Routes(), sink: sink, identities: identities}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, mod func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if mod != nil {
		mod(req)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *apiFixture) login(t *testing.T) pairResponse {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email": "a@example.com", "password": "correct horse",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var pair pairResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	return pair
}

func errMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func TestLoginEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	pair := f.login(t)
	require.True(t, pair.AccessExpiresAt.After(time.Now()))

	rr := f.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email": "a@example.com", "password": "wrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "invalid credentials", errMessage(t, rr))
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email": "a@example.com", "password": "x", "unexpected": "field",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginStoreOutageReturns503(t *testing.T) {
	f := newAPIFixture(t)
	f.identities.err = domain.ErrStoreUnavailable

	rr := f.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email": "a@example.com", "password": "correct horse",
	}, nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestRefreshEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	pair := f.login(t)

	rr := f.do(t, http.MethodPost, "/v1/auth/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// Replaying the spent token is reported distinctly.
	rr = f.do(t, http.MethodPost, "/v1/auth/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "refresh token reused", errMessage(t, rr))
}

func TestRefreshUnknownTokenEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	rr := f.do(t, http.MethodPost, "/v1/auth/refresh", map[string]string{
		"refresh_token": "unknown.secret",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "invalid token", errMessage(t, rr))
}

func TestIntrospectEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	pair := f.login(t)

	rr := f.do(t, http.MethodGet, "/v1/auth/introspect", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp introspectResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "user-1", resp.Subject)
	require.NotEmpty(t, resp.TokenID)

	rr = f.do(t, http.MethodGet, "/v1/auth/introspect", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(t, http.MethodGet, "/v1/auth/introspect", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-token")
	})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	pair := f.login(t)

	rr := f.do(t, http.MethodPost, "/v1/auth/logout", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	// The paired access token is dead from here on.
	rr = f.do(t, http.MethodGet, "/v1/auth/introspect", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	})
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// Logout is idempotent, unknown tokens included.
	rr = f.do(t, http.MethodPost, "/v1/auth/logout", map[string]string{
		"refresh_token": "unknown.secret",
	}, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRevokeAllRequiresServiceKey(t *testing.T) {
	f := newAPIFixture(t)
	pair := f.login(t)

	rr := f.do(t, http.MethodPost, "/v1/auth/revoke-all", map[string]string{
		"user_id": "user-1",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	recs := f.sink.Records()
	require.NotEmpty(t, recs)
	last := recs[len(recs)-1]
	require.Equal(t, domainaudit.KindServiceKeyAuth, last.Kind)
	require.Equal(t, domainaudit.OutcomeFailure, last.Outcome)

	rr = f.do(t, http.MethodPost, "/v1/auth/revoke-all", map[string]string{
		"user_id": "user-1",
	}, func(r *http.Request) {
		r.Header.Set(ServiceKeyHeader, testServiceKey)
	})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, http.MethodGet, "/v1/auth/introspect", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "invalid token", errMessage(t, rr))
}

func TestRevokeAllValidatesBody(t *testing.T) {
	f := newAPIFixture(t)
	rr := f.do(t, http.MethodPost, "/v1/auth/revoke-all", map[string]string{}, func(r *http.Request) {
		r.Header.Set(ServiceKeyHeader, testServiceKey)
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
