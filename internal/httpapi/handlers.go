package httpapi

import (
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mkshuvo/e-commerce-store-sub001/internal/obs"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/obs/retry"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/session"
	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type revokeAllRequest struct {
	UserID string `json:"user_id"`
}

type pairResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func toPairResponse(p *domain.Pair) pairResponse {
	return pairResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

func requestMeta(r *http.Request) session.RequestMeta {
	origin := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		origin = host
	}
	return session.RequestMeta{Origin: origin, UserAgent: r.UserAgent()}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var pair *domain.Pair
	err := retry.Do(r.Context(), func() error {
		var err error
		pair, err = a.sessions.Login(r.Context(), req.Email, req.Password, requestMeta(r))
		return err
	}, retry.StorePolicy("login", a.log))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPairResponse(pair))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var pair *domain.Pair
	err := retry.Do(r.Context(), func() error {
		var err error
		pair, err = a.sessions.Refresh(r.Context(), req.RefreshToken, requestMeta(r))
		return err
	}, retry.StorePolicy("refresh", a.log))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPairResponse(pair))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.sessions.Revoke(r.Context(), req.RefreshToken, requestMeta(r)); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRevokeAll(w http.ResponseWriter, r *http.Request) {
	var req revokeAllRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if err := a.sessions.RevokeAllForUser(r.Context(), req.UserID, requestMeta(r)); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type introspectResponse struct {
	Subject   string            `json:"sub"`
	Roles     map[string]string `json:"roles,omitempty"`
	IssuedAt  time.Time         `json:"iat"`
	ExpiresAt time.Time         `json:"exp"`
	TokenID   string            `json:"jti"`
}

func (a *API) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	writeJSON(w, http.StatusOK, introspectResponse{
		Subject:   claims.Subject,
		Roles:     claims.Roles,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		TokenID:   claims.ID,
	})
	obs.WithTrace(r.Context(), a.log).Debug("token introspected", zap.String("sub", claims.Subject))
}
