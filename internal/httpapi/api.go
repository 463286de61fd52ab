// Package httpapi is the thin JSON surface over the session core. It owns
// no authentication logic: requests are decoded, handed to the service
// entry points, and mapped back to status codes.
package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mkshuvo/e-commerce-store-sub001/internal/audit"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/servicekey"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/session"
)

// ServiceKeyHeader carries the static shared secret for trusted
// service-to-service calls. Cleartext on the wire; TLS is assumed.
const ServiceKeyHeader = "X-Service-Key"

type API struct {
	log      *zap.Logger
	sessions *session.Service
	svcKeys  *servicekey.Authenticator
	audit    *audit.Recorder
}

func New(log *zap.Logger, sessions *session.Service, svcKeys *servicekey.Authenticator, recorder *audit.Recorder) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{
		log:      log.With(zap.String("component", "httpapi")),
		sessions: sessions,
		svcKeys:  svcKeys,
		audit:    recorder,
	}
}

// Routes wires the entry points exposed to collaborators. Nothing else of
// the core's state is reachable over the wire.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", a.handleLogin)
	mux.HandleFunc("POST /v1/auth/refresh", a.handleRefresh)
	mux.HandleFunc("POST /v1/auth/logout", a.handleLogout)
	mux.Handle("GET /v1/auth/introspect", a.withBearer(http.HandlerFunc(a.handleIntrospect)))
	mux.Handle("POST /v1/auth/revoke-all", a.withServiceKey(http.HandlerFunc(a.handleRevokeAll)))
	return mux
}
