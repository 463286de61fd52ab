package httpapi

import (
	"context"
	"net/http"
	"strings"

	domainaudit "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/audit"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/servicekey"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/token"
)

type ctxKey int

const (
	claimsKey ctxKey = iota
	serviceIdentityKey
)

func claimsFromContext(ctx context.Context) (*token.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*token.Claims)
	return c, ok
}

func serviceIdentityFromContext(ctx context.Context) (servicekey.Identity, bool) {
	id, ok := ctx.Value(serviceIdentityKey).(servicekey.Identity)
	return id, ok
}

// withBearer validates the access token and stashes the claims. Any
// validation failure, including a denylist outage, leaves the request
// unauthenticated.
func (a *API) withBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := a.sessions.ValidateAccess(r.Context(), raw)
		if err != nil {
			writeDomainErr(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withServiceKey authenticates the static-key path. Every request
// re-presents the key; nothing is issued and nothing expires. Failed
// attempts are security events and land in the audit trail.
func (a *API) withServiceKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := requestMeta(r)
		identity, err := a.svcKeys.Authenticate(r.Header.Get(ServiceKeyHeader))
		if err != nil {
			a.audit.Record(r.Context(), domainaudit.Record{
				Kind:      domainaudit.KindServiceKeyAuth,
				Outcome:   domainaudit.OutcomeFailure,
				Origin:    meta.Origin,
				UserAgent: meta.UserAgent,
			})
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		ctx := context.WithValue(r.Context(), serviceIdentityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}
