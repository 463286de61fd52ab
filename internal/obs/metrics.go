package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters for the identity core. Outcome labels carry coarse classes only;
// nothing here may leak token material or account identifiers.
var (
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	Refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_refreshes_total",
		Help: "Refresh-token rotations by outcome.",
	}, []string{"outcome"})

	ReplaysDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_replays_detected_total",
		Help: "Rotated or revoked refresh tokens presented again.",
	})

	Revocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_revocations_total",
		Help: "Revocations by scope (token, family, user).",
	}, []string{"scope"})

	TokenValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_token_validations_total",
		Help: "Access-token validations by outcome.",
	}, []string{"outcome"})

	ServiceKeyAuths = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_key_auth_total",
		Help: "Service-key authentications by outcome.",
	}, []string{"outcome"})

	// AuditWriteFailures is the degraded-mode signal: authentication kept
	// working but the forensic trail has holes. Alert on any increase.
	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_audit_write_failures_total",
		Help: "Audit records that could not be appended.",
	})

	RevocationCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_revocation_cache_requests_total",
		Help: "Denylist lookups by cache result (hit, miss, bypass).",
	}, []string{"result"})
)

func MetricsHandler() http.Handler { return promhttp.Handler() }
