package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
)

const maxBodyBytes = 1 << 20

func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainErr maps the core taxonomy onto status codes. Credential
// failures stay deliberately vague; infrastructure failures are retryable.
func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
	case errors.Is(err, domain.ErrAuthFailed):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrReused):
		writeError(w, http.StatusUnauthorized, "refresh token reused")
	case errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrNotYetValid),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrRevoked),
		errors.Is(err, domain.ErrSignature),
		errors.Is(err, domain.ErrInvalidIssuer),
		errors.Is(err, domain.ErrInvalidAudience):
		writeError(w, http.StatusUnauthorized, "invalid token")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
