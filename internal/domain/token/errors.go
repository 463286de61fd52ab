package token

import "errors"

var (
	// ErrAuthFailed is the generic credential failure. It deliberately
	// carries no detail so callers cannot enumerate accounts.
	ErrAuthFailed = errors.New("invalid credentials")

	// ErrSignature covers a bad or missing signature, an unexpected
	// signing algorithm, and malformed token material.
	ErrSignature = errors.New("token signature invalid")

	ErrExpired     = errors.New("token expired")
	ErrNotYetValid = errors.New("token not yet valid")

	// ErrRevoked means the token was explicitly invalidated before its
	// natural expiry.
	ErrRevoked = errors.New("token revoked")

	// ErrReused means a rotated or revoked refresh token was presented
	// again. Detection revokes the whole token family as a side effect.
	ErrReused = errors.New("refresh token reused")

	ErrInvalidIssuer   = errors.New("unexpected token issuer")
	ErrInvalidAudience = errors.New("unexpected token audience")

	ErrNotFound = errors.New("refresh token not found")

	// ErrStoreUnavailable is an infrastructure failure. Validation fails
	// closed on it; login and refresh surface it as retryable.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)
