package token

import (
	"context"
	"time"
)

// RefreshTokenRepo is the durable store for refresh-token records.
//
// Rotate is the single synchronization primitive of the whole core: it must
// be a conditional update keyed on the current status so that concurrent
// refresh attempts presenting the same token serialize at the row level.
type RefreshTokenRepo interface {
	Create(ctx context.Context, t *RefreshToken) error
	Find(ctx context.Context, id string) (*RefreshToken, error)

	// Rotate transitions id from active to rotated and links the
	// successor. Returns false when the row was not active anymore, i.e.
	// this attempt lost the race or the token was already spent.
	Rotate(ctx context.Context, id, successorID string, at time.Time) (bool, error)

	// Revoke marks a single token revoked. Revoking an already revoked
	// token is a no-op, not an error.
	Revoke(ctx context.Context, id string, at time.Time) error

	// RevokeFamily revokes every not-yet-revoked member of a rotation
	// chain and reports denylist markers for the members whose paired
	// access tokens are still within their lifetime.
	RevokeFamily(ctx context.Context, familyID string, at time.Time) ([]Marker, error)

	// RevokeAllForUser does the same across all of a principal's chains.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) ([]Marker, error)
}

// RevocationRepo is the access-token denylist keyed by jti.
type RevocationRepo interface {
	Add(ctx context.Context, markers ...Marker) error
	IsRevoked(ctx context.Context, jti string, now time.Time) (bool, error)
}
