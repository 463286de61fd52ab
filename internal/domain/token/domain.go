package token

import (
	"time"
)

// Principal is an immutable snapshot of an authenticated identity taken at
// issuance time. Ownership of the underlying account record stays with the
// user-management side; nothing here is written back.
type Principal struct {
	ID            string
	Roles         map[string]string // role name -> granted scope
	EmailVerified bool
	Active        bool
}

// Status is the lifecycle state of a persisted refresh token.
type Status string

const (
	// StatusActive - usable for exactly one refresh.
	StatusActive Status = "active"
	// StatusRotated - superseded by a successor; presenting it again is
	// treated as replay.
	StatusRotated Status = "rotated"
	// StatusRevoked - explicitly invalidated (logout, replay response,
	// bulk revocation).
	StatusRevoked Status = "revoked"
)

// RefreshToken is the durable record behind an opaque refresh credential.
// The raw secret is never stored; TokenHash keeps a sha256 of it.
// Records are never deleted by this core - superseded ones are kept for
// replay forensics.
type RefreshToken struct {
	ID              string
	UserID          string
	FamilyID        string // rotation chain id, shared by every successor
	TokenHash       string
	AccessJTI       string // jti of the access token minted with this record
	AccessExpiresAt time.Time
	Origin          string
	Status          Status
	CreatedAt       time.Time
	ExpiresAt       time.Time
	RevokedAt       *time.Time
	SuccessorID     *string
}

// Marker denylists an access token jti until its natural expiry. Expired
// markers are dead weight only until the maintenance job sweeps them; they
// never need explicit deletion for correctness.
type Marker struct {
	JTI       string
	ExpiresAt time.Time
}

// Pair is what a successful login or refresh hands back to the caller.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
