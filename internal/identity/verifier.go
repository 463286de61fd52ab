// Package identity adapts the user-management store into the credential
// verifier the session service delegates to. The session core itself never
// sees a password hash; it receives an immutable principal snapshot.
package identity

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/domain/user"
)

type Verifier struct {
	users user.Repo
}

func NewVerifier(users user.Repo) *Verifier {
	return &Verifier{users: users}
}

// Verify checks email+password and returns the principal snapshot for token
// issuance. Every failure collapses to ErrAuthFailed so callers cannot tell
// an unknown account from a wrong password, except store outages which stay
// distinguishable as retryable.
func (v *Verifier) Verify(ctx context.Context, email, password string) (domain.Principal, error) {
	if email == "" || password == "" {
		return domain.Principal{}, domain.ErrAuthFailed
	}
	u, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return domain.Principal{}, err
		}
		return domain.Principal{}, domain.ErrAuthFailed
	}
	if !u.Active {
		return domain.Principal{}, domain.ErrAuthFailed
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return domain.Principal{}, domain.ErrAuthFailed
	}
	return snapshot(u), nil
}

// Snapshot re-reads the principal by id. Refresh rotation uses it so role
// changes and account deactivation take effect on the next rotation, not
// only at the next login.
func (v *Verifier) Snapshot(ctx context.Context, userID string) (domain.Principal, error) {
	u, err := v.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return domain.Principal{}, err
		}
		return domain.Principal{}, domain.ErrAuthFailed
	}
	if !u.Active {
		return domain.Principal{}, domain.ErrAuthFailed
	}
	return snapshot(u), nil
}

func snapshot(u *user.User) domain.Principal {
	roles := make(map[string]string, len(u.Roles))
	for name, scope := range u.Roles {
		roles[name] = scope
	}
	return domain.Principal{
		ID:            u.ID,
		Roles:         roles,
		EmailVerified: u.EmailVerified,
		Active:        u.Active,
	}
}
