package user

import "time"

// User is the account record owned by the user-management side. The session
// core never reads PasswordHash directly; it goes through a Verifier.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	Roles         map[string]string // role name -> granted scope
	EmailVerified bool
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
