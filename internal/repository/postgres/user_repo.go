package postgres

import (
	"context"
	"encoding/json"

	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
	"github.com/mkshuvo/e-commerce-store-sub001/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct{ db *DB }

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	qUserByID = `
SELECT id, email, password_hash, roles, email_verified, active, created_at, updated_at
FROM users
WHERE id = $1;`

	qUserByEmail = `
SELECT id, email, password_hash, roles, email_verified, active, created_at, updated_at
FROM users
WHERE email = $1;`
)

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.get(ctx, qUserByID, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.get(ctx, qUserByEmail, email)
}

func (r *UserRepo) get(ctx context.Context, query, key string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		u     user.User
		roles []byte
	)
	err := r.db.Pool.QueryRow(ctx, query, key).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &roles, &u.EmailVerified, &u.Active,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr("user find", err)
	}
	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &u.Roles); err != nil {
			return nil, domain.ErrStoreUnavailable
		}
	}
	return &u, nil
}
