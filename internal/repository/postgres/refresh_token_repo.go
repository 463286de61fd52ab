package postgres

import (
	"context"
	"time"

	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
)

var _ domain.RefreshTokenRepo = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct{ db *DB }

func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

const (
	qRTInsert = `
INSERT INTO refresh_tokens
  (id, user_id, family_id, token_hash, access_jti, access_expires_at, origin, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

	qRTFind = `
SELECT id, user_id, family_id, token_hash, access_jti, access_expires_at,
       origin, status, created_at, expires_at, revoked_at, successor_id
FROM refresh_tokens
WHERE id = $1;`

	// The WHERE status = 'active' guard is the compare-and-swap the whole
	// rotation protocol hangs on: concurrent refreshes of one token race
	// on this row and exactly one update reports a row affected.
	qRTRotate = `
UPDATE refresh_tokens
SET status = 'rotated', successor_id = $2
WHERE id = $1 AND status = 'active';`

	qRTRevoke = `
UPDATE refresh_tokens
SET status = 'revoked', revoked_at = $2
WHERE id = $1 AND status <> 'revoked';`

	qRTRevokeFamily = `
UPDATE refresh_tokens
SET status = 'revoked', revoked_at = $2
WHERE family_id = $1 AND status <> 'revoked'
RETURNING access_jti, access_expires_at;`

	qRTRevokeUser = `
UPDATE refresh_tokens
SET status = 'revoked', revoked_at = $2
WHERE user_id = $1 AND status <> 'revoked'
RETURNING access_jti, access_expires_at;`
)

func (r *RefreshTokenRepo) Create(ctx context.Context, t *domain.RefreshToken) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.Pool.Exec(ctx, qRTInsert,
		t.ID, t.UserID, t.FamilyID, t.TokenHash, t.AccessJTI, t.AccessExpiresAt,
		t.Origin, string(t.Status), t.CreatedAt, t.ExpiresAt,
	)
	return mapErr("refresh token insert", err)
}

func (r *RefreshTokenRepo) Find(ctx context.Context, id string) (*domain.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		t      domain.RefreshToken
		status string
	)
	err := r.db.Pool.QueryRow(ctx, qRTFind, id).Scan(
		&t.ID, &t.UserID, &t.FamilyID, &t.TokenHash, &t.AccessJTI, &t.AccessExpiresAt,
		&t.Origin, &status, &t.CreatedAt, &t.ExpiresAt, &t.RevokedAt, &t.SuccessorID,
	)
	if err != nil {
		return nil, mapErr("refresh token find", err)
	}
	t.Status = domain.Status(status)
	return &t, nil
}

func (r *RefreshTokenRepo) Rotate(ctx context.Context, id, successorID string, _ time.Time) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qRTRotate, id, successorID)
	if err != nil {
		return false, mapErr("refresh token rotate", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RefreshTokenRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.Pool.Exec(ctx, qRTRevoke, id, at)
	return mapErr("refresh token revoke", err)
}

func (r *RefreshTokenRepo) RevokeFamily(ctx context.Context, familyID string, at time.Time) ([]domain.Marker, error) {
	return r.revokeReturning(ctx, qRTRevokeFamily, familyID, at)
}

func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID string, at time.Time) ([]domain.Marker, error) {
	return r.revokeReturning(ctx, qRTRevokeUser, userID, at)
}

func (r *RefreshTokenRepo) revokeReturning(ctx context.Context, query, key string, at time.Time) ([]domain.Marker, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, query, key, at)
	if err != nil {
		return nil, mapErr("refresh token bulk revoke", err)
	}
	defer rows.Close()

	var markers []domain.Marker
	for rows.Next() {
		var m domain.Marker
		if err := rows.Scan(&m.JTI, &m.ExpiresAt); err != nil {
			return nil, mapErr("refresh token bulk revoke scan", err)
		}
		if m.ExpiresAt.After(at) {
			markers = append(markers, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("refresh token bulk revoke rows", err)
	}
	return markers, nil
}
