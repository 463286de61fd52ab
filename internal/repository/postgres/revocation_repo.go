package postgres

import (
	"context"
	"time"

	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
)

var _ domain.RevocationRepo = (*RevocationRepo)(nil)

// RevocationRepo is the durable access-token denylist. Rows expire by the
// embedded timestamp; sweeping them out is an external maintenance job, not
// part of any authentication path.
type RevocationRepo struct{ db *DB }

func NewRevocationRepo(db *DB) *RevocationRepo { return &RevocationRepo{db: db} }

const (
	qMarkerInsert = `
INSERT INTO revocation_markers (jti, expires_at, created_at)
VALUES ($1, $2, NOW())
ON CONFLICT (jti) DO NOTHING;`

	qMarkerLookup = `
SELECT 1 FROM revocation_markers
WHERE jti = $1 AND expires_at > $2;`
)

func (r *RevocationRepo) Add(ctx context.Context, markers ...domain.Marker) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	for _, m := range markers {
		if _, err := r.db.Pool.Exec(ctx, qMarkerInsert, m.JTI, m.ExpiresAt); err != nil {
			return mapErr("revocation marker insert", err)
		}
	}
	return nil
}

func (r *RevocationRepo) IsRevoked(ctx context.Context, jti string, now time.Time) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qMarkerLookup, jti, now)
	if err != nil {
		return false, mapErr("revocation marker lookup", err)
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}
