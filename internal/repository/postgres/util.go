package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domain "github.com/mkshuvo/e-commerce-store-sub001/internal/domain/token"
)

var ErrConflict = errors.New("conflict")

// mapErr folds driver errors into the domain taxonomy: missing rows become
// ErrNotFound, unique violations ErrConflict, everything else is an
// infrastructure failure the callers treat as retryable and fail closed on.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", op, domain.ErrStoreUnavailable)
}
