package store

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned by single-row lookups that match no row. Callers
// translate this to apperr.NotFound at the service boundary.
var ErrNotFound = pgx.ErrNoRows

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally narrowed to a specific constraint name. This is how
// the domain-idempotency and webhook-envelope races are recovered: the
// loser of the race reads back the winner's row instead of erroring.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != pgUniqueViolation {
		return false
	}
	if constraint == "" {
		return true
	}
	return pgErr.ConstraintName == constraint
}
