package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrUniqueViolation = "23505"
	pgErrForeignKey      = "23503"
)

// Reports whether err is a Postgres unique constraint violation, optionally
// on one specific constraint. Callers pre-check uniqueness before inserting,
// but the constraint can still trip under concurrent writes; this lets the
// adapter turn that race into a typed failure instead of a crash.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != pgErrUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgErrForeignKey
}
