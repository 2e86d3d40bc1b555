package storage

import (
	"errors"

	"github.com/jackc/pgconn"
)

// constraintName extracts the violated constraint's name from a Postgres
// error, or "" for nil and non-Postgres errors. Each storage maps the
// names of its schema constraints onto sentinel errors.
func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}
	return pgErr.ConstraintName
}
