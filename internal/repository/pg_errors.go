package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error code 23505 = unique_violation
const pgUniqueViolation = "23505"

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation
// on the named constraint or index
func isUniqueViolation(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && strings.EqualFold(pgErr.ConstraintName, constraintName)
	}
	return false
}
