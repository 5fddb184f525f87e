package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// constraint names as generated by the migrations
const usersEmailKey = "users_email_key"

// isUniqueViolation reports whether err is a unique violation, optionally
// restricted to the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
