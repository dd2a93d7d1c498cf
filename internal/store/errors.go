package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when a user insert or update collides
	// with an existing email address.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateUsername is returned when a user insert or update collides
	// with an existing username.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrDuplicateCategory is returned when a category name collides with an
	// existing category of the same user.
	ErrDuplicateCategory = errors.New("category already exists")
)

// uniqueViolation reports whether err is a uniqueness-constraint violation
// and, if so, returns a string identifying the violated constraint. For
// Postgres this is the constraint name (e.g. "users_email_key"); for SQLite
// it is the driver message, which names the column (e.g. "UNIQUE constraint
// failed: users.email").
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return pgErr.ConstraintName, true
		}
		return "", false
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(strings.ToLower(msg), "unique constraint") {
		return msg, true
	}
	return "", false
}

// userConflictError maps a uniqueness violation from the users table to the
// matching domain error. The storage constraint is the authoritative signal;
// callers may pre-check for friendlier fast-path errors, but this is what
// wins a registration race.
func userConflictError(err error) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(constraint, "email"):
		return ErrDuplicateEmail
	case strings.Contains(constraint, "username"):
		return ErrDuplicateUsername
	}
	return nil
}
