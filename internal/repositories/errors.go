package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Domain errors surfaced by repositories. Handlers map these to HTTP statuses
// with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyFollowing    = errors.New("already following user")
	ErrNotFollowing        = errors.New("not following user")
	ErrCannotFollowBlocked = errors.New("cannot follow someone you blocked")
	ErrAlreadyBlocked      = errors.New("already blocked")
	ErrNotBlocked          = errors.New("not blocked")
	ErrCannotBlockFollowed = errors.New("cannot block someone you follow")
	ErrAlreadyPosted       = errors.New("you already posted that place")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrDuplicateImage      = errors.New("duplicate image")
	ErrImageNotFound       = errors.New("image not found")
	ErrUsernameTaken       = errors.New("username taken")
	ErrUserExists          = errors.New("user already exists")
	ErrConflict            = errors.New("could not complete request")
)

const uniqueViolationCode = "23505"

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, i.e. a check-then-insert race lost to a concurrent request.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// isUniqueViolationOn reports whether err is a unique violation on the named
// constraint.
func isUniqueViolationOn(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == constraint
}
