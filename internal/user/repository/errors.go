package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrMemberAlreadyLinked is returned by LinkMember when another account already links the member.
var ErrMemberAlreadyLinked = errors.New("member already linked to another user")

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
