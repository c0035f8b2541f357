package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	memberdomain "community-cms/backend/internal/member/domain"
	"community-cms/backend/internal/user/domain"
)

var principalCols = []string{"id", "email", "name", "role", "linked_member_id", "status", "created_at", "updated_at", "membership_type"}

func TestGetPrincipal_LinkedBoardMember(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM users u LEFT JOIN members m`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(principalCols).
			AddRow("u1", "b@example.com", "Bo", "USER", "m1", "active", now, now, "BOARD"))

	p, err := NewPostgresRepository(db).GetPrincipal(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, domain.RoleUser, p.User.Role)
	require.Equal(t, memberdomain.MembershipTypeBoard, p.LinkedMemberType)
	require.True(t, p.IsBoardAuthorized())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPrincipal_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM users u LEFT JOIN members m`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(principalCols))

	p, err := NewPostgresRepository(db).GetPrincipal(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestListBoardEligibleIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT u.id\s+FROM users u LEFT JOIN members m`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))

	ids, err := NewPostgresRepository(db).ListBoardEligibleIDs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkMember_UnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET linked_member_id`).
		WithArgs("u1", "m1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPostgresRepository(db).LinkMember(context.Background(), "u1", "m1")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLinkMember_AlreadyLinked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET linked_member_id`).
		WithArgs("u2", "m1").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = NewPostgresRepository(db).LinkMember(context.Background(), "u2", "m1")
	require.ErrorIs(t, err, ErrMemberAlreadyLinked)
}
