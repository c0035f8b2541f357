package repository

import (
	"context"
	"database/sql"

	"community-cms/backend/internal/member/domain"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so member writes can join a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository defines persistence for members.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Member, error)
	GetByMemberNumber(ctx context.Context, number string) (*domain.Member, error)
	Create(ctx context.Context, m *domain.Member) error
	// NextMemberNumberSeq draws the next value of the member number sequence.
	NextMemberNumberSeq(ctx context.Context) (int64, error)
}
