package repository

import (
	"context"
	"database/sql"
	"errors"

	"community-cms/backend/internal/member/domain"
)

const memberColumns = `id, member_number, first_name, last_name, email, phone, street, postal_code, city,
	membership_type, status, joined_at, created_at, updated_at`

// ErrDuplicateMemberNumber is returned by Create when the member number is already taken.
var ErrDuplicateMemberNumber = errors.New("member number already exists")

type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository returns a member repository over db, which may be a *sql.DB or a *sql.Tx.
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the member for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
}

// GetByMemberNumber returns the member with the given number, or nil if not found.
func (r *PostgresRepository) GetByMemberNumber(ctx context.Context, number string) (*domain.Member, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE member_number = $1`, number)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*domain.Member, error) {
	var m domain.Member
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&m.ID, &m.MemberNumber, &m.FirstName, &m.LastName, &m.Email, &m.Phone, &m.Street, &m.PostalCode, &m.City,
		&m.MembershipType, &m.Status, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// Create inserts the member. A unique violation on member_number yields ErrDuplicateMemberNumber.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Member) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		m.ID, m.MemberNumber, m.FirstName, m.LastName, m.Email, m.Phone, m.Street, m.PostalCode, m.City,
		string(m.MembershipType), string(m.Status), m.JoinedAt, m.CreatedAt, m.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateMemberNumber
	}
	return err
}

// NextMemberNumberSeq returns nextval of member_number_seq.
func (r *PostgresRepository) NextMemberNumberSeq(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('member_number_seq')`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
