package repository

import (
	"context"
	"database/sql"
	"errors"

	memberdomain "community-cms/backend/internal/member/domain"
	"community-cms/backend/internal/user/domain"
)

const userColumns = `u.id, u.email, u.name, u.role, COALESCE(u.linked_member_id, ''), u.status, u.created_at, u.updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetPrincipal returns the user and its linked member's type in one query, or nil if the user does not exist.
// An inactive linked member contributes no membership type.
func (r *PostgresRepository) GetPrincipal(ctx context.Context, id string) (*domain.Principal, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+`,
		CASE WHEN m.status = 'ACTIVE' THEN m.membership_type ELSE '' END
		FROM users u LEFT JOIN members m ON m.id = u.linked_member_id
		WHERE u.id = $1`, id)
	var u domain.User
	var memberType sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.LinkedMemberID, &u.Status, &u.CreatedAt, &u.UpdatedAt, &memberType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.Principal{User: &u, LinkedMemberType: memberdomain.MembershipType(memberType.String)}, nil
}

// ListBoardEligibleIDs returns the IDs of active board-authorized users ordered by ID.
func (r *PostgresRepository) ListBoardEligibleIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT u.id
		FROM users u LEFT JOIN members m ON m.id = u.linked_member_id
		WHERE u.status = 'active'
		  AND (u.role = 'BOARD' OR (m.membership_type = 'BOARD' AND m.status = 'ACTIVE'))
		ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Create persists the user to the database. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	linked := sql.NullString{String: u.LinkedMemberID, Valid: u.LinkedMemberID != ""}
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (id, email, name, role, linked_member_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.Name, string(u.Role), linked, string(u.Status), u.CreatedAt, u.UpdatedAt)
	return err
}

// LinkMember sets linked_member_id for the user. The unique index on linked_member_id rejects a second link.
func (r *PostgresRepository) LinkMember(ctx context.Context, userID, memberID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET linked_member_id = $2, updated_at = now() WHERE id = $1`, userID, memberID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrMemberAlreadyLinked
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.LinkedMemberID, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
