package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"community-cms/backend/internal/db"
	memberdomain "community-cms/backend/internal/member/domain"
	memberrepo "community-cms/backend/internal/member/repository"
	"community-cms/backend/internal/membershiprequest/domain"
)

const requestColumns = `id, first_name, last_name, email, phone, street, postal_code, city, requested_type,
	motivation, status, approval_system, admin_notes, COALESCE(member_id, ''), version, created_at, updated_at`

const historyColumns = `id, request_id, seq, action, from_status, to_status, COALESCE(actor_user_id, ''), notes, created_at`

const requestInsertColumns = `id, first_name, last_name, email, phone, street, postal_code, city, requested_type,
	motivation, status, approval_system, admin_notes, member_id, version, created_at, updated_at`

const historyInsertColumns = `id, request_id, seq, action, from_status, to_status, actor_user_id, notes, created_at`

const voteColumns = `request_id, voter_user_id, decision, notes, cast_at, updated_at`

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a Store backed by db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.MembershipRequest, error) {
	var r domain.MembershipRequest
	err := row.Scan(&r.ID, &r.FirstName, &r.LastName, &r.Email, &r.Phone, &r.Street, &r.PostalCode, &r.City,
		&r.RequestedType, &r.Motivation, &r.Status, &r.ApprovalSystem, &r.AdminNotes, &r.MemberID, &r.Version,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts the request and its first history entry in one transaction.
func (s *PostgresStore) Create(ctx context.Context, req *domain.MembershipRequest, entry *domain.StatusHistoryEntry) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO membership_requests (`+requestInsertColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			req.ID, req.FirstName, req.LastName, req.Email, req.Phone, req.Street, req.PostalCode, req.City,
			string(req.RequestedType), req.Motivation, string(req.Status), string(req.ApprovalSystem), req.AdminNotes,
			nullString(req.MemberID), req.Version, req.CreatedAt, req.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert membership request: %w", err)
		}
		entry.Seq = 1
		return insertHistory(ctx, tx, entry)
	})
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*domain.MembershipRequest, error) {
	r, err := scanRequest(s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM membership_requests WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *PostgresStore) List(ctx context.Context, status domain.Status, limit, offset int32) ([]*domain.MembershipRequest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+requestColumns+` FROM membership_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.MembershipRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListHistory(ctx context.Context, requestID string) ([]domain.StatusHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+historyColumns+` FROM membership_request_history
		WHERE request_id = $1 ORDER BY seq`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.StatusHistoryEntry
	for rows.Next() {
		var e domain.StatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Seq, &e.Action, &e.FromStatus, &e.ToStatus, &e.ActorUserID, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListVotes(ctx context.Context, requestID string) ([]domain.Vote, error) {
	return listVotes(ctx, s.db, requestID)
}

// WithLockedRequest locks the request row with SELECT ... FOR UPDATE for the lifetime of one
// transaction and commits only if fn succeeds.
func (s *PostgresStore) WithLockedRequest(ctx context.Context, id string, fn func(ctx context.Context, tx Tx) error) error {
	return db.WithTx(ctx, s.db, func(sqlTx *sql.Tx) error {
		req, err := scanRequest(sqlTx.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM membership_requests WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		return fn(ctx, &postgresTx{tx: sqlTx, req: req, members: memberrepo.NewPostgresRepository(sqlTx)})
	})
}

type postgresTx struct {
	tx      *sql.Tx
	req     *domain.MembershipRequest
	members *memberrepo.PostgresRepository
}

func (t *postgresTx) Request() *domain.MembershipRequest {
	c := *t.req
	return &c
}

func (t *postgresTx) UpdateRequest(ctx context.Context, req *domain.MembershipRequest) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE membership_requests
		SET status = $2, admin_notes = $3, member_id = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND version = $6`,
		req.ID, string(req.Status), req.AdminNotes, nullString(req.MemberID), req.UpdatedAt, req.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrConflictingVote
	}
	req.Version++
	c := *req
	t.req = &c
	return nil
}

func (t *postgresTx) AppendHistory(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	if err := t.tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM membership_request_history WHERE request_id = $1`,
		entry.RequestID).Scan(&entry.Seq); err != nil {
		return err
	}
	return insertHistory(ctx, t.tx, entry)
}

func (t *postgresTx) ListVotes(ctx context.Context) ([]domain.Vote, error) {
	return listVotes(ctx, t.tx, t.req.ID)
}

func (t *postgresTx) SaveVote(ctx context.Context, v *domain.Vote) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO membership_request_votes (`+voteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (request_id, voter_user_id)
		DO UPDATE SET decision = EXCLUDED.decision, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`,
		v.RequestID, v.VoterUserID, string(v.Decision), v.Notes, v.CastAt, v.UpdatedAt)
	return err
}

func (t *postgresTx) NextMemberSeq(ctx context.Context) (int64, error) {
	return t.members.NextMemberNumberSeq(ctx)
}

func (t *postgresTx) CreateMember(ctx context.Context, m *memberdomain.Member) error {
	return t.members.Create(ctx, m)
}

func insertHistory(ctx context.Context, q memberrepo.DBTX, e *domain.StatusHistoryEntry) error {
	_, err := q.ExecContext(ctx, `INSERT INTO membership_request_history (`+historyInsertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.RequestID, e.Seq, string(e.Action), string(e.FromStatus), string(e.ToStatus),
		nullString(e.ActorUserID), e.Notes, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

func listVotes(ctx context.Context, q memberrepo.DBTX, requestID string) ([]domain.Vote, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+voteColumns+` FROM membership_request_votes
		WHERE request_id = $1 ORDER BY cast_at, voter_user_id`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Vote
	for rows.Next() {
		var v domain.Vote
		if err := rows.Scan(&v.RequestID, &v.VoterUserID, &v.Decision, &v.Notes, &v.CastAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
