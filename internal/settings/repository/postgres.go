package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"community-cms/backend/internal/settings/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a settings store that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, category, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE category = $1 AND key = $2`, category, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (r *PostgresRepository) ListByCategory(ctx context.Context, category string) ([]domain.Setting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, key, value, updated_at FROM settings WHERE category = $1 ORDER BY key`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Setting
	for rows.Next() {
		var s domain.Setting
		if err := rows.Scan(&s.Category, &s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces the setting. UpdatedAt defaults to now when zero.
func (r *PostgresRepository) Upsert(ctx context.Context, s *domain.Setting) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO settings (category, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (category, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		s.Category, s.Key, s.Value, s.UpdatedAt)
	return err
}
