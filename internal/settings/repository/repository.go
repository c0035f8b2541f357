package repository

import (
	"context"

	"community-cms/backend/internal/settings/domain"
)

// Store defines read/write access to settings.
type Store interface {
	// Get returns the value for category/key and whether it exists.
	Get(ctx context.Context, category, key string) (string, bool, error)
	ListByCategory(ctx context.Context, category string) ([]domain.Setting, error)
	Upsert(ctx context.Context, s *domain.Setting) error
}
