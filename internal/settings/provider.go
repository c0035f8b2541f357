// Package settings exposes the cached permission-override and approval-threshold snapshots
// read by the permission resolver and the approval workflow.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"community-cms/backend/internal/settings/cache"
	"community-cms/backend/internal/settings/domain"
	"community-cms/backend/internal/settings/repository"
)

// ErrUnavailable is returned when a setting that gates a binding decision cannot be read.
var ErrUnavailable = errors.New("settings unavailable")

// Options configures a Provider.
type Options struct {
	PermissionTTL time.Duration
	ThresholdTTL  time.Duration
	FetchTimeout  time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// Provider serves settings snapshots from explicitly constructed caches over a Store.
type Provider struct {
	store     repository.Store
	overrides *cache.Cache[domain.PermissionOverrides]
	threshold *cache.Cache[domain.ApprovalThreshold]
	logger    *slog.Logger
}

// NewProvider returns a Provider over store.
func NewProvider(store repository.Store, opts Options) *Provider {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{store: store, logger: logger}
	p.overrides = cache.New(p.loadOverrides, domain.Conservative(), cache.Options{
		TTL:        opts.PermissionTTL,
		Timeout:    opts.FetchTimeout,
		FailureTTL: opts.PermissionTTL,
		Now:        opts.Now,
	})
	p.threshold = cache.New(p.loadThreshold, domain.ApprovalThreshold(""), cache.Options{
		TTL:     opts.ThresholdTTL,
		Timeout: opts.FetchTimeout,
		Now:     opts.Now,
	})
	return p
}

// PermissionOverrides returns the current override snapshot. When the store cannot be read it
// logs and returns the conservative snapshot, so overrides fail closed.
func (p *Provider) PermissionOverrides(ctx context.Context) domain.PermissionOverrides {
	o, err := p.overrides.Get(ctx)
	if err != nil {
		p.logger.WarnContext(ctx, "permission overrides unavailable, using conservative defaults", "error", err)
		return domain.Conservative()
	}
	return o
}

// ApprovalThreshold returns the configured threshold, or MAJORITY when none is configured.
// An unreadable store or an invalid stored value yields ErrUnavailable.
func (p *Provider) ApprovalThreshold(ctx context.Context) (domain.ApprovalThreshold, error) {
	t, err := p.threshold.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: approval threshold: %v", ErrUnavailable, err)
	}
	return t, nil
}

// Set upserts a setting and drops the affected cached snapshot.
func (p *Provider) Set(ctx context.Context, category, key, value string) error {
	if err := p.store.Upsert(ctx, &domain.Setting{Category: category, Key: key, Value: value}); err != nil {
		return err
	}
	switch category {
	case domain.CategoryPermissions:
		p.overrides.Invalidate()
	case domain.CategoryMembership:
		p.threshold.Invalidate()
	}
	return nil
}

func (p *Provider) loadOverrides(ctx context.Context) (domain.PermissionOverrides, error) {
	rows, err := p.store.ListByCategory(ctx, domain.CategoryPermissions)
	if err != nil {
		return nil, err
	}
	return domain.OverridesFromSettings(rows), nil
}

func (p *Provider) loadThreshold(ctx context.Context) (domain.ApprovalThreshold, error) {
	v, ok, err := p.store.Get(ctx, domain.CategoryMembership, domain.KeyApprovalThreshold)
	if err != nil {
		return "", err
	}
	if !ok {
		return domain.DefaultApprovalThreshold, nil
	}
	return domain.ParseApprovalThreshold(v)
}
