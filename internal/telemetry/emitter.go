package telemetry

import (
	"context"

	"community-cms/backend/internal/telemetry/domain"
)

// EventEmitter emits workflow events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}
