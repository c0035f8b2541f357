package telemetry

import (
	"context"
	"log/slog"
	"time"

	"community-cms/backend/internal/telemetry/domain"
)

const emitTimeout = 5 * time.Second

// ShutdownDrainDuration bounds how long the server waits after GracefulStop for
// in-flight workflow events before the OTel providers shut down. It covers one emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync sends event in the background. The emit outlives request cancellation
// but not emitTimeout; failures are logged and dropped. Nil emitter or event is a no-op.
func EmitAsync(ctx context.Context, emitter EventEmitter, event *domain.Event) {
	if emitter == nil || event == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		emitCtx, cancel := context.WithTimeout(detached, emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			slog.WarnContext(emitCtx, "workflow event dropped",
				"event_type", event.Type, "request_id", event.RequestID, "error", err)
		}
	}()
}
