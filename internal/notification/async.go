package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// sendTimeout bounds a single background send.
const sendTimeout = 5 * time.Second

// Async sends through next in a goroutine so the caller is never blocked. Send always returns
// nil; failures are logged.
type Async struct {
	next    Dispatcher
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewAsync wraps next. A zero timeout uses the default of five seconds.
func NewAsync(next Dispatcher, timeout time.Duration, logger *slog.Logger) *Async {
	if timeout <= 0 {
		timeout = sendTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{next: next, timeout: timeout, logger: logger}
}

// Send starts the delivery and returns immediately. The goroutine detaches from ctx so
// request cancellation does not abort the enqueue.
func (a *Async) Send(ctx context.Context, templateKey string, data map[string]string) error {
	if a.next == nil {
		return nil
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		if err := a.next.Send(sendCtx, templateKey, data); err != nil {
			a.logger.Warn("notification send failed", "template", templateKey, "error", err)
		}
	}()
	return nil
}

// Wait blocks until in-flight sends finish or ctx is done. Used on shutdown.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
