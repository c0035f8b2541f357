package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"community-cms/backend/internal/telemetry/domain"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*domain.Event
	emitErr error
	done    chan struct{}
}

func newMockEmitter(expected int) *mockEventEmitter {
	return &mockEventEmitter{done: make(chan struct{}, expected)}
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *domain.Event) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	m.done <- struct{}{}
	return m.emitErr
}

func (m *mockEventEmitter) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-m.done:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for emit %d of %d", i+1, n)
		}
	}
}

func TestEmitAsync_NilEmitterOrEvent(t *testing.T) {
	EmitAsync(context.Background(), nil, &domain.Event{Type: "approved"})

	em := newMockEmitter(1)
	EmitAsync(context.Background(), em, nil)
	time.Sleep(10 * time.Millisecond)
	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.events) != 0 {
		t.Errorf("expected 0 events, got %d", len(em.events))
	}
}

func TestEmitAsync_SurvivesCancelledContext(t *testing.T) {
	em := newMockEmitter(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	EmitAsync(ctx, em, &domain.Event{Type: "approved", RequestID: "r1"})
	em.wait(t, 1)

	if em.events[0].RequestID != "r1" {
		t.Errorf("request_id = %q, want r1", em.events[0].RequestID)
	}
}

func TestEmitAsync_ErrorIsSwallowed(t *testing.T) {
	em := newMockEmitter(1)
	em.emitErr = errors.New("collector down")
	EmitAsync(context.Background(), em, &domain.Event{Type: "rejected"})
	em.wait(t, 1)
}

func TestEmitAsync_Concurrent(t *testing.T) {
	em := newMockEmitter(10)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			EmitAsync(context.Background(), em, &domain.Event{Type: "vote_cast"})
		}()
	}
	wg.Wait()
	em.wait(t, 10)
}
