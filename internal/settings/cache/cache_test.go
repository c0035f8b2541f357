package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestGet_ServesFreshValueWithinTTL(t *testing.T) {
	clock := newClock()
	var calls int32
	c := New(func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}, -1, Options{TTL: time.Minute, Now: clock.Now})

	for i := 0; i < 3; i++ {
		v, err := c.Get(context.Background())
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if v != 1 {
			t.Errorf("Get = %d, want 1", v)
		}
	}
	clock.Advance(time.Minute)
	v, _ := c.Get(context.Background())
	if v != 2 {
		t.Errorf("Get after TTL = %d, want 2", v)
	}
}

func TestGet_ZeroTTLAlwaysLoads(t *testing.T) {
	var calls int32
	c := New(func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}, 0, Options{})
	c.Get(context.Background())
	c.Get(context.Background())
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("loads = %d, want 2", got)
	}
}

func TestGet_FailureReturnsFallbackAndError(t *testing.T) {
	clock := newClock()
	boom := errors.New("store down")
	var calls int32
	c := New(func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", boom
	}, "conservative", Options{TTL: time.Minute, FailureTTL: 10 * time.Second, Now: clock.Now})

	v, err := c.Get(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if v != "conservative" {
		t.Errorf("value = %q, want fallback", v)
	}
	c.Get(context.Background())
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("loads within FailureTTL = %d, want 1", got)
	}
	clock.Advance(10 * time.Second)
	c.Get(context.Background())
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("loads after FailureTTL = %d, want 2", got)
	}
}

func TestGet_TimeoutBoundsSlowLoad(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	c := New(func(context.Context) (bool, error) {
		<-block
		return true, nil
	}, false, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	v, err := c.Get(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if v {
		t.Error("value = true, want fallback false")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Get took %v, want bounded by timeout", elapsed)
	}
}

func TestGet_StaleValueDuringRefresh(t *testing.T) {
	clock := newClock()
	var calls int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	c := New(func(context.Context) (int, error) {
		n := atomic.AddInt32(&calls, 1)
		if n > 1 {
			entered <- struct{}{}
			<-release
		}
		return int(n), nil
	}, 0, Options{TTL: time.Minute, Now: clock.Now})

	if v, _ := c.Get(context.Background()); v != 1 {
		t.Fatalf("initial Get = %d, want 1", v)
	}
	clock.Advance(2 * time.Minute)

	refreshed := make(chan int)
	go func() {
		v, _ := c.Get(context.Background())
		refreshed <- v
	}()
	<-entered

	v, err := c.Get(context.Background())
	if err != nil || v != 1 {
		t.Errorf("Get during refresh = %d, %v; want stale 1", v, err)
	}
	close(release)
	if v := <-refreshed; v != 2 {
		t.Errorf("refreshing Get = %d, want 2", v)
	}
}

func TestInvalidate(t *testing.T) {
	var calls int32
	c := New(func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}, 0, Options{TTL: time.Hour})
	c.Get(context.Background())
	c.Invalidate()
	if v, _ := c.Get(context.Background()); v != 2 {
		t.Errorf("Get after Invalidate = %d, want 2", v)
	}
}
