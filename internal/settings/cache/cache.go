// Package cache provides a single-value TTL cache for settings snapshots.
//
// Each Cache is constructed explicitly and injected where it is used; there is no
// process-wide instance. Concurrent misses share one load through singleflight, readers
// keep seeing the previous value while a refresh is in flight, and a failed or slow load
// yields the configured fallback together with the error.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const loadKey = "load"

// Loader fetches a fresh value.
type Loader[T any] func(ctx context.Context) (T, error)

// Options configures a Cache.
type Options struct {
	// TTL is how long a loaded value is served without reloading. Zero disables caching.
	TTL time.Duration
	// Timeout bounds each load. Zero means no bound beyond the caller's context.
	Timeout time.Duration
	// FailureTTL is how long a failed load is remembered before the store is tried again.
	// It is capped at TTL, so a zero TTL never remembers failures.
	FailureTTL time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Cache holds one value of type T.
type Cache[T any] struct {
	load     Loader[T]
	fallback T
	opts     Options
	group    singleflight.Group

	mu         sync.RWMutex
	value      T
	loadedAt   time.Time
	failedAt   time.Time
	failErr    error
	valid      bool
	refreshing bool
}

// New returns a cache that fills itself from load and serves fallback when load fails.
func New[T any](load Loader[T], fallback T, opts Options) *Cache[T] {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FailureTTL > opts.TTL {
		opts.FailureTTL = opts.TTL
	}
	return &Cache[T]{load: load, fallback: fallback, opts: opts}
}

// Get returns the cached value if it is fresh. Otherwise it loads a new value, or returns the
// previous value when another caller is already refreshing it. On load failure Get returns the
// fallback and the load error.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	now := c.opts.Now()
	c.mu.RLock()
	value, loadedAt, valid, refreshing := c.value, c.loadedAt, c.valid, c.refreshing
	failedAt, failErr := c.failedAt, c.failErr
	c.mu.RUnlock()

	if c.opts.TTL > 0 {
		if valid && now.Sub(loadedAt) < c.opts.TTL {
			return value, nil
		}
		if valid && refreshing {
			return value, nil
		}
		if failErr != nil && now.Sub(failedAt) < c.opts.FailureTTL {
			return c.fallback, failErr
		}
	}

	res, err, _ := c.group.Do(loadKey, func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return c.fallback, err
	}
	return res.(T), nil
}

func (c *Cache[T]) refresh(ctx context.Context) (T, error) {
	c.mu.Lock()
	c.refreshing = true
	c.mu.Unlock()

	// Callers share this load; one caller going away must not fail it for the rest.
	lctx := context.WithoutCancel(ctx)
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(lctx, c.opts.Timeout)
		defer cancel()
	}
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := c.load(lctx)
		done <- result{v, err}
	}()
	var v T
	var err error
	select {
	case r := <-done:
		v, err = r.v, r.err
	case <-lctx.Done():
		err = lctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshing = false
	if err != nil {
		c.failedAt = c.opts.Now()
		c.failErr = err
		return v, err
	}
	c.value = v
	c.loadedAt = c.opts.Now()
	c.valid = true
	c.failErr = nil
	return v, nil
}

// Invalidate drops the cached value so the next Get loads again.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	var zero T
	c.value = zero
	c.valid = false
	c.failErr = nil
	c.mu.Unlock()
}
