// Package feed keeps the list state of a mounted screen: fetch results are
// applied in request order and dropped once the screen is gone.
package feed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FetchFunc loads the full list.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Options configures a Feed.
type Options struct {
	Interval time.Duration // polling interval; zero disables polling
	Ticker   TickerFunc    // defaults to RealTicker
	Log      *zap.Logger
}

// Feed is the last applied list of a screen. Each Refresh takes a sequence
// number before fetching; a result is applied only if no newer one has been
// applied and the feed is still in the mount it started in.
type Feed[T any] struct {
	fetch  FetchFunc[T]
	log    *zap.Logger
	poller *Periodic

	mu       sync.Mutex
	seq      uint64
	applied  uint64
	epoch    uint64
	mounted  bool
	items    []T
	lastErr  error
	onUpdate func([]T)
}

// New constructs an unmounted Feed.
func New[T any](fetch FetchFunc[T], o Options) *Feed[T] {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	f := &Feed[T]{fetch: fetch, log: o.Log}
	if o.Interval > 0 {
		f.poller = NewPeriodic(o.Interval, o.Ticker, f.poll, o.Log)
	}
	return f
}

// OnUpdate sets the callback run after every applied result. It runs outside
// the feed lock, so overlapping polls may call it concurrently.
func (f *Feed[T]) OnUpdate(fn func([]T)) {
	f.mu.Lock()
	f.onUpdate = fn
	f.mu.Unlock()
}

// Mount marks the feed mounted, fetches once and starts polling. The initial
// fetch error is returned; polling starts regardless.
func (f *Feed[T]) Mount(ctx context.Context) error {
	f.mu.Lock()
	if f.mounted {
		f.mu.Unlock()
		return nil
	}
	f.mounted = true
	f.epoch++
	f.mu.Unlock()

	_, err := f.Refresh(ctx)
	if f.poller != nil {
		f.poller.Start(ctx)
	}
	return err
}

// Unmount stops polling. Requests already in flight finish, but their
// results are discarded.
func (f *Feed[T]) Unmount() {
	f.mu.Lock()
	f.mounted = false
	f.mu.Unlock()
	if f.poller != nil {
		f.poller.Stop()
	}
}

// Refresh fetches and applies the list. applied is false when the result was
// stale or arrived after unmount, or when fetching failed.
func (f *Feed[T]) Refresh(ctx context.Context) (applied bool, err error) {
	f.mu.Lock()
	f.seq++
	seq, epoch := f.seq, f.epoch
	f.mu.Unlock()

	items, err := f.fetch(ctx)

	f.mu.Lock()
	if !f.mounted || f.epoch != epoch {
		f.mu.Unlock()
		f.log.Debug("late result after unmount dropped", zap.Uint64("seq", seq))
		return false, err
	}
	if seq <= f.applied {
		f.mu.Unlock()
		f.log.Debug("stale result dropped", zap.Uint64("seq", seq), zap.Uint64("applied", f.applied))
		return false, err
	}
	if err != nil {
		f.lastErr = err
		f.mu.Unlock()
		f.log.Warn("refresh failed, keeping previous list", zap.Uint64("seq", seq), zap.Error(err))
		return false, err
	}
	f.applied = seq
	f.items = items
	f.lastErr = nil
	cb := f.onUpdate
	f.mu.Unlock()

	if cb != nil {
		cb(items)
	}
	return true, nil
}

func (f *Feed[T]) poll(ctx context.Context) {
	_, _ = f.Refresh(ctx)
}

// Items returns the last applied list.
func (f *Feed[T]) Items() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items
}

// Err returns the error of the latest failed refresh, cleared by a success.
func (f *Feed[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Mounted reports whether the feed is mounted.
func (f *Feed[T]) Mounted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mounted
}

// Poller exposes the polling task, nil when polling is disabled.
func (f *Feed[T]) Poller() *Periodic { return f.poller }
