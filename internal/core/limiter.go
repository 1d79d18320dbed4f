package core

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyLoads is returned when every load slot stays busy for the whole
// wait time. Clients should retry after a short delay.
var ErrTooManyLoads = errors.New("too many concurrent loads, please try again later")

const (
	// DefaultMaxConcurrentLoads is the default number of parallel loads.
	DefaultMaxConcurrentLoads = 4

	// DefaultLoadWaitTime is how long a load waits for a slot.
	DefaultLoadWaitTime = 10 * time.Second
)

// LoadLimiter bounds how many loads and imports decode at once. Decoding
// holds the whole input in memory, so unbounded parallel loads could
// exhaust it.
type LoadLimiter struct {
	sem     *semaphore.Weighted
	max     int
	maxWait time.Duration
	active  atomic.Int64
}

// NewLoadLimiter allows maxConcurrent loads; a caller waits at most maxWait
// for a slot. Non-positive arguments select the defaults.
func NewLoadLimiter(maxConcurrent int, maxWait time.Duration) *LoadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentLoads
	}
	if maxWait <= 0 {
		maxWait = DefaultLoadWaitTime
	}

	return &LoadLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     maxConcurrent,
		maxWait: maxWait,
	}
}

// Acquire takes a slot. It returns ctx's error if ctx ends first and
// ErrTooManyLoads if the wait times out. Call Release when done.
func (l *LoadLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyLoads
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot without waiting.
func (l *LoadLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *LoadLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of slots in use.
func (l *LoadLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *LoadLimiter) MaxConcurrent() int {
	return l.max
}

// WaitForDrain blocks until no load is running or ctx ends. The server
// calls it during shutdown.
func (l *LoadLimiter) WaitForDrain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, int64(l.max)); err != nil {
		return err
	}
	l.sem.Release(int64(l.max))
	return nil
}

// LoadLimiterStatus is a snapshot of the limiter for monitoring.
type LoadLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *LoadLimiter) Status() LoadLimiterStatus {
	active := l.ActiveCount()
	return LoadLimiterStatus{
		Active:        active,
		Available:     l.max - active,
		MaxConcurrent: l.max,
	}
}
