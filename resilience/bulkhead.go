package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Common bulkhead errors.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies the isolated dependency for metrics/logging.
	Name string
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int
	// MaxWait is how long to wait for a slot. 0 means fail immediately.
	MaxWait time.Duration
	// OnReject is called when a request is rejected.
	OnReject func(name string)
}

// DefaultBulkheadConfig returns sensible defaults.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{
		Name:          name,
		MaxConcurrent: 10,
		MaxWait:       0,
	}
}

// BulkheadStats is a snapshot of bulkhead usage for capacity planning.
type BulkheadStats struct {
	MaxConcurrent int
	InUse         int
	Available     int
	Rejected      uint64
	Completed     uint64
	Failed        uint64
}

// Bulkhead bounds the number of concurrent in-flight calls against one
// dependency so that a slow dependency cannot exhaust shared resources.
//
// The slot is released on every exit path: success, failure, panic, and
// caller cancellation. A leaked slot would permanently reduce capacity.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}

	rejected  atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Execute runs fn within the bulkhead. It returns ErrBulkheadFull or
// ErrBulkheadTimeout without invoking fn when no slot is available, and
// ctx.Err() if the caller cancels while waiting.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		if errors.Is(err, ErrBulkheadFull) || errors.Is(err, ErrBulkheadTimeout) {
			b.rejected.Add(1)
			if b.config.OnReject != nil {
				b.config.OnReject(b.config.Name)
			}
		}
		return err
	}
	defer b.release()

	if err := fn(); err != nil {
		b.failed.Add(1)
		return err
	}
	b.completed.Add(1)
	return nil
}

// ExecuteWithResult runs a function that returns a value.
func ExecuteWithResult[T any](ctx context.Context, b *Bulkhead, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

// acquire tries to take a slot, waiting up to MaxWait if configured.
func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) release() {
	<-b.sem
}

// InUse returns the number of slots currently held.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// Available returns the number of free slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}

// MaxConcurrent returns the configured concurrency cap.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}

// Stats returns a snapshot of usage counters.
func (b *Bulkhead) Stats() BulkheadStats {
	inUse := len(b.sem)
	return BulkheadStats{
		MaxConcurrent: b.config.MaxConcurrent,
		InUse:         inUse,
		Available:     b.config.MaxConcurrent - inUse,
		Rejected:      b.rejected.Load(),
		Completed:     b.completed.Load(),
		Failed:        b.failed.Load(),
	}
}
