package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead in logs.
	Name string
	// MaxConcurrent is the number of slots.
	MaxConcurrent int
	// MaxWait is how long to wait for a slot. 0 means fail immediately.
	MaxWait time.Duration
	// OnReject is called when a caller is turned away.
	OnReject func(name string, err error)
}

// Bulkhead is a counting semaphore over long-lived work. The relay holds
// one slot per open subscriber stream.
type Bulkhead struct {
	name     string
	maxWait  time.Duration
	onReject func(string, error)
	slots    chan struct{}
}

// NewBulkhead creates a bulkhead. MaxConcurrent below 1 is raised to 1.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	n := max(config.MaxConcurrent, 1)
	return &Bulkhead{
		name:     config.Name,
		maxWait:  config.MaxWait,
		onReject: config.OnReject,
		slots:    make(chan struct{}, n),
	}
}

// Acquire takes a slot and returns the function that gives it back. The
// release function is safe to call more than once. When no slot frees up
// in time Acquire returns ErrBulkheadFull, ErrBulkheadTimeout or ctx.Err().
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	if err := b.wait(ctx); err != nil {
		if b.onReject != nil {
			b.onReject(b.name, err)
		}
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { <-b.slots }) }, nil
}

// Execute runs fn while holding a slot and returns its error.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	release, err := b.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (b *Bulkhead) wait(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	default:
	}
	if b.maxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.maxWait)
	defer timer.Stop()
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InUse returns the number of held slots.
func (b *Bulkhead) InUse() int { return len(b.slots) }

// MaxConcurrent returns the slot count.
func (b *Bulkhead) MaxConcurrent() int { return cap(b.slots) }
