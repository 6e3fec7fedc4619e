package resilience

import (
	"context"
	"errors"
	"time"
)

var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig caps concurrent calls, e.g. ffmpeg processes.
type BulkheadConfig struct {
	Name          string
	MaxConcurrent int
	// MaxWait is how long a call may queue for a slot. Zero rejects at
	// once; negative waits for as long as the caller's context allows.
	MaxWait time.Duration
}

// Bulkhead is a counting semaphore.
type Bulkhead struct {
	cfg   BulkheadConfig
	slots chan struct{}
}

// NewBulkhead builds a bulkhead; MaxConcurrent defaults to 4.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	return &Bulkhead{cfg: cfg, slots: make(chan struct{}, cfg.MaxConcurrent)}
}

// Execute runs fn while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer func() { <-b.slots }()
	return fn()
}

// InUse reports how many slots are held.
func (b *Bulkhead) InUse() int { return len(b.slots) }

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	default:
	}
	if b.cfg.MaxWait == 0 {
		return ErrBulkheadFull
	}
	var expired <-chan time.Time
	if b.cfg.MaxWait > 0 {
		t := time.NewTimer(b.cfg.MaxWait)
		defer t.Stop()
		expired = t.C
	}
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-expired:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
