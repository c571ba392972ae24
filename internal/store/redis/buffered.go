package redis

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"tripleconfirm/internal/model"
)

// store is the subset of Cache the breaker guards.
type store interface {
	SaveReport(ctx context.Context, rep model.Report) error
	LatestReport(ctx context.Context, symbol string) (*model.Report, error)
	PublishSignal(ctx context.Context, symbol string, v model.SignalView) error
	Close() error
}

// pendingWrite is a write held back while the circuit is open.
type pendingWrite struct {
	report *model.Report
	symbol string
	signal *model.SignalView
}

// BufferedCache wraps a Cache with a circuit breaker. While the circuit is
// open, reports and signal publications are buffered locally and replayed
// when the circuit closes again. It implements model.ReportCache.
type BufferedCache struct {
	inner store
	cb    *CircuitBreaker
	ctx   context.Context

	mu     sync.Mutex
	buffer []pendingWrite
	maxBuf int // max buffered writes before dropping oldest (default: 1000)

	// Callbacks
	OnBuffer func()          // called when a write is buffered (for metrics)
	OnFlush  func(count int) // called after flushing buffered writes
}

var _ model.ReportCache = (*BufferedCache)(nil)

// NewBufferedCache creates a BufferedCache. ctx bounds the replay of
// buffered writes.
func NewBufferedCache(ctx context.Context, c store, cb *CircuitBreaker, maxBufferSize int) *BufferedCache {
	if maxBufferSize <= 0 {
		maxBufferSize = 1000
	}
	bc := &BufferedCache{
		inner:  c,
		cb:     cb,
		ctx:    ctx,
		buffer: make([]pendingWrite, 0, 64),
		maxBuf: maxBufferSize,
	}

	// Register flush on circuit close
	prevCallback := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prevCallback != nil {
			prevCallback(from, to)
		}
		if to == StateClosed {
			go bc.flush()
		}
	}

	return bc
}

// SaveReport writes through the circuit breaker, buffering while it is open.
func (bc *BufferedCache) SaveReport(ctx context.Context, rep model.Report) error {
	err := bc.cb.Execute(ctx, func(ctx context.Context) error { return bc.inner.SaveReport(ctx, rep) })
	if errors.Is(err, ErrCircuitOpen) {
		bc.bufferWrite(pendingWrite{report: &rep})
		return nil
	}
	return err
}

// PublishSignal publishes through the circuit breaker, buffering while it
// is open.
func (bc *BufferedCache) PublishSignal(ctx context.Context, symbol string, v model.SignalView) error {
	err := bc.cb.Execute(ctx, func(ctx context.Context) error { return bc.inner.PublishSignal(ctx, symbol, v) })
	if errors.Is(err, ErrCircuitOpen) {
		bc.bufferWrite(pendingWrite{symbol: symbol, signal: &v})
		return nil
	}
	return err
}

// LatestReport reads through the circuit breaker. Reads are never buffered.
func (bc *BufferedCache) LatestReport(ctx context.Context, symbol string) (*model.Report, error) {
	var rep *model.Report
	err := bc.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		rep, err = bc.inner.LatestReport(ctx, symbol)
		return err
	})
	return rep, err
}

// Close closes the wrapped cache.
func (bc *BufferedCache) Close() error { return bc.inner.Close() }

func (bc *BufferedCache) bufferWrite(pw pendingWrite) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if len(bc.buffer) >= bc.maxBuf {
		// Buffer full: drop oldest. Copy so the dropped head does not pin
		// an ever-growing backing array.
		kept := make([]pendingWrite, len(bc.buffer)-1, bc.maxBuf)
		copy(kept, bc.buffer[1:])
		bc.buffer = kept
	}
	bc.buffer = append(bc.buffer, pw)

	if bc.OnBuffer != nil {
		bc.OnBuffer()
	}
}

// flush replays all buffered writes in order.
func (bc *BufferedCache) flush() {
	bc.mu.Lock()
	if len(bc.buffer) == 0 {
		bc.mu.Unlock()
		return
	}
	// Take ownership of the buffer
	toFlush := bc.buffer
	bc.buffer = make([]pendingWrite, 0, 64)
	bc.mu.Unlock()

	flushed := 0
	for _, pw := range toFlush {
		var err error
		if pw.report != nil {
			err = bc.inner.SaveReport(bc.ctx, *pw.report)
		} else {
			err = bc.inner.PublishSignal(bc.ctx, pw.symbol, *pw.signal)
		}
		if err != nil {
			slog.Warn("buffered redis write failed", "error", err)
			continue
		}
		flushed++
	}

	slog.Info("flushed buffered redis writes", "count", flushed, "pending", len(toFlush))
	if bc.OnFlush != nil {
		bc.OnFlush(flushed)
	}
}

// PendingCount returns the number of buffered writes waiting to be flushed.
func (bc *BufferedCache) PendingCount() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.buffer)
}
