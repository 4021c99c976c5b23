package sink

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/you/fanharvest/internal/core"
)

// BufferedWriter batches thread payloads before handing them to the base
// writer. Write returns the previous flush error, if any, so callers see
// failures without blocking the extraction cadence.
type BufferedWriter struct {
	base          Writer
	batchSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	buffer  []core.Thread
	timer   *time.Timer
	closed  bool
	lastErr error
}

type BufferedOptions struct {
	BatchSize     int
	FlushInterval time.Duration
}

func NewBufferedWriter(base Writer, opts BufferedOptions) *BufferedWriter {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 1
	}
	return &BufferedWriter{
		base:          base,
		batchSize:     batch,
		flushInterval: opts.FlushInterval,
	}
}

func (b *BufferedWriter) WriteThread(ctx context.Context, thread core.Thread) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("buffered writer closed")
	}

	pendingErr := b.lastErr
	b.lastErr = nil

	b.buffer = append(b.buffer, thread)
	if len(b.buffer) == 1 && b.flushInterval > 0 {
		b.startTimerLocked()
	}

	if len(b.buffer) < b.batchSize {
		b.mu.Unlock()
		return pendingErr
	}

	batch := append([]core.Thread(nil), b.buffer...)
	b.buffer = b.buffer[:0]
	b.stopTimerLocked()
	b.mu.Unlock()

	if err := b.writeAll(ctx, batch); err != nil {
		return err
	}
	return pendingErr
}

func (b *BufferedWriter) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.stopTimerLocked()
	batch := append([]core.Thread(nil), b.buffer...)
	b.buffer = nil
	pendingErr := b.lastErr
	b.lastErr = nil
	b.mu.Unlock()

	if len(batch) > 0 {
		if err := b.writeAll(context.Background(), batch); err != nil {
			return err
		}
	}
	return pendingErr
}

func (b *BufferedWriter) writeAll(ctx context.Context, batch []core.Thread) error {
	for _, thread := range batch {
		if err := b.base.WriteThread(ctx, thread); err != nil {
			return err
		}
	}
	return nil
}

func (b *BufferedWriter) startTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.flushInterval, func() {
		b.mu.Lock()
		if b.closed || len(b.buffer) == 0 {
			b.mu.Unlock()
			return
		}
		batch := append([]core.Thread(nil), b.buffer...)
		b.buffer = b.buffer[:0]
		b.mu.Unlock()

		if err := b.writeAll(context.Background(), batch); err != nil {
			b.mu.Lock()
			b.lastErr = err
			b.mu.Unlock()
		}
	})
}

func (b *BufferedWriter) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
