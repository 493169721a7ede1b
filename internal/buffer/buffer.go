// Package buffer implements the in-memory staging buffer that decouples
// request acceptance from database round-trips.
package buffer

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Sink persists one detached batch. It is called without any buffer lock
// held.
type Sink[T any] func(ctx context.Context, batch []T) error

// Buffer accumulates records and hands them to its sink in batches. A flush
// happens when the buffer reaches flushSize or when the owner calls Flush on
// its timer, whichever comes first.
type Buffer[T any] struct {
	name      string
	flushSize int
	sink      Sink[T]
	logger    *zap.Logger

	mu          sync.Mutex
	items       []T
	sizePending bool
}

// New returns a buffer for one device class.
func New[T any](name string, flushSize int, sink Sink[T], logger *zap.Logger) *Buffer[T] {
	return &Buffer[T]{
		name:      name,
		flushSize: flushSize,
		sink:      sink,
		logger:    logger,
	}
}

// Push appends a record. Crossing the size threshold schedules at most one
// size-triggered flush; further accumulation waits for the next trigger.
func (b *Buffer[T]) Push(item T) {
	b.mu.Lock()
	b.items = append(b.items, item)
	trigger := len(b.items) >= b.flushSize && !b.sizePending
	if trigger {
		b.sizePending = true
	}
	b.mu.Unlock()

	if trigger {
		go func() {
			if err := b.Flush(context.Background()); err != nil {
				b.logger.Error("size-triggered flush failed", zap.String("buffer", b.name), zap.Error(err))
			}
		}()
	}
}

// Flush atomically swaps in an empty buffer and hands the detached batch to
// the sink. Concurrent pushes land either in the detached batch or in the
// fresh buffer. On sink failure the whole batch is re-queued in front of
// anything pushed meanwhile, to be retried on the next trigger.
func (b *Buffer[T]) Flush(ctx context.Context) error {
	b.mu.Lock()
	batch := b.items
	b.items = nil
	b.sizePending = false
	b.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := b.sink(ctx, batch); err != nil {
		b.mu.Lock()
		b.items = append(batch, b.items...)
		b.mu.Unlock()
		return fmt.Errorf("buffer %s: flush of %d records: %w", b.name, len(batch), err)
	}
	return nil
}

// Depth reports the number of staged records. Sustained growth means the
// database cannot keep up.
func (b *Buffer[T]) Depth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
