package batcher

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Add after Close.
var ErrClosed = errors.New("batcher: closed")

// FlushFunc receives a detached batch. The slice is owned by the callee.
type FlushFunc[T any] func(ctx context.Context, batch []T) error

// Batcher collects items and flushes them based on size or time thresholds.
// Flushes never run concurrently, so the flush function sees batches in the
// order their items were added.
type Batcher[T any] struct {
	mu       sync.Mutex
	flushMu  sync.Mutex
	buffer   []T
	maxSize  int
	interval time.Duration
	flushFn  FlushFunc[T]
	onError  func(error)
	stop     chan struct{}
	wg       sync.WaitGroup
	closed   bool

	lastError error
	flushed   int
}

// Option configures a Batcher.
type Option[T any] func(*Batcher[T])

// WithErrorHandler receives errors from timer-driven flushes.
func WithErrorHandler[T any](fn func(error)) Option[T] {
	return func(b *Batcher[T]) { b.onError = fn }
}

// New creates a batcher and starts its ticker. A non-positive maxSize or
// interval falls back to 1000 items and one second.
func New[T any](maxSize int, interval time.Duration, flushFn FlushFunc[T], opts ...Option[T]) *Batcher[T] {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if interval <= 0 {
		interval = time.Second
	}
	b := &Batcher[T]{
		maxSize:  maxSize,
		interval: interval,
		flushFn:  flushFn,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.wg.Add(1)
	go b.loop()
	return b
}

// Add queues an item. If the size threshold is met it flushes on the caller's goroutine.
func (b *Batcher[T]) Add(ctx context.Context, item T) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.buffer = append(b.buffer, item)
	full := len(b.buffer) >= b.maxSize
	b.mu.Unlock()
	if full {
		return b.Flush(ctx)
	}
	return nil
}

// Flush forces a flush of the accumulated items.
func (b *Batcher[T]) Flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	b.mu.Lock()
	batch := b.detach()
	b.mu.Unlock()
	err := b.runFlush(ctx, batch)
	b.mu.Lock()
	if err != nil {
		b.lastError = err
	} else {
		b.flushed += len(batch)
	}
	b.mu.Unlock()
	return err
}

// Close stops the ticker and flushes remaining items with ctx.
func (b *Batcher[T]) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	close(b.stop)
	b.wg.Wait()
	return b.Flush(ctx)
}

// Len is the number of buffered items.
func (b *Batcher[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}

// Flushed is the number of items handed to successful flushes.
func (b *Batcher[T]) Flushed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushed
}

// LastError returns the last flush error.
func (b *Batcher[T]) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastError
}

func (b *Batcher[T]) loop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := b.Flush(context.Background()); err != nil && b.onError != nil {
				b.onError(err)
			}
		case <-b.stop:
			return
		}
	}
}

func (b *Batcher[T]) detach() []T {
	if len(b.buffer) == 0 {
		return nil
	}
	batch := make([]T, len(b.buffer))
	copy(batch, b.buffer)
	b.buffer = b.buffer[:0]
	return batch
}

func (b *Batcher[T]) runFlush(ctx context.Context, batch []T) error {
	if len(batch) == 0 {
		return nil
	}
	if b.flushFn == nil {
		return errors.New("batcher: no flush function configured")
	}
	return b.flushFn(ctx, batch)
}
