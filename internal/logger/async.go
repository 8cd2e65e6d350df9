package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// asyncQueue is the state shared by an AsyncHandler and its derived handlers.
type asyncQueue struct {
	ch      chan queued
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// queued pairs a record with the handler chain that must format it, so
// attributes added via With survive the hop to the worker.
type queued struct {
	h   slog.Handler
	ctx context.Context
	rec slog.Record
}

// AsyncHandler hands records to background workers through a bounded
// channel. Records are dropped, not blocked on, when the channel is full.
type AsyncHandler struct {
	inner slog.Handler
	q     *asyncQueue
}

// NewAsyncHandler creates an AsyncHandler with the given channel capacity
// and worker count.
func NewAsyncHandler(inner slog.Handler, chanSize, workers int) *AsyncHandler {
	q := &asyncQueue{ch: make(chan queued, chanSize)}
	for range workers {
		q.wg.Add(1)
		go q.drain()
	}
	return &AsyncHandler{inner: inner, q: q}
}

func (q *asyncQueue) drain() {
	defer q.wg.Done()
	for item := range q.ch {
		_ = item.h.Handle(item.ctx, item.rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record. The context is detached from cancellation
// but keeps its values for the context handler.
func (h *AsyncHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.q.mu.RLock()
	defer h.q.mu.RUnlock()
	if h.q.closed {
		h.q.dropped.Add(1)
		return nil
	}
	select {
	case h.q.ch <- queued{h: h.inner, ctx: context.WithoutCancel(ctx), rec: rec.Clone()}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler sharing the same queue.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

// WithGroup returns a handler sharing the same queue.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// DroppedCount returns the number of dropped records.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.q.dropped.Load()
}

// Close stops accepting records and waits for the workers to drain.
// Records handled after Close are counted as dropped.
func (h *AsyncHandler) Close() {
	h.q.mu.Lock()
	if !h.q.closed {
		h.q.closed = true
		close(h.q.ch)
	}
	h.q.mu.Unlock()
	h.q.wg.Wait()
}
