// Package logger provides structured logging setup for a2agate.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Strob0t/a2agate/internal/config"
)

// Async handler sizing used when Logging.Async is set.
const (
	asyncBuffer  = 4096
	asyncWorkers = 2
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// New creates a *slog.Logger from the given Logging config.
// Output is JSON to stdout with a "service" attribute on every record.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg config.Logging, w io.Writer) (*slog.Logger, Closer) {
	var h slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	h = &contextHandler{inner: h}

	var closer Closer = nopCloser{}
	if cfg.Async {
		ah := NewAsyncHandler(h, asyncBuffer, asyncWorkers)
		h, closer = ah, ah
	}

	return slog.New(h).With("service", cfg.Service), closer
}

// contextHandler copies request and correlation IDs from the record's
// context onto the record.
type contextHandler struct {
	inner slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if id := RequestID(ctx); id != "" {
		rec.AddAttrs(slog.String("request_id", id))
	}
	return h.inner.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{inner: h.inner.WithGroup(name)}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
