package logging

import (
	"context"
	"io"
	"log/slog"
)

type loggerContextKey struct{}

// WithLogger returns a context carrying the given logger. The request
// middleware attaches a logger annotated with the request id so that
// service-layer lines correlate with the access log.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerContextKey{}, ensureLogger(logger))
}

// FromContext returns the request-scoped logger, or the fallback when the
// context carries none. A nil fallback yields a discard logger rather
// than a panic, which keeps logging usable from tests and startup code.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return ensureLogger(fallback)
}

func ensureLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
