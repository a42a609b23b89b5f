// Package logging defines the minimal structured-logging interface used by
// the backend. The only implementation wraps log/slog, but handlers and
// services depend on the interface so tests can swap it out.
package logging

import "context"

// Logger is a context-aware, structured logger. The variadic args are
// interpreted as key-value pairs:
//
//	log.Info(ctx, "server started", "addr", addr)
type Logger interface {
	// Debug logs developer-level detail, usually disabled in release mode.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
