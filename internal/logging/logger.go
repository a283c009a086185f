// Package logging is the structured logger shared by the vault's services,
// trackers and CLI, backed by log/slog.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "tracking started", "mode", "foreground", "consent_id", id)
type Logger interface {
	// Debug logs verbose diagnostics (individual fixes, skipped sessions).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs lifecycle events: tracking started, sync finished, consent changed.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs failures the vault recovers from, such as a dropped point.
	Warn(ctx context.Context, msg string, args ...any)

	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
