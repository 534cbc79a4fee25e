package domain

import "context"

// Logger is the structured logger used across the service.
// Fields are passed as alternating key/value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)

	// With returns a child logger that always carries the given fields
	With(fields ...any) Logger
}
