package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "requestID"

var logger atomic.Pointer[slog.Logger]

func init() {
	// Compact console output by default; SetJSONOutput switches to JSON
	SetLevel(slog.LevelInfo)
}

// SetLevel installs the compact console handler at the given level
func SetLevel(level slog.Level) {
	SetOutput(os.Stderr, level, false)
}

// SetJSONOutput switches to JSON format output
func SetJSONOutput(level slog.Level) {
	SetOutput(os.Stderr, level, true)
}

// SetOutput installs a handler writing to w. Tests use it to capture logs.
func SetOutput(w io.Writer, level slog.Level, json bool) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = NewCompactHandler(w, opts)
	}
	logger.Store(slog.New(handler))
}

// Verbose reports whether debug output is enabled. Callers use it to skip
// building per-row diagnostics nobody will see.
func Verbose() bool {
	return logger.Load().Enabled(context.Background(), slog.LevelDebug)
}

// New returns a logger tagged with a component name, e.g. "graph.builder".
func New(component string) *slog.Logger {
	return logger.Load().With("component", component)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func withRequestID(ctx context.Context, args []any) []any {
	requestID := GetRequestID(ctx)
	if requestID != "" {
		return append([]any{"requestID", requestID}, args...)
	}
	return args
}

// Debug logs at DEBUG level (internal component behavior, per-row diagnostics)
func Debug(msg string, args ...any) {
	logger.Load().Debug(msg, args...)
}

// DebugContext logs at DEBUG level with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	logger.Load().DebugContext(ctx, msg, withRequestID(ctx, args)...)
}

// Info logs at INFO level (user-facing operations)
func Info(msg string, args ...any) {
	logger.Load().Info(msg, args...)
}

// InfoContext logs at INFO level with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	logger.Load().InfoContext(ctx, msg, withRequestID(ctx, args)...)
}

// Warn logs at WARN level (degraded results, fallbacks taken)
func Warn(msg string, args ...any) {
	logger.Load().Warn(msg, args...)
}

// WarnContext logs at WARN level with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	logger.Load().WarnContext(ctx, msg, withRequestID(ctx, args)...)
}

// Error logs at ERROR level
func Error(msg string, args ...any) {
	logger.Load().Error(msg, args...)
}

// ErrorContext logs at ERROR level with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	logger.Load().ErrorContext(ctx, msg, withRequestID(ctx, args)...)
}

// Fatal logs at ERROR level and exits
func Fatal(msg string, args ...any) {
	logger.Load().Error(msg, args...)
	os.Exit(1)
}
