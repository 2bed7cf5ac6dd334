package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases keep call sites free of a direct slog import.
type Attr = slog.Attr

func Any(key string, value any) Attr            { return slog.Any(key, value) }
func Bool(key string, value bool) Attr          { return slog.Bool(key, value) }
func Duration(key string, d time.Duration) Attr { return slog.Duration(key, d) }
func Int(key string, value int) Attr            { return slog.Int(key, value) }
func Int64(key string, value int64) Attr        { return slog.Int64(key, value) }
func String(key, value string) Attr             { return slog.String(key, value) }

// Error wraps an error for structured output. Nil errors yield an empty attr
// that handlers drop.
func Error(err error) Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Args converts attrs into the variadic any form slog methods accept.
func Args(attrs ...Attr) []any {
	out := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// NewNop returns a logger that discards every record.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NoopHandler satisfies slog.Handler while dropping all records.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NoopHandler{} }
func (NoopHandler) WithGroup(string) slog.Handler             { return NoopHandler{} }

// WithComponent tags a child logger so console output shows its origin.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	if component == "" {
		return logger
	}
	return logger.With(String(FieldComponent, component))
}
