package logging

import (
	"context"
	"log/slog"

	"sweeper/internal/services"
)

// Field names shared across packages so log output stays greppable.
const (
	FieldComponent     = "component"
	FieldGID           = "gid"
	FieldTitle         = "title"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts the annotation values carried on ctx as attrs.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	attrs := make([]Attr, 0, 4)
	if gid, ok := services.GIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldGID, gid))
	}
	if title, ok := services.TitleFromContext(ctx); ok {
		attrs = append(attrs, String(FieldTitle, title))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		attrs = append(attrs, String(FieldStage, stage))
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldCorrelationID, id))
	}
	return attrs
}

// WithContext returns a child logger carrying the ctx annotations as
// persistent attrs.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
