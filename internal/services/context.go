package services

import "context"

type contextKey string

const (
	gidKey       contextKey = "gid"
	titleKey     contextKey = "title"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithGID annotates context with the download identifier.
func WithGID(ctx context.Context, gid string) context.Context {
	if gid == "" {
		return ctx
	}
	return context.WithValue(ctx, gidKey, gid)
}

// GIDFromContext extracts the download identifier if present.
func GIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(gidKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithTitle annotates context with the logical download title.
func WithTitle(ctx context.Context, title string) context.Context {
	if title == "" {
		return ctx
	}
	return context.WithValue(ctx, titleKey, title)
}

// TitleFromContext returns the logical title if present.
func TitleFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(titleKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the processing stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
