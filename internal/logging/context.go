package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldManifestID is the standardized key for manifest identifiers.
	FieldManifestID = "manifest_id"
	// FieldVolumeID is the standardized key for volume identifiers.
	FieldVolumeID = "volume_id"
	// FieldOperator is the standardized key for the operator running a session.
	FieldOperator = "operator"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey int

const (
	manifestIDKey contextKey = iota
	operatorKey
)

// WithManifestID tags ctx with the manifest being worked on.
func WithManifestID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, manifestIDKey, id)
}

// WithOperator tags ctx with the operator running the session.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey, strings.TrimSpace(operator))
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ctx.Value(manifestIDKey).(int64); ok && id > 0 {
		fields = append(fields, slog.Int64(FieldManifestID, id))
	}
	if operator, ok := ctx.Value(operatorKey).(string); ok && operator != "" {
		fields = append(fields, slog.String(FieldOperator, operator))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
