package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields added to every log record emitted with the context.
type LogFields struct {
	Counterpart *string // Counterpart the turn is addressed to
	Language    *string // Reply language ("bn", "en")
	TurnID      *int64  // Session turn that triggered the work
	Component   string  // Component name, e.g. "boardroom.brain.orchestrator"
}

// WithLogFields enriches context with structured log fields.
// Newer non-nil/non-empty values win over existing ones.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.Counterpart != nil {
		result.Counterpart = next.Counterpart
	}
	if next.Language != nil {
		result.Language = next.Language
	}
	if next.TurnID != nil {
		result.TurnID = next.TurnID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr returns a pointer to v, for inline LogFields literals.
func Ptr[T any](v T) *T {
	return &v
}

// Truncate shortens s to maxLen bytes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
