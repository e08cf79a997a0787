package llm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// GenerateSchema reflects T into a closed JSON schema with no $refs.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// itemSchema strips the document-level fields so the schema can be nested.
func itemSchema(s *jsonschema.Schema) *jsonschema.Schema {
	items := *s
	items.Version = ""
	items.ID = ""
	return &items
}

func Temp(t float64) *float64 {
	return &t
}

// IsRetryable reports whether a Generate error is worth another attempt.
func IsRetryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.DebugContext(ctx, "llm error not retryable: context cancelled or deadline exceeded")
		return false
	}

	status := 0
	var openaiErr *openai.Error
	var geminiErr *genai.APIError
	switch {
	case errors.As(err, &openaiErr):
		status = openaiErr.StatusCode
	case errors.As(err, &geminiErr):
		status = geminiErr.Code
	default:
		// Network errors (no API response) are generally retryable
		slog.WarnContext(ctx, "llm network error, will retry", "error", err)
		return true
	}

	switch {
	case status == 429:
		slog.WarnContext(ctx, "llm rate limited, will retry", "status_code", status)
		return true
	case status >= 500:
		slog.WarnContext(ctx, "llm server error, will retry", "status_code", status)
		return true
	default:
		slog.ErrorContext(ctx, "llm client error, not retryable", "status_code", status)
		return false
	}
}
