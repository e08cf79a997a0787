package llm

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Provider constants for LLM provider selection.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Client generates one reply for a conversation.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// Config holds LLM client configuration.
type Config struct {
	Provider string // "gemini" or "openai"
	APIKey   string // Required: API key for the provider
	BaseURL  string // Optional: custom API endpoint
	Model    string // Default model when a request names none
}

type Request struct {
	Model        string // overrides Config.Model when set
	SystemPrompt string
	Messages     []Message
	Temperature  *float64 // nil = model default

	// ListSchema, when set, constrains the reply to a JSON array whose items
	// match the schema. Response.Text is always the bare array.
	ListSchema *jsonschema.Schema
	ListName   string
}

// Message represents a conversation message.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
	Image   *Image // user messages only
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Image is inline image data sent alongside a user message.
type Image struct {
	MIMEType string
	Data     []byte
}

type Response struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// New selects the provider named in cfg. Defaults to Gemini.
func New(ctx context.Context, cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderGemini
	}

	switch provider {
	case ProviderGemini:
		return newGeminiClient(ctx, cfg)
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

func modelFor(req Request, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	return fallback
}
