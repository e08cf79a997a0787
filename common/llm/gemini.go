package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/invopop/jsonschema"
	"google.golang.org/genai"
)

type geminiClient struct {
	client *genai.Client
	model  string
}

func newGeminiClient(ctx context.Context, cfg Config) (Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-3-flash-preview"
	}

	return &geminiClient{client: client, model: model}, nil
}

func (c *geminiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	model := modelFor(req, c.model)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
		ResponseMIMEType:  "text/plain",
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		cfg.Temperature = &temp
	}
	if req.ListSchema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = &genai.Schema{
			Type:  genai.TypeArray,
			Items: toGenaiSchema(req.ListSchema),
		}
	}

	start := time.Now()
	res, err := c.client.Models.GenerateContent(ctx, model, c.convertMessages(req.Messages), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	resp := &Response{Text: res.Text(), Model: model}
	if res.UsageMetadata != nil {
		resp.PromptTokens = int(res.UsageMetadata.PromptTokenCount)
		resp.CompletionTokens = int(res.UsageMetadata.CandidatesTokenCount)
	}

	slog.DebugContext(ctx, "gemini generate completed",
		"model", model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens)

	if resp.Text == "" {
		slog.WarnContext(ctx, "gemini returned empty text", "model", model)
	}

	return resp, nil
}

func (c *geminiClient) Model() string {
	return c.model
}

func (c *geminiClient) convertMessages(msgs []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))

	for _, m := range msgs {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}

		parts := []*genai.Part{genai.NewPartFromText(m.Content)}
		if m.Image != nil && m.Role == RoleUser {
			parts = append(parts, genai.NewPartFromBytes(m.Image.Data, m.Image.MIMEType))
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}

	return contents
}

// toGenaiSchema converts the subset of JSON schema that reply schemas use.
func toGenaiSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
	}

	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	}

	if s.Items != nil {
		out.Items = toGenaiSchema(s.Items)
	}

	if s.Properties != nil {
		out.Properties = make(map[string]*genai.Schema, s.Properties.Len())
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			out.Properties[pair.Key] = toGenaiSchema(pair.Value)
			out.PropertyOrdering = append(out.PropertyOrdering, pair.Key)
		}
	}

	return out
}
