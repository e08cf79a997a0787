package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// listEnvelopeKey wraps list replies; strict schemas need an object at the top.
const listEnvelopeKey = "replies"

type openaiClient struct {
	client openai.Client
	model  string
}

func newOpenAIClient(cfg Config) (Client, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &openaiClient{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (c *openaiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	model := modelFor(req, c.model)

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: c.convertMessages(req.SystemPrompt, req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.ListSchema != nil {
		name := req.ListName
		if name == "" {
			name = "reply_list"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        name,
					Description: openai.String("Structured response schema"),
					Schema:      listEnvelope(req),
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	slog.DebugContext(ctx, "openai chat completed",
		"model", model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	text := resp.Choices[0].Message.Content
	if req.ListSchema != nil {
		text = unwrapList(text)
	}

	return &Response{
		Text:             text,
		Model:            model,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func (c *openaiClient) Model() string {
	return c.model
}

func (c *openaiClient) convertMessages(system string, msgs []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if system != "" {
		result = append(result, openai.SystemMessage(system))
	}

	for _, msg := range msgs {
		switch msg.Role {
		case RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))

		default:
			if msg.Image == nil {
				result = append(result, openai.UserMessage(msg.Content))
				continue
			}
			dataURL := fmt.Sprintf("data:%s;base64,%s", msg.Image.MIMEType, base64.StdEncoding.EncodeToString(msg.Image.Data))
			result = append(result, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(msg.Content),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}))
		}
	}

	return result
}

func listEnvelope(req Request) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			listEnvelopeKey: map[string]any{
				"type":  "array",
				"items": itemSchema(req.ListSchema),
			},
		},
		"required":             []string{listEnvelopeKey},
		"additionalProperties": false,
	}
}

// unwrapList returns the enveloped array, or text unchanged when it has no
// envelope so the caller's own decoding reports the problem.
func unwrapList(text string) string {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return text
	}
	list, ok := envelope[listEnvelopeKey]
	if !ok {
		return text
	}
	return string(list)
}
