package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"knittex.app/boardroom/common/llm"
	"knittex.app/boardroom/common/logger"
	"knittex.app/boardroom/internal/directive"
	"knittex.app/boardroom/internal/model"
	"knittex.app/boardroom/internal/prompt"
)

const (
	DefaultSingleModel   = "gemini-3-flash-preview"
	DefaultGroupModel    = "gemini-3-pro-preview"
	DefaultHistoryWindow = 15

	temperature = 0.8
	maxAttempts = 2
)

type mode int

const (
	modeSingle mode = iota
	modeGroup
)

func (m mode) String() string {
	switch m {
	case modeSingle:
		return "single"
	case modeGroup:
		return "group"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func modeFor(c model.Counterpart) mode {
	if c.IsGroup() {
		return modeGroup
	}
	return modeSingle
}

// groupReply is one manager's contribution to a meeting-room answer.
type groupReply struct {
	ManagerID string `json:"managerId" jsonschema:"description=Id of the manager speaking"`
	Text      string `json:"text" jsonschema:"description=What the manager says"`
}

var groupReplySchema = llm.GenerateSchema[groupReply]()

type OrchestratorConfig struct {
	SingleModel   string
	GroupModel    string
	HistoryWindow int
	Timeout       time.Duration
	ExpertMode    bool
}

type Request struct {
	Counterpart model.Counterpart
	History     []model.Message // excludes the new user turn
	UserText    string
	Language    model.Language
	Image       *model.InlineImage
}

// Orchestrator turns a user turn into attributed reply units.
type Orchestrator struct {
	cfg    OrchestratorConfig
	client llm.Client
}

// NewOrchestrator accepts a nil client; every reply is then the
// missing-credential notice.
func NewOrchestrator(cfg OrchestratorConfig, client llm.Client) *Orchestrator {
	if cfg.SingleModel == "" {
		cfg.SingleModel = DefaultSingleModel
	}
	if cfg.GroupModel == "" {
		cfg.GroupModel = DefaultGroupModel
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}

	slog.InfoContext(context.Background(), "orchestrator initialized",
		"single_model", cfg.SingleModel,
		"group_model", cfg.GroupModel,
		"history_window", cfg.HistoryWindow,
		"credential", client != nil)

	return &Orchestrator{cfg: cfg, client: client}
}

// Respond never fails: errors and panics become a single fallback unit.
func (o *Orchestrator) Respond(ctx context.Context, req Request) (units []model.ReplyUnit) {
	m := modeFor(req.Counterpart)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Counterpart: logger.Ptr(string(req.Counterpart)),
		Language:    logger.Ptr(string(req.Language)),
		Component:   "boardroom.brain.orchestrator",
	})

	sc := logger.StartSpan(ctx, "brain.respond",
		attribute.String("counterpart", string(req.Counterpart)),
		attribute.String("language", string(req.Language)),
		attribute.String("mode", m.String()))
	ctx = sc.Context()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in respond", "panic", r)
			sc.RecordError(fmt.Errorf("panic: %v", r))
			units = fallbackUnits(req)
		}
		sc.SetAttributes(attribute.Int("units", len(units)))
		sc.End()
		slog.InfoContext(ctx, "respond completed",
			"mode", m.String(),
			"units", len(units),
			"duration_ms", time.Since(start).Milliseconds())
	}()

	if o.client == nil {
		slog.WarnContext(ctx, "no model credential configured")
		return []model.ReplyUnit{{
			Speaker: req.Counterpart,
			Text:    prompt.MissingCredential(req.Language),
		}}
	}

	llmReq := llm.Request{
		SystemPrompt: prompt.SystemInstruction(req.Counterpart, req.Language, prompt.Options{ExpertMode: o.cfg.ExpertMode}),
		Messages:     o.buildMessages(req),
		Temperature:  llm.Temp(temperature),
	}
	switch m {
	case modeSingle:
		llmReq.Model = o.cfg.SingleModel
	case modeGroup:
		llmReq.Model = o.cfg.GroupModel
		llmReq.ListSchema = groupReplySchema
		llmReq.ListName = "manager_replies"
	}

	resp, err := o.generate(ctx, llmReq)
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "model call failed, using fallback reply", "error", err)
		return fallbackUnits(req)
	}

	slog.DebugContext(ctx, "model replied",
		"model", resp.Model,
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens,
		"text", logger.Truncate(resp.Text, 200))

	switch m {
	case modeGroup:
		return groupUnits(ctx, resp.Text)
	default:
		text, attachments := directive.ParseContext(ctx, resp.Text)
		return []model.ReplyUnit{{
			Speaker:     req.Counterpart,
			Text:        text,
			Attachments: attachments,
		}}
	}
}

func (o *Orchestrator) generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := o.client.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == maxAttempts || !llm.IsRetryable(ctx, err) {
			break
		}
		slog.WarnContext(ctx, "retrying model call", "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

// buildMessages keeps the most recent window of history and appends the new
// user turn. Blank content is sent as a single space.
func (o *Orchestrator) buildMessages(req Request) []llm.Message {
	history := req.History
	if len(history) > o.cfg.HistoryWindow {
		history = history[len(history)-o.cfg.HistoryWindow:]
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, msg := range history {
		role := llm.RoleUser
		if msg.Role == model.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: nonEmpty(msg.Content)})
	}

	turn := llm.Message{Role: llm.RoleUser, Content: nonEmpty(req.UserText)}
	if req.Image != nil {
		turn.Image = &llm.Image{MIMEType: req.Image.MIMEType, Data: req.Image.Data}
	}
	return append(messages, turn)
}

// groupUnits decodes a meeting-room reply. A reply that is not a non-empty
// list becomes one unit from the default speaker.
func groupUnits(ctx context.Context, raw string) []model.ReplyUnit {
	var replies []groupReply
	if err := json.Unmarshal([]byte(raw), &replies); err != nil || len(replies) == 0 {
		slog.WarnContext(ctx, "meeting room reply is not a reply list, attributing to default speaker",
			"error", err,
			"raw", logger.Truncate(raw, 200))
		text, attachments := directive.ParseContext(ctx, raw)
		return []model.ReplyUnit{{
			Speaker:     model.DefaultGroupSpeaker,
			Text:        text,
			Attachments: attachments,
		}}
	}

	units := make([]model.ReplyUnit, 0, len(replies))
	for _, r := range replies {
		speaker, err := model.ParseCounterpart(r.ManagerID)
		if err != nil || speaker.IsGroup() {
			slog.WarnContext(ctx, "unknown manager in meeting room reply",
				"manager_id", r.ManagerID)
			speaker = model.DefaultGroupSpeaker
		}

		text, attachments := directive.ParseContext(ctx, r.Text)
		units = append(units, model.ReplyUnit{
			Speaker:     speaker,
			Text:        text,
			Attachments: attachments,
		})
	}
	return units
}

func fallbackUnits(req Request) []model.ReplyUnit {
	return []model.ReplyUnit{{
		Speaker: req.Counterpart,
		Text:    prompt.Fallback(req.Language),
	}}
}

func nonEmpty(s string) string {
	if s == "" {
		return " "
	}
	return s
}
