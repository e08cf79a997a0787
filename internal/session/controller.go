package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"knittex.app/boardroom/common/id"
	"knittex.app/boardroom/common/logger"
	"knittex.app/boardroom/internal/brain"
	"knittex.app/boardroom/internal/model"
	"knittex.app/boardroom/internal/prompt"
	"knittex.app/boardroom/internal/store"
)

var (
	ErrBusy       = errors.New("a reply is still pending for this conversation")
	ErrEmptyInput = errors.New("message is empty")
	ErrDeclined   = errors.New("action not confirmed")
	ErrStopped    = errors.New("session stopped")
)

const (
	DefaultReplyDelay = 800 * time.Millisecond

	eventBuffer = 256
)

// Responder produces the reply units for a user turn.
type Responder interface {
	Respond(ctx context.Context, req brain.Request) []model.ReplyUnit
}

type Config struct {
	Language   model.Language
	ReplyDelay time.Duration
	Initial    model.Counterpart

	Now   func() time.Time
	NewID func() string
}

// Controller owns both stores. Every read and mutation runs on the goroutine
// executing Run; other methods hand work to it and wait.
type Controller struct {
	cfg           Config
	conversations store.ConversationStore
	notes         store.NoteStore
	responder     Responder
	confirmer     Confirmer

	ops       chan func()
	stopCh    chan struct{}
	stoppedCh chan struct{}
	stopOnce  sync.Once

	// loop-owned
	active      model.Counterpart
	pending     map[model.Counterpart]bool
	timers      map[*time.Timer]struct{}
	subscribers []chan Event
	turn        int64
}

func New(cfg Config, conversations store.ConversationStore, notes store.NoteStore, responder Responder, confirmer Confirmer) *Controller {
	if cfg.ReplyDelay < 0 {
		cfg.ReplyDelay = 0
	}
	if !cfg.Initial.Valid() {
		cfg.Initial = model.CounterpartMeetingRoom
	}
	if cfg.Language == "" {
		cfg.Language = model.LanguageBangla
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewString
	}
	if confirmer == nil {
		confirmer = AlwaysConfirm
	}

	return &Controller{
		cfg:           cfg,
		conversations: conversations,
		notes:         notes,
		responder:     responder,
		confirmer:     confirmer,
		ops:           make(chan func(), 16),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
		active:        cfg.Initial,
		pending:       make(map[model.Counterpart]bool),
		timers:        make(map[*time.Timer]struct{}),
	}
}

// Run loads both stores and processes work until ctx ends or Stop is called.
// Load failures are logged and the session starts empty.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stoppedCh)
	defer c.stopTimers()

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "boardroom.session"})

	if err := c.conversations.Load(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to load conversations", "error", err)
	}
	if err := c.notes.Load(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to load notes", "error", err)
	}

	slog.InfoContext(ctx, "session started", "active", c.active, "language", c.cfg.Language)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			slog.InfoContext(ctx, "session stopping")
			return nil
		case op := <-c.ops:
			op()
		}
	}
}

// Stop ends Run and cancels scheduled reply deliveries. Run must have been
// started.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	<-c.stoppedCh
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.stoppedCh
}

// do runs fn on the loop and waits for it.
func (c *Controller) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}

	select {
	case c.ops <- op:
	case <-c.stoppedCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-c.stoppedCh:
		return ErrStopped
	}
}

// post queues fn without waiting. Dropped once the loop has stopped.
func (c *Controller) post(fn func()) {
	select {
	case c.ops <- fn:
	case <-c.stoppedCh:
	}
}

// Subscribe returns a channel of events. Events are dropped for a subscriber
// whose buffer is full.
func (c *Controller) Subscribe() <-chan Event {
	ch := make(chan Event, eventBuffer)
	c.post(func() { c.subscribers = append(c.subscribers, ch) })
	return ch
}

func (c *Controller) emit(ctx context.Context, ev Event) {
	for _, ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
			slog.WarnContext(ctx, "dropping session event, subscriber is behind", "kind", ev.Kind)
		}
	}
}

// Send appends the user's message to the active conversation and requests a
// reply. Replies always land in the conversation that was active here, even
// if the user switches away before they arrive.
func (c *Controller) Send(ctx context.Context, text string, image *model.InlineImage) error {
	if strings.TrimSpace(text) == "" && image == nil {
		return ErrEmptyInput
	}

	var sendErr error
	err := c.do(ctx, func() {
		target := c.active
		if c.pending[target] {
			sendErr = ErrBusy
			return
		}

		c.turn++
		turnCtx := logger.WithLogFields(context.WithoutCancel(ctx), logger.LogFields{
			Counterpart: logger.Ptr(string(target)),
			Language:    logger.Ptr(string(c.cfg.Language)),
			TurnID:      logger.Ptr(c.turn),
			Component:   "boardroom.session",
		})

		history := c.conversations.Get(target)

		var attachments []model.Attachment
		if image != nil {
			attachments = append(attachments, model.NewUploadAttachment(*image))
		}
		c.appendMessage(turnCtx, target, model.NewUserMessage(text, c.cfg.Now(), attachments...))
		c.pending[target] = true

		req := brain.Request{
			Counterpart: target,
			History:     history,
			UserText:    text,
			Language:    c.cfg.Language,
			Image:       image,
		}
		go c.respond(turnCtx, req)
	})
	if err != nil {
		return err
	}
	return sendErr
}

// respond runs off the loop; only the model call happens here.
func (c *Controller) respond(ctx context.Context, req brain.Request) {
	sc := logger.StartSpan(ctx, "session.turn", attribute.String("counterpart", string(req.Counterpart)))
	units := c.responder.Respond(sc.Context(), req)
	sc.SetAttributes(attribute.Int("units", len(units)))
	sc.End()

	c.post(func() { c.deliver(ctx, req.Counterpart, units, 0) })
}

// deliver appends units[i] and schedules the next one after ReplyDelay.
func (c *Controller) deliver(ctx context.Context, target model.Counterpart, units []model.ReplyUnit, i int) {
	if i >= len(units) {
		c.pending[target] = false
		return
	}

	u := units[i]
	c.appendMessage(ctx, target, model.NewAssistantMessage(u.Speaker, u.Text, c.cfg.Now(), u.Attachments))
	if target != c.active {
		c.emit(ctx, Event{Kind: EventReplyElsewhere, Counterpart: target})
	}

	if i+1 >= len(units) {
		c.pending[target] = false
		return
	}

	var t *time.Timer
	t = time.AfterFunc(c.cfg.ReplyDelay, func() {
		c.post(func() {
			delete(c.timers, t)
			c.deliver(ctx, target, units, i+1)
		})
	})
	c.timers[t] = struct{}{}
}

func (c *Controller) stopTimers() {
	for t := range c.timers {
		t.Stop()
	}
	clear(c.timers)
}

func (c *Controller) appendMessage(ctx context.Context, target model.Counterpart, msg model.Message) {
	if err := c.conversations.Append(ctx, target, msg); err != nil {
		slog.ErrorContext(ctx, "failed to append message", "counterpart", target, "error", err)
		if errors.Is(err, store.ErrUnknownCounterpart) {
			return
		}
	}
	index := len(c.conversations.Get(target)) - 1
	c.emit(ctx, Event{Kind: EventMessageAppended, Counterpart: target, Message: &msg, Index: index})
}

// Switch changes the active conversation. Pending replies are unaffected.
func (c *Controller) Switch(ctx context.Context, target model.Counterpart) error {
	if !target.Valid() {
		return store.ErrUnknownCounterpart
	}
	return c.do(ctx, func() { c.active = target })
}

func (c *Controller) Active(ctx context.Context) (model.Counterpart, error) {
	var active model.Counterpart
	err := c.do(ctx, func() { active = c.active })
	return active, err
}

func (c *Controller) Messages(ctx context.Context, target model.Counterpart) ([]model.Message, error) {
	var messages []model.Message
	err := c.do(ctx, func() { messages = c.conversations.Get(target) })
	return messages, err
}

func (c *Controller) Snapshot(ctx context.Context) (map[model.Counterpart][]model.Message, error) {
	var snapshot map[model.Counterpart][]model.Message
	err := c.do(ctx, func() { snapshot = c.conversations.Snapshot() })
	return snapshot, err
}

func (c *Controller) Notes(ctx context.Context) ([]model.Note, error) {
	var notes []model.Note
	err := c.do(ctx, func() { notes = c.notes.Get() })
	return notes, err
}

func (c *Controller) Pending(ctx context.Context, target model.Counterpart) (bool, error) {
	var pending bool
	err := c.do(ctx, func() { pending = c.pending[target] })
	return pending, err
}

func (c *Controller) Language() model.Language {
	return c.cfg.Language
}

// SaveNote saves the assistant message at index in the active conversation.
func (c *Controller) SaveNote(ctx context.Context, index int) (model.Note, error) {
	var (
		note    model.Note
		saveErr error
	)
	err := c.do(ctx, func() {
		note, saveErr = store.NewNote(c.conversations.Get(c.active), index, c.cfg.Now(), c.cfg.NewID)
		if saveErr != nil {
			return
		}
		saveErr = c.notes.Add(ctx, note)
		c.emit(ctx, Event{Kind: EventNotesChanged})
	})
	if err != nil {
		return model.Note{}, err
	}
	return note, saveErr
}

func (c *Controller) DeleteNote(ctx context.Context, noteID string) error {
	if !c.confirmer.Confirm(ctx, prompt.ConfirmDeleteNote) {
		return ErrDeclined
	}

	var deleteErr error
	err := c.do(ctx, func() {
		deleteErr = c.notes.Remove(ctx, noteID)
		if errors.Is(deleteErr, store.ErrNotFound) {
			return
		}
		c.emit(ctx, Event{Kind: EventNotesChanged})
	})
	if err != nil {
		return err
	}
	return deleteErr
}

func (c *Controller) ClearNotes(ctx context.Context) error {
	if !c.confirmer.Confirm(ctx, prompt.ConfirmClearNotes) {
		return ErrDeclined
	}

	var clearErr error
	err := c.do(ctx, func() {
		clearErr = c.notes.Clear(ctx)
		c.emit(ctx, Event{Kind: EventNotesChanged})
	})
	if err != nil {
		return err
	}
	return clearErr
}

// ClearConversation empties the active conversation.
func (c *Controller) ClearConversation(ctx context.Context) error {
	if !c.confirmer.Confirm(ctx, prompt.ConfirmClearConversation) {
		return ErrDeclined
	}

	var clearErr error
	err := c.do(ctx, func() {
		target := c.active
		clearErr = c.conversations.Clear(ctx, target)
		c.emit(ctx, Event{Kind: EventConversationCleared, Counterpart: target})
	})
	if err != nil {
		return err
	}
	return clearErr
}
