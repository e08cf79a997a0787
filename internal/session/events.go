package session

import (
	"context"

	"knittex.app/boardroom/internal/model"
)

type EventKind string

const (
	EventMessageAppended     EventKind = "message_appended"
	EventConversationCleared EventKind = "conversation_cleared"
	EventNotesChanged        EventKind = "notes_changed"
	// EventReplyElsewhere follows a message_appended for a counterpart that
	// is not the active one.
	EventReplyElsewhere EventKind = "reply_elsewhere"
)

// Event tells a renderer what changed. Message and Index are set for
// message_appended; Index is the message's position in its conversation.
type Event struct {
	Kind        EventKind
	Counterpart model.Counterpart
	Message     *model.Message
	Index       int
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, question string) bool
}

type ConfirmFunc func(ctx context.Context, question string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, question string) bool {
	return f(ctx, question)
}

// AlwaysConfirm approves everything.
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) bool { return true })
