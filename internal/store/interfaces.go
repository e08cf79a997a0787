package store

import (
	"context"
	"errors"

	"knittex.app/boardroom/internal/model"
)

var (
	// ErrNotFound is returned when a requested entity does not exist
	ErrNotFound = errors.New("not found")

	ErrUnknownCounterpart = errors.New("unknown counterpart")
	ErrInvalidNoteSource  = errors.New("message cannot be saved as a note")
)

// ConversationStore holds one ordered message sequence per counterpart.
type ConversationStore interface {
	// Load replaces in-memory state with the persisted record.
	Load(ctx context.Context) error
	Append(ctx context.Context, c model.Counterpart, msg model.Message) error
	Clear(ctx context.Context, c model.Counterpart) error
	Get(c model.Counterpart) []model.Message
	Snapshot() map[model.Counterpart][]model.Message
}

// NoteStore holds saved notes, newest first.
type NoteStore interface {
	Load(ctx context.Context) error
	Add(ctx context.Context, note model.Note) error
	// Remove returns ErrNotFound when no note has the id.
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Get() []model.Note
}
