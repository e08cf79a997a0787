package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"knittex.app/boardroom/internal/kv"
	"knittex.app/boardroom/internal/model"
	"knittex.app/boardroom/internal/prompt"
)

// KVNoteStore persists notes, newest first, as a single record.
type KVNoteStore struct {
	kv    kv.Store
	key   string
	notes []model.Note
}

func NewNoteStore(store kv.Store, namespace string) *KVNoteStore {
	return &KVNoteStore{
		kv:  store,
		key: kv.Key(namespace, kv.RecordNotes),
	}
}

// Load drops individual malformed notes and treats a corrupt record as empty.
func (s *KVNoteStore) Load(ctx context.Context) error {
	s.notes = nil

	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("loading notes: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		slog.WarnContext(ctx, "notes record is corrupt, starting empty",
			"key", s.key,
			"error", err)
		return nil
	}

	for i, entry := range entries {
		var note model.Note
		if err := json.Unmarshal(entry, &note); err != nil || note.ID == "" {
			slog.WarnContext(ctx, "dropping malformed note",
				"index", i,
				"error", err)
			continue
		}
		s.notes = append(s.notes, note)
	}

	return nil
}

// Add prepends note.
func (s *KVNoteStore) Add(ctx context.Context, note model.Note) error {
	s.notes = slices.Insert(s.notes, 0, note)
	return s.persist(ctx)
}

func (s *KVNoteStore) Remove(ctx context.Context, id string) error {
	i := slices.IndexFunc(s.notes, func(n model.Note) bool { return n.ID == id })
	if i < 0 {
		return ErrNotFound
	}

	s.notes = slices.Delete(s.notes, i, i+1)
	return s.persist(ctx)
}

func (s *KVNoteStore) Clear(ctx context.Context) error {
	s.notes = nil
	return s.persist(ctx)
}

func (s *KVNoteStore) Get() []model.Note {
	return slices.Clone(s.notes)
}

func (s *KVNoteStore) persist(ctx context.Context) error {
	notes := s.notes
	if notes == nil {
		notes = []model.Note{}
	}

	payload, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("encoding notes: %w", err)
	}

	if err := s.kv.Set(ctx, s.key, string(payload)); err != nil {
		slog.ErrorContext(ctx, "failed to persist notes",
			"key", s.key,
			"error", err)
		return fmt.Errorf("persisting notes: %w", err)
	}
	return nil
}

// NewNote builds a note from the assistant message at index. The question is
// the nearest user message before it.
func NewNote(messages []model.Message, index int, now time.Time, newID func() string) (model.Note, error) {
	if index < 0 || index >= len(messages) {
		return model.Note{}, fmt.Errorf("%w: index %d out of range", ErrInvalidNoteSource, index)
	}

	answer := messages[index]
	if answer.Role != model.RoleAssistant {
		return model.Note{}, fmt.Errorf("%w: message %d is not a manager reply", ErrInvalidNoteSource, index)
	}

	question := ""
	for i := index - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			question = messages[i].Content
			break
		}
	}
	if question == "" {
		question = prompt.NoteQuestionFallback
	}

	managerName := prompt.NoteManagerFallback
	if m, ok := model.LookupManager(answer.Speaker); ok {
		managerName = m.Name
	}

	return model.Note{
		ID:          newID(),
		Question:    question,
		Answer:      answer.Content,
		ManagerName: managerName,
		Timestamp:   now,
	}, nil
}
