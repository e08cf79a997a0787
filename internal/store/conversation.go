package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"knittex.app/boardroom/internal/kv"
	"knittex.app/boardroom/internal/model"
)

// KVConversationStore persists every conversation as a single record,
// rewritten in full after each mutation.
type KVConversationStore struct {
	kv       kv.Store
	key      string
	sessions map[model.Counterpart][]model.Message
}

func NewConversationStore(store kv.Store, namespace string) *KVConversationStore {
	return &KVConversationStore{
		kv:       store,
		key:      kv.Key(namespace, kv.RecordConversations),
		sessions: emptySessions(),
	}
}

func emptySessions() map[model.Counterpart][]model.Message {
	sessions := make(map[model.Counterpart][]model.Message, len(model.Counterparts()))
	for _, c := range model.Counterparts() {
		sessions[c] = nil
	}
	return sessions
}

// Load reconciles the persisted record against the known counterparts.
// Each counterpart decodes on its own: a malformed entry resets only that
// conversation. Unknown keys are ignored.
func (s *KVConversationStore) Load(ctx context.Context) error {
	s.sessions = emptySessions()

	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("loading conversations: %w", err)
	}

	var record map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		slog.WarnContext(ctx, "conversation record is corrupt, starting empty",
			"key", s.key,
			"error", err)
		return nil
	}

	for _, c := range model.Counterparts() {
		value, ok := record[string(c)]
		if !ok {
			continue
		}

		var messages []model.Message
		if err := json.Unmarshal(value, &messages); err != nil {
			slog.WarnContext(ctx, "conversation is corrupt, resetting",
				"counterpart", c,
				"error", err)
			continue
		}
		if len(messages) > 0 {
			s.sessions[c] = messages
		}
	}

	for key := range record {
		if _, ok := s.sessions[model.Counterpart(key)]; !ok {
			slog.DebugContext(ctx, "ignoring unknown conversation key", "key", key)
		}
	}

	return nil
}

// Append adds msg to the end of the conversation and persists. The in-memory
// append stands even when persisting fails.
func (s *KVConversationStore) Append(ctx context.Context, c model.Counterpart, msg model.Message) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCounterpart, c)
	}

	s.sessions[c] = append(s.sessions[c], msg)
	return s.persist(ctx)
}

func (s *KVConversationStore) Clear(ctx context.Context, c model.Counterpart) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCounterpart, c)
	}

	s.sessions[c] = nil
	return s.persist(ctx)
}

// Get returns a copy of the conversation with c.
func (s *KVConversationStore) Get(c model.Counterpart) []model.Message {
	return slices.Clone(s.sessions[c])
}

func (s *KVConversationStore) Snapshot() map[model.Counterpart][]model.Message {
	out := maps.Clone(s.sessions)
	for c, messages := range out {
		out[c] = slices.Clone(messages)
	}
	return out
}

func (s *KVConversationStore) persist(ctx context.Context) error {
	record := make(map[model.Counterpart][]model.Message, len(s.sessions))
	for c, messages := range s.sessions {
		if messages == nil {
			messages = []model.Message{}
		}
		record[c] = messages
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding conversations: %w", err)
	}

	if err := s.kv.Set(ctx, s.key, string(payload)); err != nil {
		slog.ErrorContext(ctx, "failed to persist conversations",
			"key", s.key,
			"error", err)
		return fmt.Errorf("persisting conversations: %w", err)
	}
	return nil
}
