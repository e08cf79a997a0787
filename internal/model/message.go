package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn. Speaker is only set on assistant turns.
type Message struct {
	Role        Role         `json:"role"`
	Speaker     Counterpart  `json:"speaker,omitempty"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

func NewUserMessage(content string, at time.Time, attachments ...Attachment) Message {
	return Message{
		Role:        RoleUser,
		Content:     content,
		Timestamp:   at,
		Attachments: normalizeAttachments(attachments),
	}
}

func NewAssistantMessage(speaker Counterpart, content string, at time.Time, attachments []Attachment) Message {
	return Message{
		Role:        RoleAssistant,
		Speaker:     speaker,
		Content:     content,
		Timestamp:   at,
		Attachments: normalizeAttachments(attachments),
	}
}

// UnmarshalJSON validates the role and drops any speaker recorded on a user turn.
func (m *Message) UnmarshalJSON(data []byte) error {
	type rawMessage Message
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Role {
	case RoleUser:
		raw.Speaker = ""
	case RoleAssistant:
		if raw.Speaker != "" && !raw.Speaker.Valid() {
			return fmt.Errorf("unknown speaker %q", raw.Speaker)
		}
	default:
		return fmt.Errorf("unknown role %q", raw.Role)
	}

	raw.Attachments = normalizeAttachments(raw.Attachments)
	*m = Message(raw)
	return nil
}

func normalizeAttachments(in []Attachment) []Attachment {
	if len(in) == 0 {
		return nil
	}
	return in
}

// ReplyUnit is one attributed, directive-parsed piece of a model response.
type ReplyUnit struct {
	Speaker     Counterpart
	Text        string
	Attachments []Attachment
}

// Note is a saved question/answer pair. Notes are never edited.
type Note struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	ManagerName string    `json:"managerName"`
	Timestamp   time.Time `json:"timestamp"`
}

// InlineImage is a user-supplied image sent to the model with a turn.
type InlineImage struct {
	MIMEType string
	Data     []byte
}
