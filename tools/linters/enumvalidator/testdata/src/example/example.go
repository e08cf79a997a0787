package example

type Counterpart string

const (
	CounterpartMeetingRoom Counterpart = "MEETING_ROOM"
	CounterpartLabManager  Counterpart = "LAB_SENIOR_MANAGER"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Label has no constants, so it is not an enum.
type Label string

type Message struct {
	Role    Role
	Speaker Counterpart
	Label   Label
	Content string
}

func bad() {
	m := &Message{}
	m.Speaker = "CEO" // want "enum field Speaker assigned string literal"
	m.Role = ("model") // want "enum field Role assigned string literal"

	_ = Message{Role: "assistant"} // want "enum field Role assigned string literal"
	_ = &Message{Speaker: "LAB_SENIOR_MANAGER", Content: "ok"} // want "enum field Speaker assigned string literal"
}

func good() {
	m := &Message{}
	m.Speaker = CounterpartLabManager // OK: using constant
	m.Role = RoleAssistant

	m.Content = "free text" // OK: plain string field
	m.Label = "anything"    // OK: no constants declared
}

func alsoGood() {
	// OK: Variable, not literal
	speaker := CounterpartMeetingRoom
	m := &Message{Role: RoleUser, Speaker: speaker}
	_ = m
}
