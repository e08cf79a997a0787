// Package prompt holds the instructions and canned texts sent to, or shown
// instead of, the language model.
package prompt

import (
	"fmt"
	"strings"

	"knittex.app/boardroom/internal/model"
)

const (
	// NoteQuestionFallback labels a note saved without any preceding user turn.
	NoteQuestionFallback = "Management Update"
	// NoteManagerFallback names the author of a note whose speaker is unknown.
	NoteManagerFallback = "Senior Manager"
)

const meetingRoomTemplate = `
You are the Management Team of a Bangladeshi Knit Textile Organization.
When the user speaks, multiple managers should respond to simulate a meeting.

RULES:
1. Language: %s.
2. Response Format: You MUST return a JSON array of responses.
   [
     {"managerId": "SENIOR_DYEING_MANAGER", "text": "..."},
     {"managerId": "LAB_SENIOR_MANAGER", "text": "..."}
   ]
3. Content:
   - Identify which manager is the primary person to answer the user's specific query.
   - Then, 1 or 2 other managers should "share their opinion" or "ask a follow-up question" from their perspective.
4. Available Manager IDs: %s.

Stay professional and technical.
`

const managerTemplate = `
You are a Virtual Knit Textile Industry Dashboard representing a real-life Bangladeshi knit textile manufacturing organization.
Your role is to act as a specific senior-level manager. You respond exactly as a highly experienced Bangladeshi professional with practical factory-floor knowledge.

GLOBAL RULES:
1. Language: Respond %s. Use industry technical terms naturally.
2. Tone: Confident, practical manager. Highly technical but professional.
3. Visualization:
   - [VISUAL_DATA: {"type": "bar" | "line", "title": "Title", "labels": ["Jan", ...], "datasets": [{"label": "Name", "values": [10, ...]}] }]
   - [VISUAL_REF: {"keyword": "lab dip" | "spectrophotometer" | "dye lab" | "fabric testing"}]

MANAGER CONTEXT:
%s
`

const expertClause = `
EXPERT MODE:
Give advanced technical insights: process parameters, recipe percentages, machine settings and the standards they relate to.
`

var managerContext = map[model.Counterpart]string{
	model.CounterpartDyeingManager: `Manager: Senior Dyeing Manager (Mr. Abdur Rahman). Expert in shade, reactive dyeing, chemicals.
Focus on shade matching and bulk transfer.`,
	model.CounterpartFinishingManager: `Manager: Senior Finishing Manager (Mr. Kamal Uddin). Expert in GSM, shrinkage, stenter settings.`,
	model.CounterpartLabManager: `Manager: Lab Senior Manager (Mr. Sharif Ahmed).
Expertise: Color Matching (Lab Dip), Spectrophotometer, Delta E, CMC settings.`,
	model.CounterpartKnittingManager: `Manager: Senior Knitting Manager (Mr. Zakir Hossain). Expert in circular knitting and yarn.`,
	model.CounterpartQAHead:          `Manager: QA Head (Ms. Nasrin Akhter). Expert in AQL and buyer compliance.`,
	model.CounterpartPlanningManager: `Manager: Production Planning Manager (Mr. Monirul Islam). Expert in T&A and efficiency.`,
}

// Options tweak the instruction beyond counterpart and language.
type Options struct {
	ExpertMode bool
}

// SystemInstruction builds the system prompt for a counterpart.
func SystemInstruction(c model.Counterpart, lang model.Language, opts Options) string {
	var b strings.Builder
	if c.IsGroup() {
		ids := make([]string, 0, len(model.Managers()))
		for _, m := range model.Managers() {
			ids = append(ids, string(m))
		}
		fmt.Fprintf(&b, meetingRoomTemplate, languageRule(lang), strings.Join(ids, ", "))
	} else {
		fmt.Fprintf(&b, managerTemplate, languageRule(lang), managerContext[c])
	}
	if opts.ExpertMode {
		b.WriteString(expertClause)
	}
	return b.String()
}

func languageRule(lang model.Language) string {
	if lang == model.LanguageBangla {
		return "ONLY in Bangla (professional standard)"
	}
	return "ONLY in English (professional standard)"
}

// Fallback is shown in place of a reply when the model call fails.
func Fallback(lang model.Language) string {
	if lang == model.LanguageBangla {
		return "সার্ভারে সমস্যা হচ্ছে।"
	}
	return "Connecting to factory servers..."
}

// MissingCredential is shown when no model credential is configured.
func MissingCredential(model.Language) string {
	return "API Key missing."
}

// Greeting introduces an empty conversation.
func Greeting(c model.Counterpart, lang model.Language) string {
	name := c.String()
	if m, ok := model.LookupManager(c); ok {
		name = m.Name
	}
	switch {
	case c.IsGroup() && lang == model.LanguageBangla:
		return "ফ্যাক্টরির সকল সিনিয়র ম্যানেজার এখানে আছেন। একটি সমস্যা বা টপিক নিয়ে আলোচনা শুরু করুন।"
	case c.IsGroup():
		return "All senior managers are present here. Start a discussion about a production issue or goal."
	case lang == model.LanguageBangla:
		return fmt.Sprintf("আপনি %s সাহেবের রুমে আছেন। ফ্যাব্রিক রিপোর্ট বা প্রোডাকশন ডাটা নিয়ে কথা বলুন।", name)
	default:
		return fmt.Sprintf("You are in %s's room. Discuss fabric reports or production data.", name)
	}
}

// NoteSaved confirms a saved note.
func NoteSaved(lang model.Language) string {
	if lang == model.LanguageBangla {
		return "নোট সেভ করা হয়েছে"
	}
	return "Saved to Notes"
}

// Waiting is printed while a reply is pending.
func Waiting(lang model.Language) string {
	if lang == model.LanguageBangla {
		return "ম্যানেজাররা আলোচনা করছেন..."
	}
	return "Managers are discussing..."
}

// Confirmation questions for destructive actions.
const (
	ConfirmClearConversation = "Are you sure you want to clear this conversation?"
	ConfirmClearNotes        = "Clear all notes?"
	ConfirmDeleteNote        = "Delete this note?"
)
