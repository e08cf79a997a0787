package model

import (
	"fmt"
	"strings"
)

// Counterpart identifies who the user is talking to: one department manager
// or the meeting room, which fans a turn out to several managers.
type Counterpart string

const (
	CounterpartMeetingRoom      Counterpart = "MEETING_ROOM"
	CounterpartDyeingManager    Counterpart = "SENIOR_DYEING_MANAGER"
	CounterpartFinishingManager Counterpart = "SENIOR_FINISHING_MANAGER"
	CounterpartLabManager       Counterpart = "LAB_SENIOR_MANAGER"
	CounterpartKnittingManager  Counterpart = "SENIOR_KNITTING_MANAGER"
	CounterpartQAHead           Counterpart = "QUALITY_ASSURANCE_HEAD"
	CounterpartPlanningManager  Counterpart = "PRODUCTION_PLANNING_MANAGER"
)

// DefaultGroupSpeaker is credited with meeting-room replies that could not be
// attributed to a specific manager.
const DefaultGroupSpeaker = CounterpartDyeingManager

var counterparts = []Counterpart{
	CounterpartMeetingRoom,
	CounterpartDyeingManager,
	CounterpartFinishingManager,
	CounterpartLabManager,
	CounterpartKnittingManager,
	CounterpartQAHead,
	CounterpartPlanningManager,
}

var aliases = map[string]Counterpart{
	"meeting":   CounterpartMeetingRoom,
	"group":     CounterpartMeetingRoom,
	"dyeing":    CounterpartDyeingManager,
	"finishing": CounterpartFinishingManager,
	"lab":       CounterpartLabManager,
	"knitting":  CounterpartKnittingManager,
	"qa":        CounterpartQAHead,
	"planning":  CounterpartPlanningManager,
}

// Counterparts returns every counterpart in roster order, meeting room first.
func Counterparts() []Counterpart {
	out := make([]Counterpart, len(counterparts))
	copy(out, counterparts)
	return out
}

// Managers returns the individual managers, excluding the meeting room.
func Managers() []Counterpart {
	return Counterparts()[1:]
}

func (c Counterpart) IsGroup() bool {
	return c == CounterpartMeetingRoom
}

func (c Counterpart) Valid() bool {
	for _, known := range counterparts {
		if c == known {
			return true
		}
	}
	return false
}

func (c Counterpart) String() string {
	return string(c)
}

// ParseCounterpart accepts a canonical id in any case or a short alias such as "qa".
func ParseCounterpart(s string) (Counterpart, error) {
	key := strings.TrimSpace(s)
	if c := Counterpart(strings.ToUpper(key)); c.Valid() {
		return c, nil
	}
	if c, ok := aliases[strings.ToLower(key)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown counterpart %q", s)
}

// Manager is the public profile of a counterpart.
type Manager struct {
	ID         Counterpart
	Name       string
	Role       string
	Experience string
	Expertise  []string
	Avatar     string
}

var roster = map[Counterpart]Manager{
	CounterpartMeetingRoom: {
		ID:         CounterpartMeetingRoom,
		Name:       "Management Meeting",
		Role:       "Board Room",
		Experience: "Collective",
		Expertise:  []string{"General Management", "Cross-department Coordination"},
		Avatar:     "https://cdn-icons-png.flaticon.com/512/3122/3122155.png",
	},
	CounterpartDyeingManager: {
		ID:         CounterpartDyeingManager,
		Name:       "Mr. Abdur Rahman",
		Role:       "Senior Dyeing Manager",
		Experience: "22 Years",
		Expertise:  []string{"Reactive Dyeing", "Shade Correction", "Bulk Approval"},
		Avatar:     "https://picsum.photos/seed/dyeing/200",
	},
	CounterpartFinishingManager: {
		ID:         CounterpartFinishingManager,
		Name:       "Mr. Kamal Uddin",
		Role:       "Senior Finishing Manager",
		Experience: "18 Years",
		Expertise:  []string{"GSM Control", "Shrinkage", "Compactor Settings"},
		Avatar:     "https://picsum.photos/seed/finishing/200",
	},
	CounterpartLabManager: {
		ID:         CounterpartLabManager,
		Name:       "Mr. Sharif Ahmed",
		Role:       "Lab Senior Manager",
		Experience: "15 Years",
		Expertise:  []string{"Color Matching", "Lab Dip", "Chemical Testing"},
		Avatar:     "https://picsum.photos/seed/lab/200",
	},
	CounterpartKnittingManager: {
		ID:         CounterpartKnittingManager,
		Name:       "Mr. Zakir Hossain",
		Role:       "Senior Knitting Manager",
		Experience: "20 Years",
		Expertise:  []string{"Circular Knitting", "Yarn Quality", "Efficiency"},
		Avatar:     "https://picsum.photos/seed/knitting/200",
	},
	CounterpartQAHead: {
		ID:         CounterpartQAHead,
		Name:       "Ms. Nasrin Akhter",
		Role:       "QA Head",
		Experience: "15 Years",
		Expertise:  []string{"AQL Standards", "Buyer Compliance", "Final Audit"},
		Avatar:     "https://picsum.photos/seed/qa/200",
	},
	CounterpartPlanningManager: {
		ID:         CounterpartPlanningManager,
		Name:       "Mr. Monirul Islam",
		Role:       "Production Planning Manager",
		Experience: "16 Years",
		Expertise:  []string{"T&A Management", "Capacity Planning", "Delivery"},
		Avatar:     "https://picsum.photos/seed/planning/200",
	},
}

// LookupManager returns the profile for c.
func LookupManager(c Counterpart) (Manager, bool) {
	m, ok := roster[c]
	return m, ok
}
