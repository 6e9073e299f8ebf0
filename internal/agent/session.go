package agent

import (
	"slices"
	"strings"
	"time"
)

// Mode is the difficulty tier that shapes the tutor's tone and depth.
type Mode string

// Wire values for Mode.
const (
	ModeBeginner     Mode = "iniciante"
	ModeIntermediate Mode = "intermediario"
	ModeAdvanced     Mode = "avancado"
)

var modeAliases = map[string]Mode{
	"iniciante":     ModeBeginner,
	"beginner":      ModeBeginner,
	"intermediario": ModeIntermediate,
	"intermediário": ModeIntermediate,
	"intermediate":  ModeIntermediate,
	"avancado":      ModeAdvanced,
	"avançado":      ModeAdvanced,
	"advanced":      ModeAdvanced,
}

// ParseMode normalises a mode name. English names and accented spellings
// are accepted.
func ParseMode(s string) (Mode, bool) {
	m, ok := modeAliases[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

// Role identifies who produced a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a session's history.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Score is the exercise tally. Correct never exceeds Total.
type Score struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Session is the conversational state of one learner.
type Session struct {
	ID        string    `json:"sessionId"`
	UserName  string    `json:"userName,omitempty"`
	UserEmail string    `json:"-"`
	Mode      Mode      `json:"currentMode"`
	TopicID   string    `json:"currentTopic"`
	History   []Turn    `json:"history"`
	Score     Score     `json:"scores"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// clone returns a copy that shares no mutable state with s.
func (s Session) clone() Session {
	s.History = slices.Clone(s.History)
	if s.History == nil {
		s.History = []Turn{}
	}
	return s
}
