package domain

import "time"

// Ledger is the level/EXP pair shared by every entity that levels up.
type Ledger struct {
	Level int `json:"level"`
	Exp   int `json:"exp"`
}

// NewLedger returns a ledger at level 1 with no EXP.
func NewLedger() Ledger {
	return Ledger{Level: 1}
}

// PlayerState is the tracked person.
type PlayerState struct {
	Name        string         `json:"name"`
	Ledger      Ledger         `json:"ledger"`
	StatPoints  int            `json:"stat_points"`
	SkillPoints int            `json:"skill_points"`
	Stats       map[string]int `json:"stats"`
}

// Stat returns the named stat, or zero when it is absent.
func (p *PlayerState) Stat(name string) int {
	return p.Stats[name]
}

// SubjectState is the persisted progress of one study subject.
type SubjectState struct {
	Name   string `json:"name"`
	Ledger Ledger `json:"ledger"`
}

// SkillState is the persisted progress of one skill. Unlocked only ever
// moves from false to true.
type SkillState struct {
	Name     string `json:"name"`
	Ledger   Ledger `json:"ledger"`
	Unlocked bool   `json:"is_unlocked"`
}

// LogEntry is a timestamped activity message.
type LogEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Profile is the whole progression state of one player.
type Profile struct {
	ID        string                   `json:"id"`
	Player    PlayerState              `json:"player"`
	Subjects  map[string]*SubjectState `json:"subjects"`
	Skills    map[string]*SkillState   `json:"skills"`
	Log       []LogEntry               `json:"log"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// Names of the player stats the progression rules read.
const (
	StatIntelligence = "Intelligence"
	StatFocus        = "Focus"
	StatMemory       = "Memory"
	StatLogic        = "Logic"
	StatCreativity   = "Creativity"
)
