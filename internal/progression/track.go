// Package progression implements EXP accumulation and leveling for the
// player, study subjects and skills, plus the random events, skill unlocks
// and composite actions built on top of it. Like package pricing it is pure:
// it mutates the profile it is handed and never touches storage.
package progression

import "github.com/alanyoungcy/brandit/internal/domain"

// Curve returns the EXP required to advance from the given level.
type Curve func(level int) int

// EntityCurve is the flatter curve used by subjects and skills.
func EntityCurve(level int) int {
	return int(float64(level*500) * (1.1 + float64(level)/50))
}

// PlayerCurve is the steeper curve used by the player.
func PlayerCurve(level int) int {
	if level <= 1 {
		return 1000
	}
	return int(1000 + float64(level*level*500)*(1+float64(level)/100))
}

// Track parameterises a Ledger with a curve and an optional level cap.
// A MaxLevel of zero or less means unbounded.
type Track struct {
	Curve    Curve
	MaxLevel int
}

// Default tracks.
var (
	PlayerTrack  = Track{Curve: PlayerCurve}
	SubjectTrack = Track{Curve: EntityCurve, MaxLevel: 10}
	SkillTrack   = Track{Curve: EntityCurve, MaxLevel: 100}
)

func (t Track) capped(level int) bool {
	return t.MaxLevel > 0 && level >= t.MaxLevel
}

// Required returns the EXP needed to leave the given level, or zero once the
// level cap is reached.
func (t Track) Required(level int) int {
	if t.capped(level) {
		return 0
	}
	return t.Curve(level)
}

// AddExp adds amount to the ledger and applies every level-up it pays for.
// It returns the number of levels gained and the EXP left over afterwards.
// Reaching the cap discards any remaining EXP. Negative amounts count as zero.
func (t Track) AddExp(l *domain.Ledger, amount int) (levels, overflow int) {
	if t.capped(l.Level) {
		return 0, 0
	}
	if amount < 0 {
		amount = 0
	}

	l.Exp += amount
	for !t.capped(l.Level) && l.Exp >= t.Required(l.Level) {
		l.Exp -= t.Required(l.Level)
		l.Level++
		levels++
	}

	overflow = l.Exp
	if t.capped(l.Level) {
		l.Exp = 0
	}
	return levels, overflow
}
