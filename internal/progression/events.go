package progression

import (
	"math"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// EventKind names the random modifier applied to an EXP gain.
type EventKind string

const (
	EventFatigue       EventKind = "Fatigue"
	EventNormalDay     EventKind = "Normal Day"
	EventBoost         EventKind = "Boost"
	EventCriticalStudy EventKind = "Critical Study!"
	EventFlowState     EventKind = "Flow State! (Rare)"
)

// Multiplier returns the EXP multiplier of the event kind.
func (k EventKind) Multiplier() float64 {
	switch k {
	case EventFatigue:
		return 0.5
	case EventBoost:
		return 1.5
	case EventCriticalStudy:
		return 2.5
	case EventFlowState:
		return 4.0
	default:
		return 1.0
	}
}

// Event is the outcome of a random roll applied to a base EXP amount.
type Event struct {
	Kind    EventKind `json:"kind"`
	Roll    float64   `json:"roll"`
	BaseExp int       `json:"base_exp"`
	Exp     int       `json:"exp"`
}

// Chances are the two stat-derived probabilities that shape the roll bands.
type Chances struct {
	Boost   float64
	Fatigue float64
}

// ChancesFor derives the boost and fatigue chances from the player's
// Creativity and Focus. Fatigue never drops below 5%.
func ChancesFor(creativity, focus int) Chances {
	return Chances{
		Boost:   0.05 + float64(creativity)/500,
		Fatigue: math.Max(0.05, 0.20-float64(focus)/500),
	}
}

// Classify maps a uniform draw r in [0,1) to an event kind. Bands are tested
// in a fixed order and the first match wins; the Boost band can overlap the
// Critical Study band when the boost chance is large, and that overlap is
// resolved purely by this order.
func (c Chances) Classify(r float64) EventKind {
	switch {
	case r < c.Fatigue:
		return EventFatigue
	case r > 0.99:
		return EventFlowState
	case r > 0.95-c.Boost && r <= 0.99:
		return EventCriticalStudy
	case r > 0.85:
		return EventBoost
	default:
		return EventNormalDay
	}
}

// RollEvent applies the band for draw r to baseExp.
func RollEvent(stats map[string]int, baseExp int, r float64) Event {
	c := ChancesFor(stats[domain.StatCreativity], stats[domain.StatFocus])
	kind := c.Classify(r)
	return Event{
		Kind:    kind,
		Roll:    r,
		BaseExp: baseExp,
		Exp:     int(float64(baseExp) * kind.Multiplier()),
	}
}
