package progression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaultStats() map[string]int {
	return DefaultCatalog().InitialStats
}

func TestChancesFor(t *testing.T) {
	c := ChancesFor(5, 5)
	assert.InDelta(t, 0.06, c.Boost, 1e-12)
	assert.InDelta(t, 0.19, c.Fatigue, 1e-12)

	// High focus cannot push fatigue under 5%.
	assert.Equal(t, 0.05, ChancesFor(0, 500).Fatigue)
}

func TestClassify_BandBoundaries(t *testing.T) {
	c := ChancesFor(5, 5)
	critical := 0.95 - c.Boost

	tests := []struct {
		name string
		r    float64
		want EventKind
	}{
		{"zero", 0, EventFatigue},
		{"just under fatigue", math.Nextafter(c.Fatigue, 0), EventFatigue},
		{"at fatigue", c.Fatigue, EventNormalDay},
		{"at 0.85", 0.85, EventNormalDay},
		{"just over 0.85", math.Nextafter(0.85, 1), EventBoost},
		{"at critical edge", critical, EventBoost},
		{"just over critical edge", math.Nextafter(critical, 1), EventCriticalStudy},
		{"at 0.99", 0.99, EventCriticalStudy},
		{"just over 0.99", math.Nextafter(0.99, 1), EventFlowState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.r))
		})
	}
}

// A large boost chance moves the critical band below 0.85, so draws that
// would otherwise be Boost resolve to Critical Study by evaluation order.
func TestClassify_OverlapResolvedByOrder(t *testing.T) {
	c := ChancesFor(100, 5)

	assert.Equal(t, EventCriticalStudy, c.Classify(0.8))
	assert.Equal(t, EventCriticalStudy, c.Classify(0.9))
	assert.Equal(t, EventNormalDay, c.Classify(0.7))
}

func TestRollEvent_SameDrawSameEvent(t *testing.T) {
	stats := defaultStats()
	for _, r := range []float64{0.1, 0.5, 0.86, 0.95, 0.999} {
		a := RollEvent(stats, 100, r)
		b := RollEvent(stats, 100, r)
		assert.Equal(t, a, b)
	}
}

func TestRollEvent_Multipliers(t *testing.T) {
	stats := defaultStats()

	assert.Equal(t, Event{Kind: EventFatigue, Roll: 0.1, BaseExp: 101, Exp: 50}, RollEvent(stats, 101, 0.1))
	assert.Equal(t, 101, RollEvent(stats, 101, 0.5).Exp)
	assert.Equal(t, 151, RollEvent(stats, 101, 0.86).Exp)
	assert.Equal(t, 252, RollEvent(stats, 101, 0.95).Exp)
	assert.Equal(t, 404, RollEvent(stats, 101, 0.995).Exp)
}

func TestRollEvent_MissingStatsReadAsZero(t *testing.T) {
	ev := RollEvent(map[string]int{}, 100, 0.1)

	// fatigue = 0.20, boost = 0.05
	assert.Equal(t, EventFatigue, ev.Kind)
	assert.Equal(t, EventCriticalStudy, RollEvent(nil, 100, 0.91).Kind)
}
