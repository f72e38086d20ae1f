package progression

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// scriptedRand replays fixed draws. Float64 repeats its last value once the
// script runs out.
type scriptedRand struct {
	floats []float64
	pick   int
}

func (s *scriptedRand) Float64() float64 {
	if len(s.floats) == 0 {
		return 0.5
	}
	v := s.floats[0]
	if len(s.floats) > 1 {
		s.floats = s.floats[1:]
	}
	return v
}

func (s *scriptedRand) IntN(n int) int { return s.pick % n }

var clock = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestEngine(rng Rand) *Engine {
	return NewEngine(DefaultCatalog(), DefaultConfig(), rng, func() time.Time { return clock })
}

func TestNewProfile(t *testing.T) {
	e := newTestEngine(&scriptedRand{})

	p := e.NewProfile("u1", "Jin")

	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, domain.NewLedger(), p.Player.Ledger)
	assert.Len(t, p.Subjects, 6)
	assert.Len(t, p.Skills, 6)
	for _, s := range p.Skills {
		assert.False(t, s.Unlocked, s.Name)
	}
	assert.Equal(t, 5, p.Player.Stat(domain.StatIntelligence))
	assert.Equal(t, clock, p.UpdatedAt)
}

func TestNormalize_FillsMissingAndKeepsProgress(t *testing.T) {
	e := newTestEngine(&scriptedRand{})
	p := &domain.Profile{
		ID: "u1",
		Player: domain.PlayerState{
			Ledger: domain.Ledger{Level: 4, Exp: 20},
			Stats:  map[string]int{domain.StatFocus: 30},
		},
		Subjects: map[string]*domain.SubjectState{
			"Python": {Name: "Python", Ledger: domain.Ledger{Level: 7, Exp: 3}},
		},
	}

	e.Normalize(p)

	assert.Equal(t, domain.Ledger{Level: 4, Exp: 20}, p.Player.Ledger)
	assert.Equal(t, 30, p.Player.Stat(domain.StatFocus))
	assert.Equal(t, 5, p.Player.Stat(domain.StatMemory))
	assert.Equal(t, domain.Ledger{Level: 7, Exp: 3}, p.Subjects["Python"].Ledger)
	assert.Len(t, p.Subjects, 6)
	assert.Len(t, p.Skills, 6)
}

func TestStudy(t *testing.T) {
	e := newTestEngine(&scriptedRand{floats: []float64{0.5}})
	p := e.NewProfile("u1", "Jin")

	out, err := e.Study(p, "Python")
	require.NoError(t, err)

	// (100 + 5*10) / 1.0 under a Normal Day
	assert.Equal(t, EventNormalDay, out.Event.Kind)
	assert.Equal(t, 150, out.ExpGained)
	assert.Equal(t, 15, out.PlayerExp)
	assert.Equal(t, domain.Ledger{Level: 1, Exp: 150}, p.Subjects["Python"].Ledger)
	assert.Equal(t, domain.Ledger{Level: 1, Exp: 15}, p.Player.Ledger)
	assert.Equal(t, "Studied Python (Normal Day). Gained 150 Subject EXP.", out.Message)
	require.Len(t, p.Log, 1)
	assert.Equal(t, domain.LogEntry{At: clock, Message: out.Message}, p.Log[0])
}

func TestStudy_DifficultyAndLogicBonus(t *testing.T) {
	e := newTestEngine(&scriptedRand{floats: []float64{0.5}})
	p := e.NewProfile("u1", "Jin")

	out, err := e.Study(p, "Networks")
	require.NoError(t, err)
	assert.Equal(t, 100, out.ExpGained) // 150 / 1.5

	p.Player.Stats[domain.StatLogic] = 20
	out, err = e.Study(p, "Python")
	require.NoError(t, err)
	assert.Equal(t, 165, out.ExpGained) // 150 * 1.10
}

func TestStudy_UnlocksSkill(t *testing.T) {
	e := newTestEngine(&scriptedRand{floats: []float64{0.5}})
	p := e.NewProfile("u1", "Jin")
	p.Subjects["Python"].Ledger = domain.Ledger{Level: 2, Exp: 1100}

	out, err := e.Study(p, "Python")
	require.NoError(t, err)

	assert.Equal(t, 1, out.TargetLevelsGained)
	assert.Equal(t, 3, out.TargetLevel)
	assert.Equal(t, []string{"Python"}, out.Unlocked)
	assert.True(t, p.Skills["Python"].Unlocked)
	require.Len(t, p.Log, 2)
	assert.Equal(t, "Studied Python (Normal Day). Gained 150 Subject EXP. Python Level UP! (3)", p.Log[0].Message)
	assert.Equal(t, "SKILL UNLOCKED: [Python]! Coding Speed +5%", p.Log[1].Message)
}

func TestStudy_UnknownSubject(t *testing.T) {
	e := newTestEngine(&scriptedRand{})
	p := e.NewProfile("u1", "Jin")
	before := *p

	_, err := e.Study(p, "Alchemy")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, p.Log)
	assert.Equal(t, before.Player, p.Player)
}

func TestPractice(t *testing.T) {
	e := newTestEngine(&scriptedRand{floats: []float64{0.5}})
	p := e.NewProfile("u1", "Jin")

	_, err := e.Practice(p, "Python")
	assert.ErrorIs(t, err, domain.ErrSkillLocked)

	_, err = e.Practice(p, "Basket Weaving")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, p.Log)

	p.Skills["Python"].Unlocked = true
	out, err := e.Practice(p, "Python")
	require.NoError(t, err)

	// 150 + 5*10 - 1*5
	assert.Equal(t, 195, out.ExpGained)
	assert.Equal(t, 9, out.PlayerExp)
	assert.Equal(t, domain.Ledger{Level: 1, Exp: 195}, p.Skills["Python"].Ledger)
}

func TestPractice_BaseNeverNegative(t *testing.T) {
	e := newTestEngine(&scriptedRand{floats: []float64{0.5}})
	p := e.NewProfile("u1", "Jin")
	p.Player.Stats[domain.StatFocus] = 0
	p.Skills["Python"].Unlocked = true
	p.Skills["Python"].Ledger = domain.Ledger{Level: 50, Exp: 10}

	out, err := e.Practice(p, "Python")
	require.NoError(t, err)

	assert.Zero(t, out.ExpGained)
	assert.Equal(t, domain.Ledger{Level: 50, Exp: 10}, p.Skills["Python"].Ledger)
}

func TestGrind(t *testing.T) {
	e := newTestEngine(&scriptedRand{floats: []float64{0.5}})
	p := e.NewProfile("u1", "Jin")

	out := e.Grind(p)

	// 500 + 5*5 + 1*50
	assert.Equal(t, 575, out.ExpGained)
	assert.Equal(t, domain.Ledger{Level: 1, Exp: 575}, p.Player.Ledger)
	assert.Equal(t, "Grinding Life EXP (Normal Day). Gained 575 overall EXP.", out.Message)
}

func TestGrind_PlayerLevelUpRewards(t *testing.T) {
	e := newTestEngine(&scriptedRand{floats: []float64{0.5}})
	p := e.NewProfile("u1", "Jin")
	p.Player.Ledger.Exp = 900

	out := e.Grind(p)

	assert.Equal(t, 1, out.PlayerLevelsGained)
	assert.Equal(t, 2, out.PlayerLevel)
	assert.Equal(t, 475, p.Player.Ledger.Exp)
	assert.Equal(t, StatPointsPerLevel, p.Player.StatPoints)
	assert.Equal(t, SkillPointsPerLevel, p.Player.SkillPoints)
	assert.Contains(t, out.Message, "Player Level UP! (2)")
}

func TestDailyQuest(t *testing.T) {
	e := newTestEngine(&scriptedRand{pick: 0})
	p := e.NewProfile("u1", "Jin")

	out := e.DailyQuest(p)

	// 5000 + 5*50 = 5250 -> 1000 + 3040 consumed, two levels
	assert.Equal(t, 5250, out.ExpGained)
	assert.Equal(t, 2, out.PlayerLevelsGained)
	assert.Equal(t, domain.Ledger{Level: 3, Exp: 1210}, p.Player.Ledger)
	assert.Equal(t, 2*StatPointsPerLevel+DailyQuestStatBonus, p.Player.StatPoints)
	assert.Equal(t, 2, p.Player.SkillPoints)

	assert.Equal(t, "C Programming", out.Target)
	assert.Equal(t, domain.Ledger{Level: 1, Exp: 525}, p.Subjects["C Programming"].Ledger)
}

func TestDailyQuest_CanPickLockedSkill(t *testing.T) {
	e := newTestEngine(&scriptedRand{pick: 6 + 4})
	p := e.NewProfile("u1", "Jin")

	out := e.DailyQuest(p)

	assert.Equal(t, "Hacking Basics", out.Target)
	assert.Equal(t, 525, p.Skills["Hacking Basics"].Ledger.Exp)
	assert.False(t, p.Skills["Hacking Basics"].Unlocked)
}

func TestAllocateStat(t *testing.T) {
	e := newTestEngine(&scriptedRand{})
	p := e.NewProfile("u1", "Jin")

	_, err := e.AllocateStat(p, domain.StatFocus)
	assert.ErrorIs(t, err, domain.ErrInsufficientPoints)
	assert.Equal(t, 5, p.Player.Stat(domain.StatFocus))

	p.Player.StatPoints = 1
	_, err = e.AllocateStat(p, "Charisma")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, p.Player.StatPoints)
	assert.Empty(t, p.Log)

	out, err := e.AllocateStat(p, domain.StatFocus)
	require.NoError(t, err)
	assert.Equal(t, 6, p.Player.Stat(domain.StatFocus))
	assert.Zero(t, p.Player.StatPoints)
	assert.Equal(t, domain.StatFocus, out.Target)
}

func TestRefusedActionsLeaveRawProfileAlone(t *testing.T) {
	e := newTestEngine(&scriptedRand{})
	p := &domain.Profile{ID: "u1"}

	_, err := e.AllocateStat(p, domain.StatFocus)
	assert.ErrorIs(t, err, domain.ErrInsufficientPoints)
	_, err = e.AllocateStat(p, "Charisma")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.Practice(p, "DSA")
	assert.ErrorIs(t, err, domain.ErrSkillLocked)

	assert.Equal(t, &domain.Profile{ID: "u1"}, p)
}

func TestAllocateStat_UnlocksStatSkill(t *testing.T) {
	e := newTestEngine(&scriptedRand{})
	p := e.NewProfile("u1", "Jin")
	p.Player.Stats[domain.StatFocus] = 14
	p.Player.StatPoints = 1

	out, err := e.AllocateStat(p, domain.StatFocus)
	require.NoError(t, err)

	assert.Equal(t, []string{"Linux"}, out.Unlocked)
}

func TestCheckUnlocks_SkillRequirementNeedsUnlockedSkill(t *testing.T) {
	c := DefaultCatalog()
	e := newTestEngine(&scriptedRand{})
	p := e.NewProfile("u1", "Jin")
	p.Skills["Cyber Security"].Ledger.Level = 5

	assert.Empty(t, CheckUnlocks(c, p), "a locked prerequisite does not count")

	p.Subjects["Networks"].Ledger.Level = 5
	assert.Equal(t, []string{"Cyber Security", "Hacking Basics"}, CheckUnlocks(c, p))
}

func TestCheckUnlocks_Monotonic(t *testing.T) {
	c := DefaultCatalog()
	e := newTestEngine(&scriptedRand{floats: []float64{0.5}})
	p := e.NewProfile("u1", "Jin")
	p.Subjects["Python"].Ledger.Level = 3
	require.Equal(t, []string{"Python"}, CheckUnlocks(c, p))

	// Dropping below the requirement afterwards must not relock.
	p.Subjects["Python"].Ledger.Level = 1
	for i := 0; i < 10; i++ {
		e.Grind(p)
		_, _ = e.Study(p, "Mathematics")
		assert.Empty(t, CheckUnlocks(c, p))
		assert.True(t, p.Skills["Python"].Unlocked)
	}
}

func TestLogIsBounded(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(DefaultCatalog(), cfg, &scriptedRand{floats: []float64{0.5}}, func() time.Time { return clock })
	p := e.NewProfile("u1", "Jin")

	var last Outcome
	for i := 0; i < 150; i++ {
		last = e.Grind(p)
	}

	require.Len(t, p.Log, cfg.MaxLogEntries)
	assert.Equal(t, last.Message, p.Log[len(p.Log)-1].Message)
}

func TestEngine_Deterministic(t *testing.T) {
	run := func() *domain.Profile {
		e := newTestEngine(&scriptedRand{floats: []float64{0.1, 0.86, 0.93, 0.995, 0.4}, pick: 3})
		p := e.NewProfile("u1", "Jin")
		_, _ = e.Study(p, "Python")
		_ = e.Grind(p)
		_ = e.DailyQuest(p)
		_, _ = e.Study(p, "DBMS & SQL")
		_ = e.Grind(p)
		return p
	}

	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Fatalf("profiles differ (-first +second):\n%s", diff)
	}
}
