package progression

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// Per player level-up rewards.
const (
	StatPointsPerLevel  = 5
	SkillPointsPerLevel = 1
	DailyQuestStatBonus = 2
)

// Rand is the random source the engine draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Config holds the level caps and log bound.
type Config struct {
	PlayerMaxLevel  int // 0 means unbounded
	SubjectMaxLevel int
	SkillMaxLevel   int
	MaxLogEntries   int
}

// DefaultConfig returns an unbounded player, subjects capped at 10, skills
// capped at 100 and a 100 entry log.
func DefaultConfig() Config {
	return Config{
		PlayerMaxLevel:  0,
		SubjectMaxLevel: 10,
		SkillMaxLevel:   100,
		MaxLogEntries:   100,
	}
}

// Action names reported in an Outcome.
const (
	ActionStudy      = "study"
	ActionPractice   = "practice"
	ActionGrind      = "grind"
	ActionDailyQuest = "daily_quest"
	ActionAllocate   = "allocate"
)

// Outcome reports what a single action did to a profile.
type Outcome struct {
	Action             string   `json:"action"`
	Target             string   `json:"target,omitempty"`
	Event              *Event   `json:"event,omitempty"`
	ExpGained          int      `json:"exp_gained"`
	PlayerExp          int      `json:"player_exp"`
	PlayerLevelsGained int      `json:"player_levels_gained"`
	PlayerLevel        int      `json:"player_level"`
	TargetLevelsGained int      `json:"target_levels_gained"`
	TargetLevel        int      `json:"target_level,omitempty"`
	Unlocked           []string `json:"unlocked,omitempty"`
	Message            string   `json:"message"`
}

// Engine runs progression actions against profiles using a fixed catalog.
type Engine struct {
	catalog Catalog
	cfg     Config
	player  Track
	subject Track
	skill   Track
	rng     Rand
	now     func() time.Time
}

// NewEngine creates an Engine. A nil rng uses a time-seeded PCG source and a
// nil clock defaults to time.Now in UTC.
func NewEngine(c Catalog, cfg Config, rng Rand, now func() time.Time) *Engine {
	if cfg.SubjectMaxLevel <= 0 {
		cfg.SubjectMaxLevel = 10
	}
	if cfg.SkillMaxLevel <= 0 {
		cfg.SkillMaxLevel = 100
	}
	if cfg.MaxLogEntries <= 0 {
		cfg.MaxLogEntries = 100
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>17))
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		catalog: c.clone(),
		cfg:     cfg,
		player:  Track{Curve: PlayerCurve, MaxLevel: cfg.PlayerMaxLevel},
		subject: Track{Curve: EntityCurve, MaxLevel: cfg.SubjectMaxLevel},
		skill:   Track{Curve: EntityCurve, MaxLevel: cfg.SkillMaxLevel},
		rng:     rng,
		now:     now,
	}
}

// Catalog returns a copy of the catalog the engine was built with.
func (e *Engine) Catalog() Catalog { return e.catalog.clone() }

// Tracks returns the player, subject and skill tracks.
func (e *Engine) Tracks() (player, subject, skill Track) {
	return e.player, e.subject, e.skill
}

// NewProfile builds a fresh level 1 profile with every catalog entry.
func (e *Engine) NewProfile(id, name string) *domain.Profile {
	p := &domain.Profile{ID: id, Player: domain.PlayerState{Name: name}}
	e.Normalize(p)
	p.UpdatedAt = e.now()
	return p
}

// Normalize fills in state for catalog entries missing from a loaded profile
// and repairs zero levels. Existing progress is kept.
func (e *Engine) Normalize(p *domain.Profile) {
	if p.Player.Ledger.Level < 1 {
		p.Player.Ledger.Level = 1
	}
	if p.Player.Stats == nil {
		p.Player.Stats = make(map[string]int, len(e.catalog.InitialStats))
	}
	for name, v := range e.catalog.InitialStats {
		if _, ok := p.Player.Stats[name]; !ok {
			p.Player.Stats[name] = v
		}
	}

	if p.Subjects == nil {
		p.Subjects = make(map[string]*domain.SubjectState, len(e.catalog.Subjects))
	}
	for _, def := range e.catalog.Subjects {
		s, ok := p.Subjects[def.Name]
		if !ok || s == nil {
			p.Subjects[def.Name] = &domain.SubjectState{Name: def.Name, Ledger: domain.NewLedger()}
			continue
		}
		s.Name = def.Name
		if s.Ledger.Level < 1 {
			s.Ledger.Level = 1
		}
	}

	if p.Skills == nil {
		p.Skills = make(map[string]*domain.SkillState, len(e.catalog.Skills))
	}
	for _, def := range e.catalog.Skills {
		s, ok := p.Skills[def.Name]
		if !ok || s == nil {
			p.Skills[def.Name] = &domain.SkillState{Name: def.Name, Ledger: domain.NewLedger()}
			continue
		}
		s.Name = def.Name
		if s.Ledger.Level < 1 {
			s.Ledger.Level = 1
		}
	}
}

// RollRandomEvent draws from the engine's random source and applies the
// resulting event to baseExp.
func (e *Engine) RollRandomEvent(stats map[string]int, baseExp int) Event {
	return RollEvent(stats, baseExp, e.rng.Float64())
}

// addPlayerExp feeds EXP to the player and pays out level-up rewards.
func (e *Engine) addPlayerExp(p *domain.Profile, amount int) int {
	levels, _ := e.player.AddExp(&p.Player.Ledger, amount)
	p.Player.StatPoints += levels * StatPointsPerLevel
	p.Player.SkillPoints += levels * SkillPointsPerLevel
	return levels
}

// Study works on a subject. EXP scales with Intelligence, shrinks with the
// subject's difficulty and gets a Logic bonus above 10. The player receives
// a tenth of it.
func (e *Engine) Study(p *domain.Profile, subject string) (Outcome, error) {
	def, ok := e.catalog.subject(subject)
	if !ok {
		return Outcome{}, fmt.Errorf("progression: subject %q: %w", subject, domain.ErrNotFound)
	}
	e.Normalize(p)
	state := p.Subjects[subject]

	stats := p.Player.Stats
	base := int(float64(100+stats[domain.StatIntelligence]*10) / def.Difficulty)
	ev := e.RollRandomEvent(stats, base)

	gain := ev.Exp
	if logic := stats[domain.StatLogic]; logic > 10 {
		gain = int(float64(gain) * (1 + float64(logic-10)/100.0))
	}

	playerExp := int(float64(gain) * 0.1)
	playerLevels := e.addPlayerExp(p, playerExp)
	subjLevels, _ := e.subject.AddExp(&state.Ledger, gain)

	msg := fmt.Sprintf("Studied %s (%s). Gained %d Subject EXP.", subject, ev.Kind, gain)
	if subjLevels > 0 {
		msg += fmt.Sprintf(" %s Level UP! (%d)", subject, state.Ledger.Level)
	}
	if playerLevels > 0 {
		msg += fmt.Sprintf(" Player Level UP! (%d)", p.Player.Ledger.Level)
	}

	out := Outcome{
		Action:             ActionStudy,
		Target:             subject,
		Event:              &ev,
		ExpGained:          gain,
		PlayerExp:          playerExp,
		PlayerLevelsGained: playerLevels,
		TargetLevelsGained: subjLevels,
		TargetLevel:        state.Ledger.Level,
		Message:            msg,
	}
	e.finish(p, &out)
	return out, nil
}

// Practice trains an unlocked skill. EXP scales with Focus and drops as the
// skill's level rises. The player receives a twentieth of it.
func (e *Engine) Practice(p *domain.Profile, skill string) (Outcome, error) {
	if _, ok := e.catalog.skill(skill); !ok {
		return Outcome{}, fmt.Errorf("progression: skill %q: %w", skill, domain.ErrNotFound)
	}
	if s := p.Skills[skill]; s == nil || !s.Unlocked {
		return Outcome{}, fmt.Errorf("progression: skill %q: %w", skill, domain.ErrSkillLocked)
	}
	e.Normalize(p)
	state := p.Skills[skill]

	stats := p.Player.Stats
	base := max(150+stats[domain.StatFocus]*10-state.Ledger.Level*5, 0)
	ev := e.RollRandomEvent(stats, base)
	gain := ev.Exp

	playerExp := int(float64(gain) * 0.05)
	playerLevels := e.addPlayerExp(p, playerExp)
	skillLevels, _ := e.skill.AddExp(&state.Ledger, gain)

	msg := fmt.Sprintf("Practiced %s (%s). Gained %d Skill EXP.", skill, ev.Kind, gain)
	if skillLevels > 0 {
		msg += fmt.Sprintf(" %s Level UP! (%d)", skill, state.Ledger.Level)
	}
	if playerLevels > 0 {
		msg += fmt.Sprintf(" Player Level UP! (%d)", p.Player.Ledger.Level)
	}

	out := Outcome{
		Action:             ActionPractice,
		Target:             skill,
		Event:              &ev,
		ExpGained:          gain,
		PlayerExp:          playerExp,
		PlayerLevelsGained: playerLevels,
		TargetLevelsGained: skillLevels,
		TargetLevel:        state.Ledger.Level,
		Message:            msg,
	}
	e.finish(p, &out)
	return out, nil
}

// Grind feeds general EXP, derived from Memory and the player's level,
// straight to the player.
func (e *Engine) Grind(p *domain.Profile) Outcome {
	e.Normalize(p)
	stats := p.Player.Stats
	base := 500 + stats[domain.StatMemory]*5 + p.Player.Ledger.Level*50
	ev := e.RollRandomEvent(stats, base)

	playerLevels := e.addPlayerExp(p, ev.Exp)

	msg := fmt.Sprintf("Grinding Life EXP (%s). Gained %d overall EXP.", ev.Kind, ev.Exp)
	if playerLevels > 0 {
		msg += fmt.Sprintf(" Player Level UP! (%d)", p.Player.Ledger.Level)
	}

	out := Outcome{
		Action:             ActionGrind,
		Event:              &ev,
		ExpGained:          ev.Exp,
		PlayerExp:          ev.Exp,
		PlayerLevelsGained: playerLevels,
		Message:            msg,
	}
	e.finish(p, &out)
	return out
}

// DailyQuest grants a large Creativity-scaled bonus and two stat points to
// the player, plus a tenth of the bonus to one subject or skill picked
// uniformly at random. Locked skills can be picked.
func (e *Engine) DailyQuest(p *domain.Profile) Outcome {
	e.Normalize(p)
	base := 5000 + p.Player.Stats[domain.StatCreativity]*50

	playerLevels := e.addPlayerExp(p, base)
	p.Player.StatPoints += DailyQuestStatBonus

	msg := fmt.Sprintf("Completed Daily Quest! Gained %d EXP and %d Stat Points.", base, DailyQuestStatBonus)
	if playerLevels > 0 {
		msg += fmt.Sprintf(" Player Level UP! (%d)", p.Player.Ledger.Level)
	}

	out := Outcome{
		Action:             ActionDailyQuest,
		ExpGained:          base,
		PlayerExp:          base,
		PlayerLevelsGained: playerLevels,
	}

	n := len(e.catalog.Subjects) + len(e.catalog.Skills)
	if n > 0 {
		bonus := int(float64(base) * 0.1)
		idx := e.rng.IntN(n)

		var levels, level int
		if idx < len(e.catalog.Subjects) {
			name := e.catalog.Subjects[idx].Name
			s := p.Subjects[name]
			levels, _ = e.subject.AddExp(&s.Ledger, bonus)
			out.Target, level = name, s.Ledger.Level
		} else {
			name := e.catalog.Skills[idx-len(e.catalog.Subjects)].Name
			s := p.Skills[name]
			levels, _ = e.skill.AddExp(&s.Ledger, bonus)
			out.Target, level = name, s.Ledger.Level
		}
		out.TargetLevelsGained = levels
		out.TargetLevel = level
		if levels > 0 {
			msg += fmt.Sprintf(" Bonus: %s Level UP! (%d)", out.Target, level)
		}
	}

	out.Message = msg
	e.finish(p, &out)
	return out
}

// AllocateStat spends one stat point on the named stat. The profile is left
// untouched when the stat is unknown or no points are available.
func (e *Engine) AllocateStat(p *domain.Profile, stat string) (Outcome, error) {
	_, known := p.Player.Stats[stat]
	if _, ok := e.catalog.InitialStats[stat]; ok {
		known = true
	}
	if !known {
		return Outcome{}, fmt.Errorf("progression: stat %q: %w", stat, domain.ErrNotFound)
	}
	if p.Player.StatPoints <= 0 {
		return Outcome{}, fmt.Errorf("progression: allocate %q: %w", stat, domain.ErrInsufficientPoints)
	}

	e.Normalize(p)
	p.Player.Stats[stat]++
	p.Player.StatPoints--

	out := Outcome{
		Action:  ActionAllocate,
		Target:  stat,
		Message: fmt.Sprintf("Allocated 1 point to %s (%d).", stat, p.Player.Stats[stat]),
	}
	e.finish(p, &out)
	return out, nil
}

// finish logs the action, runs the unlock check and stamps the profile.
func (e *Engine) finish(p *domain.Profile, out *Outcome) {
	now := e.now()
	e.appendLog(p, now, out.Message)

	out.Unlocked = CheckUnlocks(e.catalog, p)
	for _, name := range out.Unlocked {
		def, _ := e.catalog.skill(name)
		e.appendLog(p, now, fmt.Sprintf("SKILL UNLOCKED: [%s]! %s", name, def.Passive))
	}

	out.PlayerLevel = p.Player.Ledger.Level
	p.UpdatedAt = now
}

// appendLog adds a message and keeps only the newest MaxLogEntries.
func (e *Engine) appendLog(p *domain.Profile, at time.Time, msg string) {
	p.Log = append(p.Log, domain.LogEntry{At: at, Message: msg})
	if over := len(p.Log) - e.cfg.MaxLogEntries; over > 0 {
		p.Log = append(p.Log[:0:0], p.Log[over:]...)
	}
}
