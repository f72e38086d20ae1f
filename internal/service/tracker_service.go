package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/alanyoungcy/brandit/internal/domain"
	"github.com/alanyoungcy/brandit/internal/notify"
	"github.com/alanyoungcy/brandit/internal/progression"
)

// ActionResult pairs what an action did with the profile it left behind.
type ActionResult struct {
	Outcome progression.Outcome `json:"outcome"`
	Profile domain.Profile      `json:"profile"`
}

// TrackerService runs progression actions against stored profiles. Actions on
// one profile are serialized with the profile lock.
type TrackerService struct {
	profiles    domain.ProfileStore
	engine      *progression.Engine
	locks       domain.LockManager
	bus         domain.SignalBus
	notifier    Notifier
	lockCfg     LockConfig
	defaultName string
	logger      *slog.Logger
}

// NewTrackerService creates a TrackerService. New profiles are named
// defaultName until renamed.
func NewTrackerService(
	profiles domain.ProfileStore,
	engine *progression.Engine,
	locks domain.LockManager,
	bus domain.SignalBus,
	notifier Notifier,
	lockCfg LockConfig,
	defaultName string,
	logger *slog.Logger,
) *TrackerService {
	if defaultName == "" {
		defaultName = "Player"
	}
	return &TrackerService{
		profiles:    profiles,
		engine:      engine,
		locks:       locks,
		bus:         bus,
		notifier:    notifier,
		lockCfg:     lockCfg.withDefaults(),
		defaultName: defaultName,
		logger:      logger.With(slog.String("component", "tracker_service")),
	}
}

// Profile returns the stored profile, or a fresh one that is not yet saved.
func (s *TrackerService) Profile(ctx context.Context, id string) (domain.Profile, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return domain.Profile{}, err
	}
	return *p, nil
}

// Study runs a study session on subject.
func (s *TrackerService) Study(ctx context.Context, id, subject string) (ActionResult, error) {
	return s.run(ctx, id, func(p *domain.Profile) (progression.Outcome, error) {
		return s.engine.Study(p, subject)
	})
}

// Practice runs a practice session on an unlocked skill.
func (s *TrackerService) Practice(ctx context.Context, id, skill string) (ActionResult, error) {
	return s.run(ctx, id, func(p *domain.Profile) (progression.Outcome, error) {
		return s.engine.Practice(p, skill)
	})
}

// Grind adds general EXP to the player.
func (s *TrackerService) Grind(ctx context.Context, id string) (ActionResult, error) {
	return s.run(ctx, id, func(p *domain.Profile) (progression.Outcome, error) {
		return s.engine.Grind(p), nil
	})
}

// DailyQuest completes the daily quest.
func (s *TrackerService) DailyQuest(ctx context.Context, id string) (ActionResult, error) {
	return s.run(ctx, id, func(p *domain.Profile) (progression.Outcome, error) {
		return s.engine.DailyQuest(p), nil
	})
}

// Allocate spends one stat point on stat.
func (s *TrackerService) Allocate(ctx context.Context, id, stat string) (ActionResult, error) {
	return s.run(ctx, id, func(p *domain.Profile) (progression.Outcome, error) {
		return s.engine.AllocateStat(p, stat)
	})
}

func (s *TrackerService) load(ctx context.Context, id string) (*domain.Profile, error) {
	stored, err := s.profiles.Get(ctx, id)
	switch {
	case err == nil:
		s.engine.Normalize(&stored)
		return &stored, nil
	case isNotFound(err):
		return s.engine.NewProfile(id, s.defaultName), nil
	default:
		return nil, fmt.Errorf("tracker_service: load %s: %w", id, err)
	}
}

// run executes fn on the profile under its lock. A refused action leaves the
// stored profile untouched.
func (s *TrackerService) run(ctx context.Context, id string, fn func(*domain.Profile) (progression.Outcome, error)) (ActionResult, error) {
	unlock, err := acquire(ctx, s.locks, s.lockCfg, "profile:"+id)
	if err != nil {
		return ActionResult{}, fmt.Errorf("tracker_service: %s: %w", id, err)
	}
	defer unlock()

	p, err := s.load(ctx, id)
	if err != nil {
		return ActionResult{}, err
	}
	out, err := fn(p)
	if err != nil {
		return ActionResult{}, err
	}
	if err := s.profiles.Save(ctx, *p); err != nil {
		return ActionResult{}, fmt.Errorf("tracker_service: save %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "tracker action",
		slog.String("profile_id", id),
		slog.String("action", out.Action),
		slog.String("target", out.Target),
		slog.Int("exp_gained", out.ExpGained),
	)
	publish(ctx, s.bus, s.logger, domain.ChannelTracker, map[string]any{
		"event":      "progress",
		"profile_id": id,
		"outcome":    out,
	})
	s.announce(ctx, p, out)
	return ActionResult{Outcome: out, Profile: *p}, nil
}

func (s *TrackerService) announce(ctx context.Context, p *domain.Profile, out progression.Outcome) {
	if out.PlayerLevelsGained > 0 {
		alert(ctx, s.notifier, s.logger, notify.Message{
			Event: notify.EventLevelUp,
			Title: "Level up",
			Body:  fmt.Sprintf("%s reached player level %d.", p.Player.Name, out.PlayerLevel),
			Fields: map[string]string{
				"profile_id": p.ID,
				"level":      strconv.Itoa(out.PlayerLevel),
			},
		})
	}
	for _, name := range out.Unlocked {
		alert(ctx, s.notifier, s.logger, notify.Message{
			Event:  notify.EventSkillUnlocked,
			Title:  "Skill unlocked",
			Body:   fmt.Sprintf("%s unlocked %s.", p.Player.Name, name),
			Fields: map[string]string{"profile_id": p.ID, "skill": name},
		})
	}
}
