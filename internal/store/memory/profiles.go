package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// ProfileStore implements domain.ProfileStore.
type ProfileStore struct {
	mu sync.RWMutex
	m  map[string]domain.Profile
}

// NewProfileStore creates an empty ProfileStore.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{m: make(map[string]domain.Profile)}
}

func cloneProfile(p domain.Profile) domain.Profile {
	p.Player.Stats = maps.Clone(p.Player.Stats)
	if p.Subjects != nil {
		subjects := make(map[string]*domain.SubjectState, len(p.Subjects))
		for k, v := range p.Subjects {
			c := *v
			subjects[k] = &c
		}
		p.Subjects = subjects
	}
	if p.Skills != nil {
		skills := make(map[string]*domain.SkillState, len(p.Skills))
		for k, v := range p.Skills {
			c := *v
			skills[k] = &c
		}
		p.Skills = skills
	}
	p.Log = slices.Clone(p.Log)
	return p
}

// Get returns a profile or domain.ErrNotFound.
func (s *ProfileStore) Get(_ context.Context, id string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[id]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return cloneProfile(p), nil
}

// Save inserts or replaces a profile.
func (s *ProfileStore) Save(_ context.Context, p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p.ID] = cloneProfile(p)
	return nil
}

var _ domain.ProfileStore = (*ProfileStore)(nil)
