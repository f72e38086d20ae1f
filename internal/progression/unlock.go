package progression

import "github.com/alanyoungcy/brandit/internal/domain"

// satisfied evaluates a single requirement against the profile. Targets the
// profile does not know about never satisfy.
func satisfied(req Requirement, p *domain.Profile) bool {
	switch req.Kind {
	case RequireSubject:
		s, ok := p.Subjects[req.Target]
		return ok && s.Ledger.Level >= req.Level
	case RequireStat:
		v, ok := p.Player.Stats[req.Target]
		return ok && v > 0 && v >= req.Level
	case RequireSkill:
		s, ok := p.Skills[req.Target]
		return ok && s.Unlocked && s.Ledger.Level >= req.Level
	}
	return false
}

// CheckUnlocks flips every locked skill whose requirement now holds and
// returns the newly unlocked names in catalog order. Unlocked skills are never
// re-evaluated, so a skill cannot become locked again.
func CheckUnlocks(c Catalog, p *domain.Profile) []string {
	var unlocked []string
	for _, def := range c.Skills {
		s, ok := p.Skills[def.Name]
		if !ok || s.Unlocked {
			continue
		}
		if satisfied(def.Requirement, p) {
			s.Unlocked = true
			unlocked = append(unlocked, def.Name)
		}
	}
	return unlocked
}
