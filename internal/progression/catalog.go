package progression

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// RequirementKind says what a skill requirement is measured against.
type RequirementKind string

const (
	RequireSubject RequirementKind = "subject"
	RequireStat    RequirementKind = "stat"
	RequireSkill   RequirementKind = "skill"
)

// Requirement gates a skill behind a single threshold.
type Requirement struct {
	Kind   RequirementKind
	Target string
	Level  int
}

// requirementYAML mirrors the one-key mapping used in catalog files, e.g.
// {subject: Python, level: 3}.
type requirementYAML struct {
	Subject string `yaml:"subject"`
	Stat    string `yaml:"stat"`
	Skill   string `yaml:"skill"`
	Level   int    `yaml:"level"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Requirement) UnmarshalYAML(node *yaml.Node) error {
	var raw requirementYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}

	set := 0
	if raw.Subject != "" {
		r.Kind, r.Target = RequireSubject, raw.Subject
		set++
	}
	if raw.Stat != "" {
		r.Kind, r.Target = RequireStat, raw.Stat
		set++
	}
	if raw.Skill != "" {
		r.Kind, r.Target = RequireSkill, raw.Skill
		set++
	}
	if set != 1 {
		return fmt.Errorf("requirement at line %d: exactly one of subject, stat or skill must be set", node.Line)
	}
	r.Level = raw.Level
	return nil
}

// SubjectDef describes a study subject.
type SubjectDef struct {
	Name        string  `yaml:"name"`
	Difficulty  float64 `yaml:"difficulty"`
	UnlockSkill string  `yaml:"unlock_skill"`
}

// SkillDef describes a skill and what unlocks it.
type SkillDef struct {
	Name        string      `yaml:"name"`
	Passive     string      `yaml:"passive"`
	Requirement Requirement `yaml:"req"`
}

// Catalog is the fixed world definition. It is built once at startup and
// never mutated.
type Catalog struct {
	InitialStats map[string]int `yaml:"initial_stats"`
	Subjects     []SubjectDef   `yaml:"subjects"`
	Skills       []SkillDef     `yaml:"skills"`
}

// DefaultCatalog returns the built-in subjects and skills.
func DefaultCatalog() Catalog {
	return Catalog{
		InitialStats: map[string]int{
			domain.StatIntelligence: 5,
			domain.StatFocus:        5,
			domain.StatMemory:       5,
			domain.StatLogic:        5,
			domain.StatCreativity:   5,
		},
		Subjects: []SubjectDef{
			{Name: "C Programming", Difficulty: 1.2, UnlockSkill: "DSA"},
			{Name: "Mathematics", Difficulty: 1.1, UnlockSkill: "Logic"},
			{Name: "Python", Difficulty: 1.0, UnlockSkill: "Python"},
			{Name: "Networks", Difficulty: 1.5, UnlockSkill: "Cyber Security"},
			{Name: "OS Fundamentals", Difficulty: 1.3, UnlockSkill: "Linux"},
			{Name: "DBMS & SQL", Difficulty: 1.1, UnlockSkill: "Shell Scripting"},
		},
		Skills: []SkillDef{
			{Name: "Python", Passive: "Coding Speed +5%", Requirement: Requirement{Kind: RequireSubject, Target: "Python", Level: 3}},
			{Name: "Linux", Passive: "Shell Scripting EXP +10%", Requirement: Requirement{Kind: RequireStat, Target: domain.StatFocus, Level: 15}},
			{Name: "DSA", Passive: "Logic Stat Gain +10%", Requirement: Requirement{Kind: RequireSubject, Target: "C Programming", Level: 5}},
			{Name: "Cyber Security", Passive: "Risk Assessment +5%", Requirement: Requirement{Kind: RequireSubject, Target: "Networks", Level: 5}},
			{Name: "Hacking Basics", Passive: "Critical Study Chance +2%", Requirement: Requirement{Kind: RequireSkill, Target: "Cyber Security", Level: 5}},
			{Name: "Shell Scripting", Passive: "Automation Efficiency +5%", Requirement: Requirement{Kind: RequireSubject, Target: "DBMS & SQL", Level: 3}},
		},
	}
}

// LoadCatalog reads a YAML catalog file and validates it.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("progression: read catalog %s: %w", path, err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("progression: parse catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, fmt.Errorf("progression: catalog %s: %w", path, err)
	}
	return c, nil
}

// Validate checks the catalog for duplicate names, unusable values and
// requirements that no profile could ever meet.
func (c Catalog) Validate() error {
	if len(c.Subjects) == 0 && len(c.Skills) == 0 {
		return fmt.Errorf("catalog has no subjects or skills")
	}
	subjects := make(map[string]bool, len(c.Subjects))
	for _, s := range c.Subjects {
		if s.Name == "" {
			return fmt.Errorf("subject with empty name")
		}
		if subjects[s.Name] {
			return fmt.Errorf("duplicate subject %q", s.Name)
		}
		subjects[s.Name] = true
		if s.Difficulty <= 0 {
			return fmt.Errorf("subject %q: difficulty must be > 0", s.Name)
		}
	}
	skills := make(map[string]bool, len(c.Skills))
	for _, s := range c.Skills {
		if s.Name == "" {
			return fmt.Errorf("skill with empty name")
		}
		if skills[s.Name] {
			return fmt.Errorf("duplicate skill %q", s.Name)
		}
		skills[s.Name] = true
	}

	for _, s := range c.Skills {
		req := s.Requirement
		var known bool
		switch req.Kind {
		case RequireSubject:
			known = subjects[req.Target]
		case RequireStat:
			_, known = c.InitialStats[req.Target]
		case RequireSkill:
			known = skills[req.Target] && req.Target != s.Name
		default:
			return fmt.Errorf("skill %q: unknown requirement kind %q", s.Name, req.Kind)
		}
		if !known {
			return fmt.Errorf("skill %q: requirement names unknown %s %q", s.Name, req.Kind, req.Target)
		}
		if req.Level < 1 {
			return fmt.Errorf("skill %q: requirement level must be >= 1", s.Name)
		}
	}
	return nil
}

// clone returns a deep copy so callers cannot reach the engine's catalog.
func (c Catalog) clone() Catalog {
	return Catalog{
		InitialStats: maps.Clone(c.InitialStats),
		Subjects:     slices.Clone(c.Subjects),
		Skills:       slices.Clone(c.Skills),
	}
}

func (c Catalog) subject(name string) (SubjectDef, bool) {
	for _, s := range c.Subjects {
		if s.Name == name {
			return s, true
		}
	}
	return SubjectDef{}, false
}

func (c Catalog) skill(name string) (SkillDef, bool) {
	for _, s := range c.Skills {
		if s.Name == name {
			return s, true
		}
	}
	return SkillDef{}, false
}
