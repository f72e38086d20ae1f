package progression

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
initial_stats:
  Intelligence: 5
  Focus: 5
subjects:
  - name: Go
    difficulty: 1.25
    unlock_skill: Concurrency
skills:
  - name: Concurrency
    passive: Fewer races
    req: {subject: Go, level: 4}
  - name: Discipline
    passive: Less fatigue
    req:
      stat: Focus
      level: 12
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog(writeFile(t, catalogYAML))
	require.NoError(t, err)

	want := Catalog{
		InitialStats: map[string]int{"Intelligence": 5, "Focus": 5},
		Subjects:     []SubjectDef{{Name: "Go", Difficulty: 1.25, UnlockSkill: "Concurrency"}},
		Skills: []SkillDef{
			{Name: "Concurrency", Passive: "Fewer races", Requirement: Requirement{Kind: RequireSubject, Target: "Go", Level: 4}},
			{Name: "Discipline", Passive: "Less fatigue", Requirement: Requirement{Kind: RequireStat, Target: "Focus", Level: 12}},
		},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	tests := map[string]string{
		"two requirement keys": `
subjects: [{name: Go, difficulty: 1}]
skills:
  - name: X
    req: {subject: Go, stat: Focus, level: 1}
`,
		"no requirement key": `
subjects: [{name: Go, difficulty: 1}]
skills:
  - name: X
    req: {level: 1}
`,
		"zero difficulty": `
subjects: [{name: Go, difficulty: 0}]
`,
		"duplicate subject": `
subjects: [{name: Go, difficulty: 1}, {name: Go, difficulty: 2}]
`,
		"empty": `{}`,
		"unknown subject target": `
subjects: [{name: Go, difficulty: 1}]
skills:
  - name: X
    req: {subject: Golang, level: 2}
`,
		"unknown stat target": `
initial_stats: {Focus: 5}
subjects: [{name: Go, difficulty: 1}]
skills:
  - name: X
    req: {stat: Fokus, level: 10}
`,
		"unknown skill target": `
subjects: [{name: Go, difficulty: 1}]
skills:
  - name: X
    req: {skill: Y, level: 1}
`,
		"self requirement": `
subjects: [{name: Go, difficulty: 1}]
skills:
  - name: X
    req: {skill: X, level: 1}
`,
		"zero level": `
subjects: [{name: Go, difficulty: 1}]
skills:
  - name: X
    req: {subject: Go, level: 0}
`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCatalog(writeFile(t, body))
			assert.Error(t, err)
		})
	}

	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEngineCatalogIsACopy(t *testing.T) {
	e := NewEngine(DefaultCatalog(), DefaultConfig(), nil, nil)

	c := e.Catalog()
	c.InitialStats["Focus"] = 99
	c.Skills[0].Requirement.Level = 1

	again := e.Catalog()
	assert.Equal(t, 5, again.InitialStats["Focus"])
	assert.Equal(t, 3, again.Skills[0].Requirement.Level)
	assert.Equal(t, 5, e.NewProfile("u", "n").Player.Stats["Focus"])
}

func TestDefaultCatalogIsValid(t *testing.T) {
	c := DefaultCatalog()
	require.NoError(t, c.Validate())
	assert.Len(t, c.Subjects, 6)
	assert.Len(t, c.Skills, 6)
}
