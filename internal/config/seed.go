package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/jonathan/pathway-tracker/internal/pipeline"
	"github.com/jonathan/pathway-tracker/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed default_seed.yaml
var defaultSeed []byte

// Seed describes the records written into an empty store.
type Seed struct {
	Stages       []types.Stage             `yaml:"stages"`
	Rules        []types.AutomationRule    `yaml:"rules"`
	Integrations []types.IntegrationConfig `yaml:"integrations"`
	Forms        []types.Form              `yaml:"forms"`
	Courses      []types.Course            `yaml:"courses"`
}

// DefaultSeed returns the built-in pipelines, rules, forms and courses.
func DefaultSeed() (*Seed, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeed reads a seed file. An empty path returns DefaultSeed.
func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return DefaultSeed()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates seed YAML.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	for p := range s.Stages {
		s.Stages[p].Pathway = normalizePathway(s.Stages[p].Pathway)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var ordered []types.Stage
	for _, p := range types.Pathways {
		ordered = append(ordered, pipeline.Renumber(pipeline.StagesFor(s.Stages, p))...)
	}
	s.Stages = ordered
	return &s, nil
}

func normalizePathway(p types.Pathway) types.Pathway {
	if parsed, ok := types.ParsePathway(string(p)); ok {
		return parsed
	}
	return p
}

// Validate checks ids are unique and every stage reference resolves to a
// stage of the right pathway.
func (s *Seed) Validate() error {
	stages := make(map[string]types.Stage, len(s.Stages))
	for _, st := range s.Stages {
		if st.ID == "" || st.Name == "" {
			return fmt.Errorf("seed error: stage needs an id and a name")
		}
		if !st.Pathway.Valid() {
			return fmt.Errorf("seed error: stage %s has unknown pathway %q", st.ID, st.Pathway)
		}
		if _, dup := stages[st.ID]; dup {
			return fmt.Errorf("seed error: duplicate stage id %s", st.ID)
		}
		stages[st.ID] = st
	}

	seen := map[string]bool{}
	for _, r := range s.Rules {
		if seen[r.ID] || r.ID == "" {
			return fmt.Errorf("seed error: rule id %q is empty or duplicated", r.ID)
		}
		seen[r.ID] = true
		if _, ok := stages[r.StageID]; !ok {
			return fmt.Errorf("seed error: rule %s references unknown stage %s", r.ID, r.StageID)
		}
		if !r.Priority.Valid() {
			return fmt.Errorf("seed error: rule %s has invalid priority %q", r.ID, r.Priority)
		}
		if r.DaysDue < 0 {
			return fmt.Errorf("seed error: rule %s has negative days_due", r.ID)
		}
	}

	for _, in := range s.Integrations {
		if err := checkTarget(stages, "integration "+in.ID, in.TargetPathway, in.TargetStageID); err != nil {
			return err
		}
	}
	for _, f := range s.Forms {
		if err := checkTarget(stages, "form "+f.ID, f.TargetPathway, f.TargetStageID); err != nil {
			return err
		}
		for _, field := range f.Fields {
			if !field.Type.Valid() {
				return fmt.Errorf("seed error: form %s field %s has unknown type %q", f.ID, field.ID, field.Type)
			}
		}
	}
	for _, c := range s.Courses {
		for _, m := range c.Modules {
			for _, q := range m.Quiz {
				if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
					return fmt.Errorf("seed error: question %s in course %s has no valid answer", q.ID, c.ID)
				}
			}
		}
	}
	return nil
}

func checkTarget(stages map[string]types.Stage, owner string, pathway types.Pathway, stageID string) error {
	st, ok := stages[stageID]
	if !ok {
		return fmt.Errorf("seed error: %s targets unknown stage %s", owner, stageID)
	}
	if st.Pathway != pathway {
		return fmt.Errorf("seed error: %s targets stage %s outside pathway %s", owner, stageID, pathway)
	}
	return nil
}
