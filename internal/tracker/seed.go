package tracker

import (
	"context"
	"fmt"

	"github.com/jonathan/pathway-tracker/internal/config"
	"go.uber.org/zap"
)

// SeedReport counts the records Seed wrote.
type SeedReport struct {
	Stages       int `json:"stages"`
	Rules        int `json:"rules"`
	Integrations int `json:"integrations"`
	Forms        int `json:"forms"`
	Courses      int `json:"courses"`
}

// Seed writes each seed collection whose store collection is still empty.
// Collections that already hold records are left alone, so Seed is safe to
// run on every start.
func (s *Service) Seed(ctx context.Context, seed *config.Seed) (*SeedReport, error) {
	report := &SeedReport{}

	stages, err := s.store.ListStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	if len(stages) == 0 && len(seed.Stages) > 0 {
		if err := s.store.SaveStages(ctx, seed.Stages); err != nil {
			return nil, fmt.Errorf("failed to seed stages: %w", err)
		}
		report.Stages = len(seed.Stages)
	}

	rules, err := s.store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	if len(rules) == 0 {
		for i := range seed.Rules {
			if err := s.store.SaveRule(ctx, &seed.Rules[i]); err != nil {
				return nil, fmt.Errorf("failed to seed rule %s: %w", seed.Rules[i].ID, err)
			}
			report.Rules++
		}
	}

	integrations, err := s.store.ListIntegrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	if len(integrations) == 0 {
		for i := range seed.Integrations {
			if err := s.store.SaveIntegration(ctx, &seed.Integrations[i]); err != nil {
				return nil, fmt.Errorf("failed to seed integration %s: %w", seed.Integrations[i].ID, err)
			}
			report.Integrations++
		}
	}

	forms, err := s.store.ListForms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	if len(forms) == 0 {
		now := s.now()
		for i := range seed.Forms {
			if seed.Forms[i].CreatedAt.IsZero() {
				seed.Forms[i].CreatedAt = now
			}
			if err := s.store.SaveForm(ctx, &seed.Forms[i]); err != nil {
				return nil, fmt.Errorf("failed to seed form %s: %w", seed.Forms[i].ID, err)
			}
			report.Forms++
		}
	}

	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	if len(courses) == 0 {
		for i := range seed.Courses {
			if err := s.store.SaveCourse(ctx, &seed.Courses[i]); err != nil {
				return nil, fmt.Errorf("failed to seed course %s: %w", seed.Courses[i].ID, err)
			}
			report.Courses++
		}
	}

	s.logger.Info("seed applied",
		zap.Int("stages", report.Stages),
		zap.Int("rules", report.Rules),
		zap.Int("integrations", report.Integrations),
		zap.Int("forms", report.Forms),
		zap.Int("courses", report.Courses),
	)
	return report, nil
}
