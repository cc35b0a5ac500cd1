package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/pipeline"
	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// StageInput creates or renames a stage. Order is 1-based; zero appends.
type StageInput struct {
	ID          string        `json:"id"`
	Pathway     types.Pathway `json:"pathway" validate:"required"`
	Name        string        `json:"name" validate:"required"`
	Description string        `json:"description"`
	Order       int           `json:"order" validate:"min=0"`
}

// ListStages returns stages ordered by pathway then order. An empty pathway
// returns every stage.
func (s *Service) ListStages(ctx context.Context, p permissions.Principal, pathway types.Pathway) ([]types.Stage, error) {
	if err := permissions.Require(p, permissions.PipelineView); err != nil {
		return nil, err
	}
	all, err := s.stages(ctx)
	if err != nil {
		return nil, err
	}
	if pathway == "" {
		return all, nil
	}
	return pipeline.StagesFor(all, pathway), nil
}

// SaveStage creates or updates a stage and renumbers its pathway.
func (s *Service) SaveStage(ctx context.Context, p permissions.Principal, in StageInput) (*types.Stage, error) {
	if err := permissions.Require(p, permissions.PipelineEdit); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !in.Pathway.Valid() {
		return nil, invalid("pathway", "unknown pathway %q", in.Pathway)
	}

	all, err := s.stages(ctx)
	if err != nil {
		return nil, err
	}
	stages := pipeline.StagesFor(all, in.Pathway)

	stage := types.Stage{ID: in.ID, Pathway: in.Pathway, Name: in.Name, Description: in.Description}
	if stage.ID == "" {
		stage.ID = uuid.NewString()
	} else {
		for _, existing := range all {
			if existing.ID != stage.ID {
				continue
			}
			if existing.Pathway != in.Pathway {
				return nil, invalid("pathway", "stage %s belongs to pathway %s", existing.ID, existing.Pathway)
			}
			stage.AutoAdvanceRule = existing.AutoAdvanceRule
		}
	}

	if idx := pipeline.IndexOf(stages, stage.ID); idx >= 0 {
		stages = append(stages[:idx:idx], stages[idx+1:]...)
	}
	pos := len(stages)
	if in.Order > 0 && in.Order-1 < pos {
		pos = in.Order - 1
	}
	stages = append(stages[:pos:pos], append([]types.Stage{stage}, stages[pos:]...)...)
	for i := range stages {
		stages[i].Order = i + 1
	}

	if err := s.store.SaveStages(ctx, stages); err != nil {
		return nil, fmt.Errorf("failed to save stages: %w", err)
	}
	saved := stages[pos]
	return &saved, nil
}

// DeleteStage removes a stage nothing refers to and renumbers the rest of
// its pathway. Members, rules, integrations and forms all count as references.
func (s *Service) DeleteStage(ctx context.Context, p permissions.Principal, id string) error {
	if err := permissions.Require(p, permissions.PipelineEdit); err != nil {
		return err
	}
	stage, err := s.store.GetStage(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load stage: %w", err)
	}
	if stage == nil {
		return notFound("stage", id)
	}

	members, err := s.store.ListMembers(ctx, store.MemberFilter{StageID: id})
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	rules, err := s.rules(ctx)
	if err != nil {
		return err
	}
	integrations, err := s.store.ListIntegrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list integrations: %w", err)
	}
	forms, err := s.store.ListForms(ctx)
	if err != nil {
		return fmt.Errorf("failed to list forms: %w", err)
	}
	refs := pipeline.StageRefs{Members: members, Rules: rules, Integrations: integrations, Forms: forms}
	if err := pipeline.ValidateStageDeletion(id, refs); err != nil {
		return err
	}

	if err := s.store.DeleteStage(ctx, id); err != nil {
		return fmt.Errorf("failed to delete stage: %w", err)
	}
	all, err := s.stages(ctx)
	if err != nil {
		return err
	}
	if err := s.store.SaveStages(ctx, pipeline.Renumber(pipeline.StagesFor(all, stage.Pathway))); err != nil {
		return fmt.Errorf("failed to renumber stages: %w", err)
	}
	return nil
}

// ReorderStages sets the order of a pathway's stages to ids.
func (s *Service) ReorderStages(ctx context.Context, p permissions.Principal, pathway types.Pathway, ids []string) ([]types.Stage, error) {
	if err := permissions.Require(p, permissions.PipelineEdit); err != nil {
		return nil, err
	}
	if !pathway.Valid() {
		return nil, invalid("pathway", "unknown pathway %q", pathway)
	}
	all, err := s.stages(ctx)
	if err != nil {
		return nil, err
	}
	reordered, err := pipeline.Reorder(pipeline.StagesFor(all, pathway), ids)
	if err != nil {
		return nil, invalid("stage_ids", "%v", err)
	}
	if err := s.store.SaveStages(ctx, reordered); err != nil {
		return nil, fmt.Errorf("failed to save stages: %w", err)
	}
	return reordered, nil
}

// RuleInput creates or updates an automation rule.
type RuleInput struct {
	ID              string         `json:"id"`
	StageID         string         `json:"stage_id" validate:"required"`
	TaskDescription string         `json:"task_description" validate:"required"`
	DaysDue         int            `json:"days_due" validate:"min=0,max=365"`
	Priority        types.Priority `json:"priority"`
	Enabled         *bool          `json:"enabled"`
}

// ListRules returns every automation rule.
func (s *Service) ListRules(ctx context.Context, p permissions.Principal) ([]types.AutomationRule, error) {
	if err := permissions.Require(p, permissions.PipelineView); err != nil {
		return nil, err
	}
	return s.rules(ctx)
}

// SaveRule creates or updates a rule bound to an existing stage. New rules
// are enabled unless Enabled says otherwise.
func (s *Service) SaveRule(ctx context.Context, p permissions.Principal, in RuleInput) (*types.AutomationRule, error) {
	if err := permissions.Require(p, permissions.AutomationManage); err != nil {
		return nil, err
	}
	in.TaskDescription = strings.TrimSpace(in.TaskDescription)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Priority == "" {
		in.Priority = types.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, invalid("priority", "unknown priority %q", in.Priority)
	}
	stage, err := s.store.GetStage(ctx, in.StageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage: %w", err)
	}
	if stage == nil {
		return nil, invalid("stage_id", "unknown stage %s", in.StageID)
	}

	rule := types.AutomationRule{
		ID:              in.ID,
		StageID:         in.StageID,
		TaskDescription: in.TaskDescription,
		DaysDue:         in.DaysDue,
		Priority:        in.Priority,
		Enabled:         true,
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	} else if existing, err := s.store.GetRule(ctx, rule.ID); err != nil {
		return nil, fmt.Errorf("failed to load rule: %w", err)
	} else if existing != nil {
		rule.Enabled = existing.Enabled
	}
	if in.Enabled != nil {
		rule.Enabled = *in.Enabled
	}

	if err := s.store.SaveRule(ctx, &rule); err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}
	return &rule, nil
}

// DeleteRule removes a rule.
func (s *Service) DeleteRule(ctx context.Context, p permissions.Principal, id string) error {
	if err := permissions.Require(p, permissions.AutomationManage); err != nil {
		return err
	}
	rule, err := s.store.GetRule(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load rule: %w", err)
	}
	if rule == nil {
		return notFound("rule", id)
	}
	if err := s.store.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}
