package db

import (
	"context"

	"github.com/jonathan/pathway-tracker/internal/pipeline"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// ListStages returns every stage, grouped by pathway and sorted by order.
func (db *DB) ListStages(ctx context.Context) ([]types.Stage, error) {
	stages, err := listDocs[types.Stage](ctx, db, tableStages)
	if err != nil {
		return nil, err
	}
	var out []types.Stage
	for _, p := range types.Pathways {
		out = append(out, pipeline.StagesFor(stages, p)...)
	}
	return out, nil
}

// GetStage retrieves a stage by ID
func (db *DB) GetStage(ctx context.Context, id string) (*types.Stage, error) {
	return getDoc[types.Stage](ctx, db, tableStages, id)
}

// SaveStages upserts stages in one batch.
func (db *DB) SaveStages(ctx context.Context, stages []types.Stage) error {
	return putDocs(ctx, db, tableStages, stages, func(s types.Stage) string { return s.ID })
}

// DeleteStage removes a stage.
func (db *DB) DeleteStage(ctx context.Context, id string) error {
	return deleteDoc(ctx, db, tableStages, id)
}

// ListRules returns every automation rule.
func (db *DB) ListRules(ctx context.Context) ([]types.AutomationRule, error) {
	return listDocs[types.AutomationRule](ctx, db, tableRules)
}

// GetRule retrieves a rule by ID
func (db *DB) GetRule(ctx context.Context, id string) (*types.AutomationRule, error) {
	return getDoc[types.AutomationRule](ctx, db, tableRules, id)
}

// SaveRule upserts a rule.
func (db *DB) SaveRule(ctx context.Context, r *types.AutomationRule) error {
	return putDoc(ctx, db, tableRules, r.ID, r)
}

// DeleteRule removes a rule.
func (db *DB) DeleteRule(ctx context.Context, id string) error {
	return deleteDoc(ctx, db, tableRules, id)
}

// ListIntegrations returns every integration config.
func (db *DB) ListIntegrations(ctx context.Context) ([]types.IntegrationConfig, error) {
	return listDocs[types.IntegrationConfig](ctx, db, tableIntegrations)
}

// GetIntegration retrieves an integration by ID
func (db *DB) GetIntegration(ctx context.Context, id string) (*types.IntegrationConfig, error) {
	return getDoc[types.IntegrationConfig](ctx, db, tableIntegrations, id)
}

// SaveIntegration upserts an integration.
func (db *DB) SaveIntegration(ctx context.Context, c *types.IntegrationConfig) error {
	return putDoc(ctx, db, tableIntegrations, c.ID, c)
}

// DeleteIntegration removes an integration.
func (db *DB) DeleteIntegration(ctx context.Context, id string) error {
	return deleteDoc(ctx, db, tableIntegrations, id)
}
