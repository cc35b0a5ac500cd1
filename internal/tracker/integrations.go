package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-tracker/internal/fetch"
	"github.com/jonathan/pathway-tracker/internal/ingestion"
	"github.com/jonathan/pathway-tracker/internal/observability"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SyncReport is the outcome of importing one integration.
type SyncReport struct {
	IntegrationID string            `json:"integration_id"`
	SourceName    string            `json:"source_name"`
	Result        *ingestion.Result `json:"result,omitempty"`
	Error         string            `json:"error,omitempty"`
	Warnings      []string          `json:"warnings,omitempty"`
}

// ListIntegrations returns every integration config.
func (s *Service) ListIntegrations(ctx context.Context, p permissions.Principal) ([]types.IntegrationConfig, error) {
	if err := permissions.RequireAny(p, permissions.IntegrationManage, permissions.IntegrationSync); err != nil {
		return nil, err
	}
	configs, err := s.store.ListIntegrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	return configs, nil
}

// SaveIntegration creates or updates an integration config. The target stage
// must belong to the target pathway and the sheet link must be resolvable.
func (s *Service) SaveIntegration(ctx context.Context, p permissions.Principal, cfg types.IntegrationConfig) (*types.IntegrationConfig, error) {
	if err := permissions.Require(p, permissions.IntegrationManage); err != nil {
		return nil, err
	}
	if err := s.checkIntegration(ctx, &cfg); err != nil {
		return nil, err
	}

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	} else if existing, err := s.store.GetIntegration(ctx, cfg.ID); err != nil {
		return nil, fmt.Errorf("failed to load integration: %w", err)
	} else if existing != nil {
		cfg.LastSync = existing.LastSync
		if cfg.Status == "" {
			cfg.Status = existing.Status
		}
		if cfg.Status == existing.Status {
			cfg.LastError = existing.LastError
		}
	}
	if cfg.Status == "" {
		cfg.Status = types.IntegrationActive
	}
	if cfg.Status != types.IntegrationError {
		cfg.LastError = ""
	}

	if err := s.store.SaveIntegration(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to save integration: %w", err)
	}
	return &cfg, nil
}

func (s *Service) checkIntegration(ctx context.Context, cfg *types.IntegrationConfig) error {
	cfg.SourceName = strings.TrimSpace(cfg.SourceName)
	cfg.SheetURL = strings.TrimSpace(cfg.SheetURL)
	if cfg.SourceName == "" {
		return invalid("source_name", "is required")
	}
	if !cfg.TargetPathway.Valid() {
		return invalid("target_pathway", "unknown pathway %q", cfg.TargetPathway)
	}
	switch cfg.Status {
	case "", types.IntegrationActive, types.IntegrationPaused, types.IntegrationError:
	default:
		return invalid("status", "unknown status %q", cfg.Status)
	}
	if cfg.SheetURL != "" {
		if _, err := ingestion.ResolveSheetURL(cfg.SheetURL); err != nil {
			return invalid("sheet_url", "%v", err)
		}
	}

	return s.checkTarget(ctx, cfg.TargetPathway, cfg.TargetStageID)
}

// DeleteIntegration removes an integration config. Imported members stay.
func (s *Service) DeleteIntegration(ctx context.Context, p permissions.Principal, id string) error {
	if err := permissions.Require(p, permissions.IntegrationManage); err != nil {
		return err
	}
	cfg, err := s.store.GetIntegration(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load integration: %w", err)
	}
	if cfg == nil {
		return notFound("integration", id)
	}
	if err := s.store.DeleteIntegration(ctx, id); err != nil {
		return fmt.Errorf("failed to delete integration: %w", err)
	}
	return nil
}

// SyncIntegration downloads the integration's sheet and imports new rows.
// Download failures mark the integration ERROR and are returned.
func (s *Service) SyncIntegration(ctx context.Context, p permissions.Principal, id string) (*SyncReport, error) {
	if err := permissions.Require(p, permissions.IntegrationSync); err != nil {
		return nil, err
	}
	cfg, err := s.store.GetIntegration(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}
	if cfg == nil {
		return nil, notFound("integration", id)
	}
	if cfg.SheetURL == "" {
		return nil, invalid("sheet_url", "integration %s has no sheet link", id)
	}

	raw, err := s.fetch(ctx, cfg.SheetURL)
	if err != nil {
		s.markFailed(ctx, cfg, err)
		return nil, err
	}
	return s.importSheet(ctx, p, cfg, raw)
}

// SyncAll imports every ACTIVE integration with a sheet link. Downloads run
// concurrently; rows are ingested one integration at a time so email
// deduplication sees members created by earlier integrations. A failing
// integration is reported without stopping the others.
func (s *Service) SyncAll(ctx context.Context, p permissions.Principal) ([]SyncReport, error) {
	if err := permissions.Require(p, permissions.IntegrationSync); err != nil {
		return nil, err
	}
	configs, err := s.store.ListIntegrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	var active []types.IntegrationConfig
	for _, c := range configs {
		if c.Status != types.IntegrationPaused && c.SheetURL != "" {
			active = append(active, c)
		}
	}

	bodies := make([]string, len(active))
	fetchErrs := make([]error, len(active))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.syncConcurrency)
	for i, c := range active {
		g.Go(func() error {
			bodies[i], fetchErrs[i] = s.fetch(gctx, c.SheetURL)
			return nil
		})
	}
	_ = g.Wait()

	reports := make([]SyncReport, 0, len(active))
	for i := range active {
		cfg := &active[i]
		if fetchErrs[i] != nil {
			s.markFailed(ctx, cfg, fetchErrs[i])
			reports = append(reports, SyncReport{IntegrationID: cfg.ID, SourceName: cfg.SourceName, Error: userMessage(fetchErrs[i])})
			continue
		}
		report, err := s.importSheet(ctx, p, cfg, bodies[i])
		if err != nil {
			reports = append(reports, SyncReport{IntegrationID: cfg.ID, SourceName: cfg.SourceName, Error: err.Error()})
			continue
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// ImportCSV ingests CSV text supplied by the caller using the stored
// integration's settings.
func (s *Service) ImportCSV(ctx context.Context, p permissions.Principal, id, raw string) (*SyncReport, error) {
	if err := permissions.Require(p, permissions.IntegrationSync); err != nil {
		return nil, err
	}
	cfg, err := s.store.GetIntegration(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}
	if cfg == nil {
		return nil, notFound("integration", id)
	}
	return s.importSheet(ctx, p, cfg, raw)
}

func (s *Service) importSheet(ctx context.Context, p permissions.Principal, cfg *types.IntegrationConfig, raw string) (*SyncReport, error) {
	if err := s.checkTarget(ctx, cfg.TargetPathway, cfg.TargetStageID); err != nil {
		s.markFailed(ctx, cfg, err)
		return nil, err
	}
	existing, err := s.store.ListMembers(ctx, store.MemberFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	now := s.now()
	res, err := ingestion.Ingest(raw, *cfg, existing, p.UserID, now)
	if err != nil {
		s.markFailed(ctx, cfg, err)
		return nil, invalid("csv", "%v", err)
	}

	report := &SyncReport{IntegrationID: cfg.ID, SourceName: cfg.SourceName, Result: res}
	if len(res.NewMembers) > 0 {
		if err := s.store.SaveMembers(ctx, res.NewMembers); err != nil {
			return nil, fmt.Errorf("failed to save imported members: %w", err)
		}
		s.metrics.MembersIngested(cfg.SourceName, len(res.NewMembers))
	}
	if len(res.NewTasks) > 0 {
		if err := s.store.SaveTasks(ctx, res.NewTasks); err != nil {
			s.logger.Error("import tasks not saved",
				zap.String("integration_id", cfg.ID),
				zap.Int("tasks", len(res.NewTasks)),
				zap.Error(err),
			)
			report.Warnings = append(report.Warnings, "members imported but follow-up tasks could not be stored")
		} else {
			s.metrics.TasksCreated(observability.TaskSourceImport, len(res.NewTasks))
		}
	}

	cfg.LastSync = &now
	cfg.LastError = ""
	if cfg.Status == types.IntegrationError {
		cfg.Status = types.IntegrationActive
	}
	if err := s.store.SaveIntegration(ctx, cfg); err != nil {
		s.logger.Warn("integration sync time not saved", zap.String("integration_id", cfg.ID), zap.Error(err))
	}

	s.logger.Info("sheet imported",
		zap.String("integration_id", cfg.ID),
		zap.String("source", cfg.SourceName),
		zap.Int("new_members", len(res.NewMembers)),
		zap.Int("new_tasks", len(res.NewTasks)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return report, nil
}

func (s *Service) markFailed(ctx context.Context, cfg *types.IntegrationConfig, cause error) {
	s.metrics.SyncFailed(cfg.ID)
	s.logger.Warn("integration sync failed", zap.String("integration_id", cfg.ID), zap.Error(cause))
	cfg.Status = types.IntegrationError
	cfg.LastError = userMessage(cause)
	if err := s.store.SaveIntegration(ctx, cfg); err != nil {
		s.logger.Warn("integration status not saved", zap.String("integration_id", cfg.ID), zap.Error(err))
	}
}

func userMessage(err error) string {
	var fe *fetch.Error
	if errors.As(err, &fe) {
		return fe.UserMessage()
	}
	return err.Error()
}
