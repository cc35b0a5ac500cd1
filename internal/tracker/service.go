// Package tracker is the command layer of the pathway tracker. Every entry
// point checks the acting principal's permissions before touching the store,
// runs the pure pipeline, automation and ingestion logic, and persists the
// results.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/pathway-tracker/internal/fetch"
	"github.com/jonathan/pathway-tracker/internal/ingestion"
	"github.com/jonathan/pathway-tracker/internal/messaging"
	"github.com/jonathan/pathway-tracker/internal/observability"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/pipeline"
	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/types"
	"go.uber.org/zap"
)

// SheetFetcher downloads a sheet's CSV export.
type SheetFetcher func(ctx context.Context, sheetURL string) (string, error)

// Service executes tracker commands against a store.
type Service struct {
	store   store.Store
	now     func() time.Time
	logger  *zap.Logger
	metrics *observability.Metrics
	drafter *messaging.Drafter
	sender  messaging.Sender
	fetch   SheetFetcher

	syncConcurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDrafter enables AI drafting.
func WithDrafter(d *messaging.Drafter) Option {
	return func(s *Service) { s.drafter = d }
}

// WithSender sets the message sender.
func WithSender(sender messaging.Sender) Option {
	return func(s *Service) { s.sender = sender }
}

// WithFetchOptions configures sheet downloads.
func WithFetchOptions(opts *fetch.Options) Option {
	return func(s *Service) {
		s.fetch = func(ctx context.Context, url string) (string, error) {
			return ingestion.FetchSheet(ctx, url, opts)
		}
	}
}

// WithSheetFetcher replaces the sheet downloader.
func WithSheetFetcher(f SheetFetcher) Option {
	return func(s *Service) { s.fetch = f }
}

// WithSyncConcurrency caps concurrent sheet downloads in SyncAll.
func WithSyncConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.syncConcurrency = n
		}
	}
}

// New returns a Service over st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:           st,
		now:             time.Now,
		logger:          zap.NewNop(),
		drafter:         messaging.NewDrafter(nil),
		syncConcurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sender == nil {
		s.sender = &messaging.LogSender{Logger: s.logger}
	}
	if s.fetch == nil {
		s.fetch = func(ctx context.Context, url string) (string, error) {
			return ingestion.FetchSheet(ctx, url, nil)
		}
	}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() store.Store {
	return s.store
}

// authorName resolves the display name recorded on notes written by p.
func (s *Service) authorName(ctx context.Context, p permissions.Principal) string {
	if p.UserID == "" {
		return types.SystemAuthor
	}
	u, err := s.store.GetUser(ctx, p.UserID)
	if err != nil || u == nil || u.Name == "" {
		return p.UserID
	}
	return u.Name
}

func (s *Service) stages(ctx context.Context) ([]types.Stage, error) {
	stages, err := s.store.ListStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stages: %w", err)
	}
	return stages, nil
}

// checkTarget verifies that new members can be placed on stageID within pathway.
func (s *Service) checkTarget(ctx context.Context, pathway types.Pathway, stageID string) error {
	all, err := s.stages(ctx)
	if err != nil {
		return err
	}
	if err := pipeline.ValidateMemberStage(types.Member{Pathway: pathway, CurrentStageID: stageID}, all); err != nil {
		return stageError("target_stage_id", err)
	}
	return nil
}

func (s *Service) rules(ctx context.Context) ([]types.AutomationRule, error) {
	rules, err := s.store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load automation rules: %w", err)
	}
	return rules, nil
}
