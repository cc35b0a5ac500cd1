package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/pathway-tracker/internal/config"
	"github.com/jonathan/pathway-tracker/internal/db"
	"github.com/jonathan/pathway-tracker/internal/llm"
	"github.com/jonathan/pathway-tracker/internal/messaging"
	"github.com/jonathan/pathway-tracker/internal/observability"
	"github.com/jonathan/pathway-tracker/internal/server"
	"github.com/jonathan/pathway-tracker/internal/server/ratelimit"
	"github.com/jonathan/pathway-tracker/internal/tracker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes the tracker REST API. Without DATABASE_URL
the server runs on an in-memory store seeded with the default pipeline.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT and the config file)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()
	if servePort != 0 {
		a.cfg.Port = servePort
	}

	if database, ok := a.store.(*db.DB); ok {
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return fmt.Errorf("failed to create password config: %w", err)
	}

	metrics := observability.NewMetrics()
	opts := []tracker.Option{tracker.WithMetrics(metrics)}
	drafter, closeDrafter, err := newDrafter(ctx, a)
	if err != nil {
		return err
	}
	defer closeDrafter()
	opts = append(opts, tracker.WithDrafter(drafter))
	svc := a.service(opts...)

	seed, err := a.seed()
	if err != nil {
		return err
	}
	report, err := svc.Seed(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}
	a.logger.Debug("seed applied", zap.Any("report", report))

	srv, err := server.New(server.Config{
		Port:           a.cfg.Port,
		AllowedOrigins: a.cfg.AllowedOrigins,
		JWT:            jwtConfig,
		Password:       passwordConfig,
		RateLimit:      ratelimit.LoadConfig(),
		Logger:         a.logger,
		Metrics:        metrics,
	}, svc)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}

// newDrafter connects to Gemini when an API key is configured. Without a
// key drafting requests fail with a remediation message.
func newDrafter(ctx context.Context, a *app) (*messaging.Drafter, func(), error) {
	client, err := llm.NewGeminiClient(ctx, llm.LoadConfig(), a.cfg.GeminiAPIKey)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		a.logger.Warn("GEMINI_API_KEY not set; AI drafting disabled")
		return messaging.NewDrafter(nil), func() {}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return messaging.NewDrafter(client), func() { _ = client.Close() }, nil
}
