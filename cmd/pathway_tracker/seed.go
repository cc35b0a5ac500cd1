package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jonathan/pathway-tracker/internal/config"
	"github.com/jonathan/pathway-tracker/internal/observability"
	"github.com/jonathan/pathway-tracker/internal/tracker"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load default stages, rules, forms and courses",
	Long: `Write the seed data into every empty collection. Collections that already
hold records are left untouched, so seeding twice is harmless.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.close()

		seed, err := a.seed()
		if err != nil {
			return err
		}
		return runSeed(cmd.Context(), a.service(), seed, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(ctx context.Context, svc *tracker.Service, seed *config.Seed, out io.Writer) error {
	report, err := svc.Seed(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to seed: %w", err)
	}
	fmt.Fprintf(out, "Seeded %d stages, %d rules, %d integrations, %d forms, %d courses\n",
		report.Stages, report.Rules, report.Integrations, report.Forms, report.Courses)

	stages, err := svc.ListStages(ctx, cliPrincipal, "")
	if err != nil {
		return err
	}
	observability.NewPrinter(out).PrintStages(stages, nil)
	return nil
}
