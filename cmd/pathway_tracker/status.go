package main

import (
	"context"
	"io"

	"github.com/jonathan/pathway-tracker/internal/observability"
	"github.com/jonathan/pathway-tracker/internal/tracker"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline occupancy and integration health",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.close()
		return runStatus(cmd.Context(), a.service(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(ctx context.Context, svc *tracker.Service, out io.Writer) error {
	dash, err := svc.Dashboard(ctx, cliPrincipal)
	if err != nil {
		return err
	}
	integrations, err := svc.ListIntegrations(ctx, cliPrincipal)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(out)
	printer.PrintStages(dash.Stages, dash.ByStage)
	printer.PrintIntegrations(integrations)
	return nil
}
