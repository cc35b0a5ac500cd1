package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/pathway-tracker/internal/observability"
	"github.com/jonathan/pathway-tracker/internal/tracker"
	"github.com/spf13/cobra"
)

var (
	importIntegration string
	importFile        string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import members from a CSV file or sync an integration",
	Long: `Import members through an integration's column mapping. With --file the CSV is
read from disk; without it the integration's sheet URL is fetched. Pass
--integration all (without --file) to sync every integration.`,
	Example: `  pathway_tracker import --integration int-1 --file visitors.csv
  pathway_tracker import --integration all`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.close()
		return runImport(cmd.Context(), a.service(), importIntegration, importFile, cmd.OutOrStdout())
	},
}

func init() {
	importCmd.Flags().StringVarP(&importIntegration, "integration", "i", "", "Integration ID, or \"all\" to sync everything (required)")
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "CSV file to import instead of fetching the sheet")
	_ = importCmd.MarkFlagRequired("integration")
	rootCmd.AddCommand(importCmd)
}

func runImport(ctx context.Context, svc *tracker.Service, integrationID, path string, out io.Writer) error {
	var reports []tracker.SyncReport
	switch {
	case path != "":
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		report, err := svc.ImportCSV(ctx, cliPrincipal, integrationID, string(raw))
		if err != nil {
			return err
		}
		reports = append(reports, *report)
	case integrationID == "all":
		all, err := svc.SyncAll(ctx, cliPrincipal)
		if err != nil {
			return err
		}
		reports = all
	default:
		report, err := svc.SyncIntegration(ctx, cliPrincipal, integrationID)
		if err != nil {
			return err
		}
		reports = append(reports, *report)
	}

	printer := observability.NewPrinter(out)
	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
			fmt.Fprintf(out, "%s: %s\n", r.SourceName, r.Error)
			continue
		}
		printer.PrintImportResult(r.SourceName, r.Result)
		for _, w := range r.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d integrations failed", failed, len(reports))
	}
	return nil
}
