package main

import (
	"fmt"

	"github.com/jonathan/pathway-tracker/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the PostgreSQL schema",
	Long:  "Create the tracker tables in the database named by DATABASE_URL. Safe to run repeatedly.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.close()

		database, ok := a.store.(*db.DB)
		if !ok {
			return fmt.Errorf("migrate requires a PostgreSQL store")
		}
		if err := database.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
