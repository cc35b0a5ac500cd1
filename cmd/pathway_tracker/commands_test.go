package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/pathway-tracker/internal/config"
	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/store/memory"
	"github.com/jonathan/pathway-tracker/internal/tracker"
	"github.com/jonathan/pathway-tracker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const visitorsCSV = "Full Name,Email,Phone\nSam Smith,sam@x.com,555-0100\n\"Lee, Jr\",lee@x.com,\n"

// newSeededService returns a tracker over a seeded in-memory store.
func newSeededService(t *testing.T, opts ...tracker.Option) *tracker.Service {
	t.Helper()
	svc := tracker.New(memory.New(), opts...)
	seed, err := config.DefaultSeed()
	require.NoError(t, err)
	_, err = svc.Seed(context.Background(), seed)
	require.NoError(t, err)
	return svc
}

func TestRunSeed(t *testing.T) {
	svc := tracker.New(memory.New())
	seed, err := config.DefaultSeed()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runSeed(context.Background(), svc, seed, &out))
	assert.Contains(t, out.String(), "PIPELINE")
	assert.Contains(t, out.String(), "Seeded ")

	// a second run leaves populated collections alone
	out.Reset()
	require.NoError(t, runSeed(context.Background(), svc, seed, &out))
	assert.Contains(t, out.String(), "Seeded 0 stages, 0 rules")
}

func TestRunImport_File(t *testing.T) {
	svc := newSeededService(t)
	path := filepath.Join(t.TempDir(), "visitors.csv")
	require.NoError(t, os.WriteFile(path, []byte(visitorsCSV), 0o600))

	var out bytes.Buffer
	require.NoError(t, runImport(context.Background(), svc, "int-connect-card", path, &out))
	assert.Contains(t, out.String(), "IMPORT RESULT")
	assert.Contains(t, out.String(), "Sam Smith")

	members, err := svc.ListMembers(context.Background(), cliPrincipal, store.MemberFilter{})
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestRunImport_Errors(t *testing.T) {
	svc := newSeededService(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		integrationID string
		path          string
	}{
		{name: "missing file", integrationID: "int-connect-card", path: filepath.Join(t.TempDir(), "nope.csv")},
		{name: "unknown integration", integrationID: "missing", path: writeTemp(t, visitorsCSV)},
		{name: "empty csv", integrationID: "int-connect-card", path: writeTemp(t, "  ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, runImport(ctx, svc, tt.integrationID, tt.path, &out))
		})
	}
}

func TestRunImport_SyncAllReportsFailures(t *testing.T) {
	failing := func(context.Context, string) (string, error) {
		return "", errors.New("connection refused")
	}
	svc := newSeededService(t, tracker.WithSheetFetcher(failing))
	ctx := context.Background()
	_, err := svc.SaveIntegration(ctx, cliPrincipal, types.IntegrationConfig{
		SourceName:    "Guest Sheet",
		SheetURL:      "https://docs.google.com/spreadsheets/d/abc123/edit#gid=0",
		TargetPathway: types.PathwayNewcomer,
		TargetStageID: "nc-1",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	err = runImport(ctx, svc, "all", "", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 integrations failed")
	assert.Contains(t, out.String(), "Guest Sheet")
}

func TestRunStatus(t *testing.T) {
	svc := newSeededService(t)
	ctx := context.Background()
	_, err := svc.ImportCSV(ctx, cliPrincipal, "int-connect-card", visitorsCSV)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runStatus(ctx, svc, &out))
	assert.Contains(t, out.String(), "PIPELINE")
	assert.Contains(t, out.String(), "(2)")
	assert.Contains(t, out.String(), "INTEGRATIONS")
}

// Runs before TestCommands_RequireDatabase: cobra keeps flag state between executions.
func TestImportCommand_RequiresIntegrationFlag(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	rootCmd.SetArgs([]string{"import", "--file", "x.csv"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integration")
}

func TestCommands_RequireDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	for _, args := range [][]string{
		{"migrate"},
		{"seed"},
		{"status"},
		{"import", "--integration", "int-connect-card"},
	} {
		t.Run(args[0], func(t *testing.T) {
			rootCmd.SetArgs(args)
			err := rootCmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "DATABASE_URL")
		})
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
