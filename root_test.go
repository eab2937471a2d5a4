package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextcloud-stress/internal/config"
	"nextcloud-stress/internal/report"
)

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagVerbose, flagQuiet, flagJSON = false, false, false
		resolvedCfg = nil
	})
}

func TestBuildLoggerLevels(t *testing.T) {
	resetFlags(t)
	ctx := context.Background()

	resolvedCfg = &config.Resolved{Config: *config.DefaultConfig()}
	resolvedCfg.Logging.Level = "warn"
	logger := buildLogger()
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))

	flagVerbose = true
	assert.True(t, buildLogger().Enabled(ctx, slog.LevelDebug))

	flagQuiet = true
	logger = buildLogger()
	assert.False(t, logger.Enabled(ctx, slog.LevelWarn))
	assert.True(t, logger.Enabled(ctx, slog.LevelError))
}

func TestFinishRun(t *testing.T) {
	resetFlags(t)

	ok := report.ReportData{Kind: report.KindStress, Completed: true, Nodes: []report.NodeResult{{Node: "sunet", Line: "sunet ..."}}}
	require.NoError(t, finishRun(ok, nil, ""))

	failed := ok
	failed.Nodes = []report.NodeResult{{Node: "sunet", Upload: report.PhaseResult{Ops: 2, Failed: 1}}}
	assert.ErrorIs(t, finishRun(failed, nil, ""), errRunFailures)

	assert.ErrorIs(t, finishRun(ok, errors.New("boom"), ""), errRunFailures)
}

func TestFinishRunWritesResults(t *testing.T) {
	resetFlags(t)
	path := t.TempDir() + "/results.txt"

	rpt := report.ReportData{Kind: report.KindStress, RunID: "r1", Completed: true, Nodes: []report.NodeResult{{Node: "sunet", Line: "sunet line"}}}
	require.NoError(t, finishRun(rpt, nil, path))

	assert.FileExists(t, path)
}

func TestRootCommandTree(t *testing.T) {
	cmd := newRootCmd()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"stress", "sizes", "empty-trash", "clean", "status", "diagnose", "serve", "history"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "target", "nodes", "json", "verbose", "quiet"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}
