package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextcloud-stress/internal/report"
)

func openMemory(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), MemoryPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func stressRun(id string, at time.Time) report.ReportData {
	return report.ReportData{
		RunID:       id,
		Kind:        "stress",
		GeneratedAt: at,
		Environment: "test",
		JobName:     "nightly",
		Settings:    report.Settings{Folder: "performance", Files: 10, MaxUploads: 5, MaxDeletes: 5},
		Nodes: []report.NodeResult{
			{Node: "node2", URL: "https://node2", Line: "node2 ...", Upload: report.PhaseResult{Ops: 10, Failed: 1, Duration: 2 * time.Second}, Delete: report.PhaseResult{Ops: 9, Duration: time.Second}},
			{Node: "node1", URL: "https://node1", Line: "node1 ...", Upload: report.PhaseResult{Ops: 10, Duration: 3 * time.Second}, Delete: report.PhaseResult{Ops: 10, Duration: time.Second}},
		},
		Completed: true,
	}
}

func TestSaveAndRecent(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, stressRun("a", base)))
	require.NoError(t, s.Save(ctx, stressRun("b", base.Add(time.Hour))))

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, "a", runs[1].ID)
	assert.True(t, runs[0].StartedAt.Equal(base.Add(time.Hour)))
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, 2, runs[0].Nodes)
	assert.True(t, runs[0].Completed)
	assert.Equal(t, "nightly", runs[0].Job)
	assert.Empty(t, runs[0].Errors)

	limited, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSaveReplacesRun(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	run := stressRun("a", time.Now())

	require.NoError(t, s.Save(ctx, run))
	run.Nodes = run.Nodes[:1]
	require.NoError(t, s.Save(ctx, run))

	nodes, err := s.Nodes(ctx, "a")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "node2", nodes[0].Node)
	assert.Equal(t, 2*time.Second, nodes[0].Upload)
	assert.Equal(t, 1, nodes[0].UploadFailed)
}

func TestSaveKeepsErrors(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	run := stressRun("a", time.Now())
	run.Errors = []string{"publish: uploading report.html: 403"}

	require.NoError(t, s.Save(ctx, run))

	runs, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.Errors, runs[0].Errors)
}

func TestNodesOrdered(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, stressRun("a", time.Now())))

	nodes, err := s.Nodes(ctx, "a")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "node1", nodes[0].Node)
	assert.Equal(t, "node2", nodes[1].Node)
}

func TestSaveSizes(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	run := report.ReportData{
		RunID:       "z",
		Kind:        "sizes",
		GeneratedAt: time.Now(),
		Environment: "prod",
		JobName:     "manual",
		Settings:    report.Settings{Files: 1, Sizes: []int64{100, 200}},
		SizeRows: []report.SizeResult{
			{Node: "node1", Upload: []report.PhaseResult{{Ops: 1, Duration: time.Second}, {Ops: 1, Failed: 1, Duration: time.Second}}},
		},
	}
	require.NoError(t, s.Save(ctx, run))

	runs, err := s.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "sizes", runs[0].Kind)
	assert.Equal(t, 1, runs[0].Nodes)
	assert.Equal(t, 1, runs[0].Failed)
}

func TestOpenFileReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := context.Background()

	s, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, stressRun("a", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
