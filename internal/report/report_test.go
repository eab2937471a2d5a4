package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextcloud-stress/internal/network"
	"nextcloud-stress/internal/stress"
)

func sampleRecord() stress.Record {
	return stress.Record{
		Node:  "node1",
		Files: 10,
		Upload: stress.PhaseStats{
			Ops: 10, Waves: 2, Failed: 1, Elapsed: 2 * time.Second,
			Outcomes: []stress.Outcome{{Name: "performance/node13.bin", Err: errors.New("PUT operation failed: HTTP 507"), Submitted: true}},
		},
		Delete: stress.PhaseStats{Ops: 9, Waves: 3, Elapsed: time.Second},
	}
}

func sampleData() ReportData {
	return ReportData{
		RunID:       "7d3c",
		Kind:        "stress",
		GeneratedAt: time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		Environment: "test",
		JobName:     "manual",
		Settings:    Settings{Folder: "performance", Files: 10, FileSize: 100 * 1024, MaxUploads: 5, MaxDeletes: 4, WaveTimeout: time.Minute},
		Hostname:    "runner",
		SystemOS:    "linux",
		Nodes:       []NodeResult{Node(sampleRecord(), "https://node1.drive.test.example.org", "29.0.8")},
		Completed:   true,
	}
}

func TestNodeConversion(t *testing.T) {
	n := Node(sampleRecord(), "https://node1", "29")

	assert.Equal(t, "node1", n.Node)
	assert.Equal(t, sampleRecord().String(), n.Line)
	assert.Equal(t, 2, n.Upload.Waves)
	assert.InDelta(t, 5.0, n.Upload.FilesPerSec, 1e-9)
	assert.InDelta(t, 0.2, n.Upload.PerFile, 1e-9)
	assert.Equal(t, []string{"performance/node13.bin: PUT operation failed: HTTP 507"}, n.Errors)
	assert.True(t, n.Failed())
}

func TestGenerateHTML(t *testing.T) {
	html, err := GenerateHTML(sampleData())
	require.NoError(t, err)

	s := string(html)
	assert.Contains(t, s, "Drive WebDAV Stress Report")
	assert.Contains(t, s, "2026-10-17 09:30:00")
	assert.Contains(t, s, "10 x 100 KiB")
	assert.Contains(t, s, "node1")
	assert.Contains(t, s, "2.0s at 0.20 s/file - 5.00 files/s")
	assert.Contains(t, s, "(1 failed)")
	assert.Contains(t, s, "HTTP 507")
	assert.NotContains(t, s, "Network Diagnostics")
}

func TestGenerateHTMLWithDiagnosisAndSizes(t *testing.T) {
	data := sampleData()
	data.Kind = "sizes"
	data.Nodes = nil
	data.Settings.Sizes = []int64{100 << 20, 200 << 20}
	data.SizeRows = []SizeResult{{Node: "node1", Upload: []PhaseResult{{Ops: 1, Duration: 3 * time.Second}, {Ops: 1, Duration: 7 * time.Second}}}}
	data.Diagnosis = &network.Diagnosis{
		Host:       "node1.drive.test.example.org",
		Ping:       network.DetailedPingStats{Count: 10, AvgMs: 70, PacketLoss: 0},
		Traceroute: []network.Hop{{TTL: 1, Address: "*"}},
	}

	html, err := GenerateHTML(data)
	require.NoError(t, err)

	s := string(html)
	assert.Contains(t, s, "File Size Report")
	assert.Contains(t, s, "100 MiB")
	assert.Contains(t, s, "7.0s")
	assert.Contains(t, s, "Network Diagnostics (node1.drive.test.example.org)")
	assert.Contains(t, s, colorRed, "slow ping is flagged")
	assert.Contains(t, s, " 1: *")
}

func TestGenerateText(t *testing.T) {
	text := string(GenerateText(sampleData()))
	lines := strings.Split(text, "\n")

	assert.Equal(t, "# stress run 7d3c (test/manual) 2026-10-17 09:30:00", lines[0])
	assert.Equal(t, "# 10 x 100 KiB in performance, waves 5/4", lines[1])
	assert.Equal(t, sampleRecord().String(), lines[2])
	assert.Contains(t, text, "1 error(s):")
	assert.Contains(t, text, "node1: performance/node13.bin")
}

func TestGenerateTextSizes(t *testing.T) {
	row := stress.SizeRow{Node: "node1", Sizes: []int64{100, 200}, Upload: []stress.PhaseStats{{Ops: 1, Elapsed: time.Second}, {Ops: 1, Elapsed: 2 * time.Second}}}
	data := ReportData{Kind: "sizes", Settings: Settings{Files: 1, Folder: "f", Sizes: row.Sizes}, SizeRows: []SizeResult{Sizes(row)}}

	text := string(GenerateText(data))
	assert.Contains(t, text, stress.SizesHeader(row.Sizes)+"\n"+row.String()+"\n")
	assert.Equal(t, 0, data.TotalFailed())
}

func TestPhaseDot(t *testing.T) {
	assert.Contains(t, string(GetPhaseDot(PhaseResult{Ops: 10})), colorGreen)
	assert.Contains(t, string(GetPhaseDot(PhaseResult{Ops: 10, Failed: 1})), colorYellow)
	assert.Contains(t, string(GetPhaseDot(PhaseResult{Ops: 10, Failed: 5})), colorRed)
}
