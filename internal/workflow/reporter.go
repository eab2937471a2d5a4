package workflow

import (
	"log/slog"
	"os"

	"nextcloud-stress/internal/report"
)

// LogReporter sends progress to a logger and writes the HTML report to
// Path, when set.
type LogReporter struct {
	Logger *slog.Logger
	Path   string
}

func (r LogReporter) Broadcast(msg string) {
	r.Logger.Info(msg)
}

func (r LogReporter) SendResult(data report.ReportData) {
	r.Logger.Debug("result", "run", data.RunID, "nodes", len(data.Nodes), "size_rows", len(data.SizeRows), "completed", data.Completed)
}

func (r LogReporter) SaveReport(html []byte) {
	if r.Path == "" {
		return
	}
	if err := os.WriteFile(r.Path, html, 0o644); err != nil {
		r.Logger.Error("writing report", "path", r.Path, "error", err)
		return
	}
	r.Logger.Info("report written", "path", r.Path)
}
