// Package workflow drives stress and size-matrix runs across the nodes of a
// target and feeds progress to a Reporter.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"nextcloud-stress/internal/config"
	"nextcloud-stress/internal/history"
	"nextcloud-stress/internal/network"
	"nextcloud-stress/internal/publish"
	"nextcloud-stress/internal/report"
	"nextcloud-stress/internal/stress"
	"nextcloud-stress/internal/system"
	"nextcloud-stress/internal/target"
	"nextcloud-stress/internal/webdav"
)

// Reporter defines the interface for communicating progress and results back to the UI/Caller.
type Reporter interface {
	Broadcast(msg string)
	SendResult(data report.ReportData)
	SaveReport(html []byte)
}

// Deps is everything a run needs. History and Publisher are optional.
type Deps struct {
	Config    *config.Resolved
	Target    *target.Target
	Creds     target.CredentialSource
	History   *history.Store
	Publisher *publish.Publisher
	Logger    *slog.Logger

	// Nodes overrides the target's full node list.
	Nodes []string
	// NodeURL overrides Target.NodeURL.
	NodeURL func(node string) string

	UseAppPassword bool

	// Diagnose, when set, measures the network path to the first node
	// before a stress run.
	Diagnose *network.DiagnoseOptions
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

func (d Deps) nodes() []string {
	if len(d.Nodes) > 0 {
		return d.Nodes
	}
	return d.Target.FullNodes
}

func (d Deps) nodeURL(node string) string {
	if d.NodeURL != nil {
		return d.NodeURL(node)
	}
	return d.Target.NodeURL(node)
}

// Client resolves the node's credentials and returns a WebDAV client for it
// along with the node URL.
func (d Deps) Client(ctx context.Context, node string) (*webdav.Client, string, error) {
	url := d.nodeURL(node)

	creds, err := d.Target.WebDAVCredentials(ctx, d.Creds, node, d.UseAppPassword)
	if err != nil {
		return nil, url, fmt.Errorf("credentials: %w", err)
	}

	cfg := d.Config
	client := webdav.NewClient(url, creds.User, creds.Password,
		webdav.WithLogger(d.logger().With("node", node)),
		webdav.WithTimeout(cfg.HTTPTimeout),
		webdav.WithInsecureSkipVerify(cfg.WebDAV.InsecureSkipVerify),
		webdav.WithChunking(cfg.ChunkSize, cfg.ChunkThreshold),
		webdav.WithUserAgent(cfg.WebDAV.UserAgent),
	)

	return client, url, nil
}

// connect builds the node's client and checks it can log in.
func (d Deps) connect(ctx context.Context, node string, reporter Reporter) (*webdav.Client, string, string, error) {
	client, url, err := d.Client(ctx, node)
	if err != nil {
		return nil, url, "", err
	}

	reporter.Broadcast(fmt.Sprintf("Connecting to %s...", url))
	caps, err := client.GetCapabilities(ctx)
	if err != nil {
		return nil, url, "", fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	ver := caps.Ocs.Data.Version.String
	reporter.Broadcast(fmt.Sprintf("Connected! %s runs Nextcloud %s", node, ver))

	return client, url, ver, nil
}

func (d Deps) newReport(kind string) report.ReportData {
	return report.ReportData{
		RunID:       uuid.NewString(),
		Kind:        kind,
		GeneratedAt: time.Now(),
		Environment: d.Target.Environment,
		JobName:     d.Config.Target.JobName,
	}
}

// collectSystem fills in the client machine. Failures only warn.
func (d Deps) collectSystem(ctx context.Context, rpt *report.ReportData, reporter Reporter) {
	reporter.Broadcast("Collecting System Information...")

	sys, err := system.GetSystemInfo(ctx, config.CPUMonitorInterval)
	if err != nil {
		reporter.Broadcast(fmt.Sprintf("Warning: Could not get system info: %v", err))
		rpt.SystemOS = "Unknown"
		rpt.CPU = report.CPUInfo{Model: "Unknown"}
		rpt.RAM = report.RAMInfo{Total: "Unknown", Free: "Unknown", Used: "Unknown"}
		return
	}

	rpt.Hostname = sys.Hostname
	rpt.SystemOS = fmt.Sprintf("%s %s", sys.Platform, sys.PlatformVersion)
	rpt.CPU = report.CPUInfo{Model: sys.CPUModel, Usage: sys.CPUUsage, Cores: sys.CPUCores}
	rpt.RAM = report.RAMInfo{
		Total: humanize.IBytes(sys.RAMTotal),
		Free:  humanize.IBytes(sys.RAMFree),
		Used:  humanize.IBytes(sys.RAMUsed),
		Usage: sys.RAMUsage,
	}
	reporter.Broadcast("System: " + sys.Summary())
	reporter.SendResult(*rpt)
}

func (d Deps) diagnose(ctx context.Context, rpt *report.ReportData, node string, reporter Reporter) {
	opts := *d.Diagnose
	opts.Progress = reporter.Broadcast
	opts.Insecure = d.Config.WebDAV.InsecureSkipVerify

	diag, err := network.Diagnose(ctx, d.nodeURL(node), opts)
	if err != nil {
		reporter.Broadcast(fmt.Sprintf("Diagnostics Warning: %v", err))
	}
	if diag == nil {
		return
	}

	rpt.Diagnosis = diag
	reporter.Broadcast(fmt.Sprintf("Ping %s: Avg=%.2fms | Min=%.2fms | Max=%.2fms | Loss=%.1f%%",
		diag.TCPTarget, diag.Ping.AvgMs, diag.Ping.MinMs, diag.Ping.MaxMs, diag.Ping.PacketLoss))
	reporter.SendResult(*rpt)
}

// RunStress runs the upload/delete harness against every node in turn.
// Node failures are recorded in the report and do not stop the remaining
// nodes; the returned error joins them.
func RunStress(ctx context.Context, deps Deps, reporter Reporter) (report.ReportData, error) {
	cfg := deps.Config
	rpt := deps.newReport(report.KindStress)
	rpt.Settings = report.Settings{
		Folder:      cfg.Stress.Folder,
		Files:       cfg.Stress.Files,
		FileSize:    cfg.FileSize,
		MaxUploads:  cfg.Stress.MaxUploads,
		MaxDeletes:  cfg.Stress.MaxDeletes,
		WaveTimeout: cfg.WaveTimeout,
	}

	nodes := deps.nodes()
	reporter.Broadcast(fmt.Sprintf("Starting stress run %s: %d nodes, %d files of %s", rpt.RunID, len(nodes), cfg.Stress.Files, humanize.IBytes(uint64(max(cfg.FileSize, 0)))))
	deps.collectSystem(ctx, &rpt, reporter)
	if deps.Diagnose != nil && len(nodes) > 0 {
		deps.diagnose(ctx, &rpt, nodes[0], reporter)
	}

	results := &stress.Results{}
	var runErr error

	for _, node := range nodes {
		if ctx.Err() != nil {
			break
		}

		res, err := deps.stressNode(ctx, node, results, reporter)
		rpt.Nodes = append(rpt.Nodes, res)
		if err != nil {
			reporter.Broadcast(fmt.Sprintf("%s: %v", node, err))
			runErr = errors.Join(runErr, fmt.Errorf("%s: %w", node, err))
		}
		reporter.SendResult(rpt)
	}

	deps.finish(ctx, &rpt, reporter)

	if runErr == nil {
		runErr = ctx.Err()
	}

	return rpt, runErr
}

func (d Deps) stressNode(ctx context.Context, node string, results *stress.Results, reporter Reporter) (report.NodeResult, error) {
	cfg := d.Config

	client, url, ver, err := d.connect(ctx, node, reporter)
	if err != nil {
		return report.NodeResult{Node: node, URL: url, Errors: []string{err.Error()}}, err
	}

	reporter.Broadcast(fmt.Sprintf("Stressing %s (%d files, waves %d/%d)...", node, cfg.Stress.Files, cfg.Stress.MaxUploads, cfg.Stress.MaxDeletes))
	rec, err := stress.Run(ctx, client, stress.Options{
		Node:        node,
		Folder:      cfg.Stress.Folder,
		TempDir:     cfg.Stress.TempDir,
		Files:       cfg.Stress.Files,
		FileSize:    cfg.FileSize,
		MaxUploads:  cfg.Stress.MaxUploads,
		MaxDeletes:  cfg.Stress.MaxDeletes,
		WaveTimeout: cfg.WaveTimeout,
		RateLimit:   cfg.Stress.RateLimit,
		Results:     results,
	}, d.logger())

	res := report.Node(rec, url, ver)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
	}
	reporter.Broadcast(rec.String())

	if err == nil {
		err = rec.Err()
	}

	return res, err
}

// RunSizes uploads each configured file size to every node and records the
// upload time per size.
func RunSizes(ctx context.Context, deps Deps, reporter Reporter) (report.ReportData, error) {
	cfg := deps.Config
	rpt := deps.newReport(report.KindSizes)
	rpt.Settings = report.Settings{
		Folder:      cfg.Sizes.Folder,
		Files:       cfg.Sizes.Files,
		MaxUploads:  cfg.Stress.MaxUploads,
		MaxDeletes:  cfg.Stress.MaxDeletes,
		WaveTimeout: cfg.WaveTimeout,
		Sizes:       cfg.FileSizes,
	}

	nodes := deps.nodes()
	reporter.Broadcast(fmt.Sprintf("Starting file size run %s: %d nodes, %d sizes", rpt.RunID, len(nodes), len(cfg.FileSizes)))
	deps.collectSystem(ctx, &rpt, reporter)
	reporter.Broadcast(stress.SizesHeader(cfg.FileSizes))

	var runErr error
	for _, node := range nodes {
		if ctx.Err() != nil {
			break
		}

		res, err := deps.sizesNode(ctx, node, reporter)
		rpt.SizeRows = append(rpt.SizeRows, res)
		if err != nil {
			reporter.Broadcast(fmt.Sprintf("%s: %v", node, err))
			runErr = errors.Join(runErr, fmt.Errorf("%s: %w", node, err))
		}
		reporter.SendResult(rpt)
	}

	deps.finish(ctx, &rpt, reporter)

	if runErr == nil {
		runErr = ctx.Err()
	}

	return rpt, runErr
}

func (d Deps) sizesNode(ctx context.Context, node string, reporter Reporter) (report.SizeResult, error) {
	cfg := d.Config

	client, _, _, err := d.connect(ctx, node, reporter)
	if err != nil {
		return report.SizeResult{Node: node, Errors: []string{err.Error()}}, err
	}

	row, err := stress.RunSizes(ctx, client, stress.Options{
		Node:        node,
		Folder:      cfg.Sizes.Folder,
		TempDir:     cfg.Stress.TempDir,
		Files:       cfg.Sizes.Files,
		MaxUploads:  cfg.Stress.MaxUploads,
		MaxDeletes:  cfg.Stress.MaxDeletes,
		WaveTimeout: cfg.WaveTimeout,
		RateLimit:   cfg.Stress.RateLimit,
	}, cfg.FileSizes, d.logger())

	res := report.Sizes(row)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
	} else {
		err = row.Err()
	}
	reporter.Broadcast(row.String())

	return res, err
}

// finish renders the report, publishes it and stores it in the history.
// Storage failures are recorded in the report but do not fail the run.
func (d Deps) finish(ctx context.Context, rpt *report.ReportData, reporter Reporter) {
	rpt.Completed = ctx.Err() == nil

	// Bookkeeping still runs for a cancelled run.
	ctx = context.WithoutCancel(ctx)

	reporter.Broadcast("Generating Report...")
	html, err := report.GenerateHTML(*rpt)
	if err != nil {
		rpt.Errors = append(rpt.Errors, err.Error())
		reporter.Broadcast("Failed to generate report: " + err.Error())
	} else if d.Publisher != nil {
		d.publish(ctx, rpt, html, reporter)
	}

	// Saved last so publish failures are part of the stored run.
	if d.History != nil {
		if err := d.History.Save(ctx, *rpt); err != nil {
			rpt.Errors = append(rpt.Errors, err.Error())
			reporter.Broadcast(fmt.Sprintf("Warning: could not save run: %v", err))
		}
	}

	if html != nil {
		reporter.SaveReport(html)
		reporter.Broadcast("Report Ready!")
	}
	reporter.SendResult(*rpt)
}

func (d Deps) publish(ctx context.Context, rpt *report.ReportData, html []byte, reporter Reporter) {
	base := fmt.Sprintf("%s-%s", rpt.Kind, rpt.GeneratedAt.Format("20060102-150405"))

	files := []struct {
		name, contentType string
		body              []byte
	}{
		{base + ".html", "text/html; charset=utf-8", html},
		{base + ".txt", "text/plain; charset=utf-8", report.GenerateText(*rpt)},
	}

	for _, f := range files {
		key, err := d.Publisher.Publish(ctx, rpt.Environment, rpt.JobName, f.name, f.contentType, f.body)
		if err != nil {
			rpt.Errors = append(rpt.Errors, err.Error())
			reporter.Broadcast(fmt.Sprintf("Warning: could not publish %s: %v", f.name, err))
			continue
		}
		reporter.Broadcast("Published " + key)
	}
}
