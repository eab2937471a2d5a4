// Package report renders stress and size-matrix results as HTML and text.
package report

import (
	"slices"
	"time"

	"nextcloud-stress/internal/network"
	"nextcloud-stress/internal/stress"
)

// Report kinds.
const (
	KindStress = "stress"
	KindSizes  = "sizes"
)

type CPUInfo struct {
	Model string
	Usage float64
	Cores int
}

type RAMInfo struct {
	Total string
	Free  string
	Used  string
	Usage float64
}

// Settings echoes the harness parameters a run used.
type Settings struct {
	Folder      string        `json:"folder"`
	Files       int           `json:"files"`
	FileSize    int64         `json:"file_size"`
	MaxUploads  int           `json:"max_uploads"`
	MaxDeletes  int           `json:"max_deletes"`
	WaveTimeout time.Duration `json:"wave_timeout"`
	Sizes       []int64       `json:"sizes,omitempty"`
}

type PhaseResult struct {
	Ops         int           `json:"ops"`
	Failed      int           `json:"failed"`
	Waves       int           `json:"waves"`
	Duration    time.Duration `json:"duration"`
	PerFile     float64       `json:"per_file"`
	FilesPerSec float64       `json:"files_per_sec"`
}

// NodeResult is one node's row of a stress run.
type NodeResult struct {
	Node      string      `json:"node"`
	URL       string      `json:"url"`
	ServerVer string      `json:"server_version,omitempty"`
	Line      string      `json:"line"`
	Upload    PhaseResult `json:"upload"`
	Delete    PhaseResult `json:"delete"`
	Errors    []string    `json:"errors,omitempty"`
}

// Failed reports whether any operation of the node failed.
func (n NodeResult) Failed() bool {
	return n.Upload.Failed+n.Delete.Failed > 0 || len(n.Errors) > 0
}

// SizeResult is one node's row of the file-size matrix.
type SizeResult struct {
	Node   string        `json:"node"`
	Line   string        `json:"line"`
	Upload []PhaseResult `json:"upload"`
	Errors []string      `json:"errors,omitempty"`
}

type ReportData struct {
	RunID       string
	Kind        string // KindStress or KindSizes
	GeneratedAt time.Time
	Environment string
	JobName     string
	Settings    Settings

	Hostname string
	SystemOS string
	CPU      CPUInfo
	RAM      RAMInfo

	Nodes     []NodeResult
	SizeRows  []SizeResult
	Diagnosis *network.Diagnosis `json:"Diagnosis,omitempty"`

	Errors    []string `json:"errors,omitempty"`
	Completed bool     // Signals if the run is fully finished
}

// TotalFailed sums failed operations across nodes and size rows.
func (d ReportData) TotalFailed() int {
	total := 0
	for _, n := range d.Nodes {
		total += n.Upload.Failed + n.Delete.Failed
	}
	for _, r := range d.SizeRows {
		for _, p := range r.Upload {
			total += p.Failed
		}
	}

	return total
}

// Phase converts harness phase stats.
func Phase(s stress.PhaseStats) PhaseResult {
	return PhaseResult{
		Ops:         s.Ops,
		Failed:      s.Failed,
		Waves:       s.Waves,
		Duration:    s.Elapsed,
		PerFile:     s.PerFile(),
		FilesPerSec: s.Throughput(),
	}
}

// Node converts a stress record. Failed operations become error strings.
func Node(rec stress.Record, url, serverVer string) NodeResult {
	return NodeResult{
		Node:      rec.Node,
		URL:       url,
		ServerVer: serverVer,
		Line:      rec.String(),
		Upload:    Phase(rec.Upload),
		Delete:    Phase(rec.Delete),
		Errors:    errorStrings(rec.Upload, rec.Delete),
	}
}

// Sizes converts a size-matrix row.
func Sizes(row stress.SizeRow) SizeResult {
	res := SizeResult{Node: row.Node, Line: row.String()}
	for _, s := range row.Upload {
		res.Upload = append(res.Upload, Phase(s))
	}
	res.Errors = errorStrings(slices.Concat(row.Upload, row.Delete)...)

	return res
}

func errorStrings(phases ...stress.PhaseStats) []string {
	var out []string
	for _, p := range phases {
		for _, o := range p.Outcomes {
			if o.Err != nil {
				out = append(out, o.Name+": "+o.Err.Error())
			}
		}
	}

	return out
}
