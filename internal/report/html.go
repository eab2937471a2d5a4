package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/dustin/go-humanize"

	"nextcloud-stress/internal/network"
)

const (
	colorGreen  = "#2ecc71"
	colorYellow = "#f1c40f"
	colorRed    = "#e74c3c"
)

func dot(color string) template.HTML {
	return template.HTML(fmt.Sprintf(`<span class="dot" style="background-color:%s;box-shadow:0 0 5px %s;"></span>`, color, color))
}

// GetPingQualityDot returns an HTML span with a colored dot indicating ping quality.
func GetPingQualityDot(p network.DetailedPingStats) template.HTML {
	switch {
	case p.AvgMs > 60:
		return dot(colorRed)
	case p.AvgMs > 25:
		return dot(colorYellow)
	}
	return dot(colorGreen)
}

// GetLossQualityDot returns an HTML span with a colored dot indicating packet loss quality.
func GetLossQualityDot(p network.DetailedPingStats) template.HTML {
	switch {
	case p.PacketLoss > 1.0:
		return dot(colorRed)
	case p.PacketLoss > 0.0:
		return dot(colorYellow)
	}
	return dot(colorGreen)
}

// GetPhaseDot is green when every operation of the phase succeeded, yellow
// when a few failed and red when more than a tenth did.
func GetPhaseDot(p PhaseResult) template.HTML {
	switch {
	case p.Failed == 0:
		return dot(colorGreen)
	case p.Ops > 0 && float64(p.Failed)/float64(p.Ops) <= 0.1:
		return dot(colorYellow)
	}
	return dot(colorRed)
}

// Embedded CSS to ensure the report is standalone
const cssStyle = `
:root {
    --drive-blue: #003d8f;
    --drive-midnight: #001b41;
    --text-primary: #333333;
    --text-secondary: #666666;
}
body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    background: #f5f5f5;
    color: var(--text-primary);
    line-height: 1.6;
    margin: 0;
    padding: 20px;
}
.report-container {
    max-width: 1100px;
    margin: 0 auto;
    background: white;
    padding: 40px;
    border-radius: 12px;
    box-shadow: 0 4px 20px rgba(0,0,0,0.1);
}
header { text-align: center; border-bottom: 2px solid var(--drive-blue); padding-bottom: 20px; margin-bottom: 30px; }
h1 { color: var(--drive-blue); margin: 0; }
.meta { color: var(--text-secondary); font-size: 0.9em; margin-top: 5px; }
.section { margin-bottom: 30px; }
h2 { color: var(--drive-midnight); border-left: 5px solid var(--drive-blue); padding-left: 10px; }
.grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(280px, 1fr)); gap: 20px; }
.card { background: #f8f9ff; padding: 20px; border-radius: 8px; border: 1px solid #e0e0e0; }
.metric-value { font-size: 1.3em; font-weight: bold; color: var(--drive-blue); }
.metric-label { font-size: 0.9em; color: var(--text-secondary); }
.code-box { font-family: monospace; white-space: pre; background: #2d2d2d; color: #00ff00; padding: 15px; border-radius: 8px; overflow-x: auto; font-size: 0.85em; }
.error-box { background: #fff0f0; border-left: 4px solid #ff4757; padding: 15px; margin-top: 10px; color: #d63031; font-size: 0.85em; }
table { width: 100%; border-collapse: collapse; margin-top: 10px; font-size: 0.9em; }
th, td { border: 1px solid #ddd; padding: 6px; text-align: left; }
th { background-color: #f2f2f2; }
.dot { display: inline-block; width: 10px; height: 10px; border-radius: 50%; margin-left: 5px; vertical-align: middle; }
`

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Drive WebDAV Stress Report</title>
    <style>{{.Style}}</style>
</head>
<body>
    <div class="report-container">
        <header>
            <h1>Drive WebDAV {{if eq .Data.Kind "sizes"}}File Size{{else}}Stress{{end}} Report</h1>
            <div class="meta">Generated: {{.Data.GeneratedAt.Format "2006-01-02 15:04:05"}} | Run: {{.Data.RunID}}</div>
            <div class="meta">Environment: {{.Data.Environment}} | Job: {{.Data.JobName}}</div>
        </header>

        <div class="section">
            <h2>Settings</h2>
            <div class="grid">
                <div class="card">
                    <div class="metric-label">Remote folder</div>
                    <div>{{.Data.Settings.Folder}}</div>
                    {{if eq .Data.Kind "sizes"}}
                    <div class="metric-label">Files per size</div>
                    <div>{{.Data.Settings.Files}}</div>
                    {{else}}
                    <div class="metric-label">Files</div>
                    <div>{{.Data.Settings.Files}} x {{bytes .Data.Settings.FileSize}}</div>
                    {{end}}
                </div>
                <div class="card">
                    <div class="metric-label">Wave sizes</div>
                    <div>upload {{.Data.Settings.MaxUploads}} / delete {{.Data.Settings.MaxDeletes}}</div>
                    <div class="metric-label">Wave timeout</div>
                    <div>{{if .Data.Settings.WaveTimeout}}{{.Data.Settings.WaveTimeout}}{{else}}none{{end}}</div>
                </div>
                <div class="card">
                    <div class="metric-label">Client</div>
                    <div>{{.Data.Hostname}} ({{.Data.SystemOS}})</div>
                    <div class="metric-label">CPU</div>
                    <div style="font-size: 0.8em">{{.Data.CPU.Model}} ({{.Data.CPU.Cores}} cores, {{printf "%.1f%%" .Data.CPU.Usage}})</div>
                    <div class="metric-label">RAM</div>
                    <div>{{.Data.RAM.Used}} of {{.Data.RAM.Total}} ({{printf "%.1f%%" .Data.RAM.Usage}})</div>
                </div>
            </div>
        </div>

        {{if .Data.Nodes}}
        <div class="section">
            <h2>Results</h2>
            <table>
                <thead><tr><th>Node</th><th>Server</th><th>Upload</th><th>Delete</th></tr></thead>
                <tbody>
                    {{range .Data.Nodes}}
                    <tr>
                        <td><a href="{{.URL}}">{{.Node}}</a></td>
                        <td>{{.ServerVer}}</td>
                        <td>{{seconds .Upload.Duration}} at {{printf "%.2f" .Upload.PerFile}} s/file - {{printf "%.2f" .Upload.FilesPerSec}} files/s {{phaseDot .Upload}}{{if .Upload.Failed}} ({{.Upload.Failed}} failed){{end}}</td>
                        <td>{{seconds .Delete.Duration}} at {{printf "%.2f" .Delete.PerFile}} s/file - {{printf "%.2f" .Delete.FilesPerSec}} files/s {{phaseDot .Delete}}{{if .Delete.Failed}} ({{.Delete.Failed}} failed){{end}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
            <details>
                <summary style="cursor:pointer; color: #003d8f; font-weight:bold;">Result lines</summary>
                <div class="code-box">{{range .Data.Nodes}}{{.Line}}
{{end}}</div>
            </details>
            {{range .Data.Nodes}}{{if .Errors}}
            <div class="error-box">
                <strong>{{.Node}}:</strong><br>
                {{range .Errors}}- {{.}}<br>{{end}}
            </div>
            {{end}}{{end}}
        </div>
        {{end}}

        {{if .Data.SizeRows}}
        <div class="section">
            <h2>Upload time per file size</h2>
            <table>
                <thead><tr><th>Node</th>{{range .Data.Settings.Sizes}}<th>{{bytes .}}</th>{{end}}</tr></thead>
                <tbody>
                    {{range .Data.SizeRows}}
                    <tr>
                        <td>{{.Node}}</td>
                        {{range .Upload}}<td>{{seconds .Duration}} {{phaseDot .}}</td>{{end}}
                    </tr>
                    {{end}}
                </tbody>
            </table>
            {{range .Data.SizeRows}}{{if .Errors}}
            <div class="error-box">
                <strong>{{.Node}}:</strong><br>
                {{range .Errors}}- {{.}}<br>{{end}}
            </div>
            {{end}}{{end}}
        </div>
        {{end}}

        {{with .Data.Diagnosis}}
        <div class="section">
            <h2>Network Diagnostics ({{.Host}})</h2>
            <div class="grid">
                <div class="card">
                    <div class="metric-label">DNS Resolution</div>
                    <div class="metric-value">{{printf "%.2f ms" .DNS.ResolutionTime}}</div>
                    {{range .DNS.ResolvedIPs}}<div>- {{.}}</div>{{end}}
                    {{if .DNS.Error}}<div class="error-box">{{.DNS.Error}}</div>{{end}}
                </div>
                <div class="card">
                    <div class="metric-label">TCP Connect ({{.Ping.Count}} packets)</div>
                    <div class="metric-value">Avg: {{printf "%.2f ms" .Ping.AvgMs}} {{pingDot .Ping}}</div>
                    <div class="metric-label">Min: {{printf "%.2f" .Ping.MinMs}} | Max: {{printf "%.2f" .Ping.MaxMs}} | Jitter: {{printf "%.2f" .Ping.JitterMs}}</div>
                    <div class="metric-label">Loss: {{printf "%.1f%%" .Ping.PacketLoss}} {{lossDot .Ping}}</div>
                </div>
                <div class="card">
                    <div class="metric-label">TLS Handshake</div>
                    {{if .TLSError}}<div class="error-box">{{.TLSError}}</div>{{else}}<div class="metric-value">{{.TLSHandshake}}</div>{{end}}
                    <div class="metric-label">Local network</div>
                    <div>{{.Local.ConnectionType}} {{.Local.PrimaryIF}}{{if .Extended.VPNDetected}} via VPN {{.Extended.VPNType}}{{end}}{{if .Extended.ProxyDetected}} via proxy{{end}}</div>
                </div>
            </div>
            {{if .Traceroute}}
            <h3>Traceroute</h3>
            <div class="code-box">{{range .Traceroute}}{{.}}
{{end}}</div>
            {{end}}
        </div>
        {{end}}

        {{if .Data.Errors}}
        <div class="section">
            <h2>Errors</h2>
            <div class="error-box">{{range .Data.Errors}}- {{.}}<br>{{end}}</div>
        </div>
        {{end}}

        <footer>
            <small>Generated by drive-stress</small>
        </footer>
    </div>
</body>
</html>
`

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"pingDot":  GetPingQualityDot,
	"lossDot":  GetLossQualityDot,
	"phaseDot": GetPhaseDot,
	"bytes":    func(n int64) string { return humanize.IBytes(uint64(max(n, 0))) },
	"seconds":  func(d time.Duration) string { return fmt.Sprintf("%.1fs", d.Seconds()) },
}).Parse(htmlTemplate))

// GenerateHTML renders a standalone HTML report.
func GenerateHTML(data ReportData) ([]byte, error) {
	var buf bytes.Buffer
	err := htmlTmpl.Execute(&buf, struct {
		Style template.CSS
		Data  ReportData
	}{
		Style: template.CSS(cssStyle),
		Data:  data,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
