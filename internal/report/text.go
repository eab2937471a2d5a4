package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"nextcloud-stress/internal/stress"
)

// GenerateText renders the report as the plain result lines, followed by any
// errors.
func GenerateText(data ReportData) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s run %s (%s/%s) %s\n", data.Kind, data.RunID, data.Environment, data.JobName, data.GeneratedAt.Format("2006-01-02 15:04:05"))
	if data.Kind == KindSizes {
		fmt.Fprintf(&b, "# %d file(s) per size in %s\n", data.Settings.Files, data.Settings.Folder)
	} else {
		fmt.Fprintf(&b, "# %d x %s in %s, waves %d/%d\n", data.Settings.Files, humanize.IBytes(uint64(max(data.Settings.FileSize, 0))),
			data.Settings.Folder, data.Settings.MaxUploads, data.Settings.MaxDeletes)
	}

	for _, n := range data.Nodes {
		b.WriteString(n.Line)
		b.WriteByte('\n')
	}

	if len(data.SizeRows) > 0 {
		b.WriteString(stress.SizesHeader(data.Settings.Sizes))
		b.WriteByte('\n')
		for _, r := range data.SizeRows {
			b.WriteString(r.Line)
			b.WriteByte('\n')
		}
	}

	var errs []string
	for _, n := range data.Nodes {
		for _, e := range n.Errors {
			errs = append(errs, n.Node+": "+e)
		}
	}
	for _, r := range data.SizeRows {
		for _, e := range r.Errors {
			errs = append(errs, r.Node+": "+e)
		}
	}
	errs = append(errs, data.Errors...)
	if len(errs) > 0 {
		fmt.Fprintf(&b, "\n%d error(s):\n", len(errs))
		for _, e := range errs {
			b.WriteString("  ")
			b.WriteString(e)
			b.WriteByte('\n')
		}
	}

	return []byte(b.String())
}
