package stress

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Record is the result of one node's stress run.
type Record struct {
	Node   string
	Files  int
	Upload PhaseStats
	Delete PhaseStats
}

// String formats the record as the fixed-width three-column result line.
func (r Record) String() string {
	return fmt.Sprintf("%-16s%-40s%-40s", r.Node+" ", phaseText("Upload", r.Upload), phaseText("Delete", r.Delete))
}

func phaseText(label string, s PhaseStats) string {
	return fmt.Sprintf("%s: %.1fs at %.2f s/file - %.2f files/s", label, s.Elapsed.Seconds(), s.PerFile(), s.Throughput())
}

// Err joins the failures of both phases.
func (r Record) Err() error {
	return errors.Join(r.Upload.Err(), r.Delete.Err())
}

// Failed is the number of failed uploads and deletes.
func (r Record) Failed() int {
	return r.Upload.Failed + r.Delete.Failed
}

// Results is an append-only list of formatted result lines, safe for
// concurrent use.
type Results struct {
	mu    sync.Mutex
	lines []string
}

// Add appends the record's line and returns it.
func (r *Results) Add(rec fmt.Stringer) string {
	line := rec.String()

	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()

	return line
}

// Lines returns a copy of the collected lines.
func (r *Results) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.lines))
	copy(out, r.lines)

	return out
}

// Len reports the number of collected lines.
func (r *Results) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.lines)
}

// SizeRow is one node's row of the file-size matrix.
type SizeRow struct {
	Node   string
	Sizes  []int64
	Upload []PhaseStats // one per size, same order as Sizes
	Delete []PhaseStats
}

// String formats the node and the upload seconds of each size.
func (r SizeRow) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s", r.Node)
	for _, s := range r.Upload {
		fmt.Fprintf(&b, "%-10.1f", s.Elapsed.Seconds())
	}

	return b.String()
}

// Err joins the failures of every size.
func (r SizeRow) Err() error {
	var errs []error
	for i := range r.Upload {
		errs = append(errs, r.Upload[i].Err())
	}
	for i := range r.Delete {
		errs = append(errs, r.Delete[i].Err())
	}

	return errors.Join(errs...)
}

// SizesHeader is the header line of the file-size matrix.
func SizesHeader(sizes []int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s", "Size")
	for _, s := range sizes {
		fmt.Fprintf(&b, "%-10d", s)
	}

	return b.String()
}
