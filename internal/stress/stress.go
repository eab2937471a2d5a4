// Package stress drives wave-batched WebDAV uploads and deletes against one
// node and times each phase.
package stress

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrWaveTimeout is returned when a wave does not reach its barrier within
// the configured wave timeout.
var ErrWaveTimeout = errors.New("wave did not complete before timeout")

// AsyncUploader submits an upload and reports its completion through done.
// A non-nil return means the upload was never started and done will not be
// called.
type AsyncUploader interface {
	UploadAsync(ctx context.Context, remotePath, localPath string, done func(error)) error
}

// Remover deletes a remote file or collection.
type Remover interface {
	Delete(ctx context.Context, remotePath string) error
}

// Lister returns the child names of a remote collection. Collections carry a
// trailing "/".
type Lister interface {
	List(ctx context.Context, remoteDir string) ([]string, error)
}

// Store is a remote that can be listed and pruned.
type Store interface {
	Lister
	Remover
}

// Remote is everything a full stress run needs from a WebDAV client.
type Remote interface {
	AsyncUploader
	Store
	Mkdir(ctx context.Context, remotePath string) error
}

// Job is one file to upload.
type Job struct {
	Local  string
	Remote string
}

// Options parameterise a stress run for a single node.
type Options struct {
	Node        string
	Folder      string // remote folder, created if missing
	TempDir     string // local scratch dir; a fresh temp dir when empty
	Files       int
	FileSize    int64
	MaxUploads  int
	MaxDeletes  int
	WaveTimeout time.Duration // 0 waits forever
	RateLimit   float64       // upload submissions per second, 0 is unlimited

	// Results, when set, receives the formatted record of the run.
	Results *Results
}

// Outcome is the result of one upload or delete.
type Outcome struct {
	Name      string
	Err       error
	Submitted bool // false when the operation was rejected before it started
}

// PhaseStats summarises one upload or delete phase.
type PhaseStats struct {
	Ops      int
	Failed   int
	Waves    int
	Elapsed  time.Duration
	Outcomes []Outcome
}

// Err joins the errors of every failed operation, or returns nil.
func (s PhaseStats) Err() error {
	var errs []error
	for _, o := range s.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Name, o.Err))
		}
	}

	return errors.Join(errs...)
}

// Throughput is operations per second over the phase.
func (s PhaseStats) Throughput() float64 {
	return Throughput(s.Ops, s.Elapsed)
}

// PerFile is the average seconds per operation over the phase.
func (s PhaseStats) PerFile() float64 {
	return PerFile(s.Ops, s.Elapsed)
}

// Throughput returns n / elapsed in operations per second, or 0 when no time
// elapsed.
func Throughput(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}

	return float64(n) / elapsed.Seconds()
}

// PerFile returns elapsed / n in seconds, or 0 when n is 0.
func PerFile(n int, elapsed time.Duration) float64 {
	if n <= 0 {
		return 0
	}

	return elapsed.Seconds() / float64(n)
}

func (s *PhaseStats) add(outcomes []Outcome) {
	s.Waves++
	s.Ops += len(outcomes)
	for _, o := range outcomes {
		if o.Err != nil {
			s.Failed++
		}
	}
	s.Outcomes = append(s.Outcomes, outcomes...)
}
