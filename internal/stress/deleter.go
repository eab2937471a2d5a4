package stress

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchDeleter removes remote paths in waves. Each wave runs one goroutine
// per path in its own errgroup and joins exactly that group. Failures stay
// per path; the group's first error is only logged for the wave.
type BatchDeleter struct {
	Client      Remover
	WaveSize    int
	WaveTimeout time.Duration
	Logger      *slog.Logger

	spawned atomic.Int64
}

// NewBatchDeleter returns a deleter for client.
func NewBatchDeleter(client Remover, waveSize int, waveTimeout time.Duration, logger *slog.Logger) *BatchDeleter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &BatchDeleter{
		Client:      client,
		WaveSize:    waveSize,
		WaveTimeout: waveTimeout,
		Logger:      logger,
	}
}

// Spawned reports how many delete goroutines have been started.
func (d *BatchDeleter) Spawned() int64 {
	return d.spawned.Load()
}

// Run deletes paths wave by wave. As with Uploader.Run, per-path failures
// are recorded in the stats and the error reports an aborted phase.
func (d *BatchDeleter) Run(ctx context.Context, paths []string) (PhaseStats, error) {
	var stats PhaseStats
	start := time.Now()

	for i, batch := range Waves(paths, d.WaveSize) {
		outcomes, err := d.runWave(ctx, batch)
		stats.add(outcomes)
		d.Logger.Debug("delete wave done", "wave", i+1, "files", len(batch))
		if err != nil {
			d.Logger.Error("delete wave aborted", "wave", i+1, "error", err)
			stats.Elapsed = time.Since(start)
			return stats, err
		}
	}

	stats.Elapsed = time.Since(start)

	return stats, nil
}

func (d *BatchDeleter) runWave(ctx context.Context, batch []string) ([]Outcome, error) {
	waveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := newWave(batch)

	var g errgroup.Group
	for i, p := range batch {
		d.spawned.Add(1)
		g.Go(func() error {
			err := d.Client.Delete(waveCtx, p)
			if err != nil {
				d.Logger.Warn("delete failed", "file", p, "error", err)
			}
			w.finish(i, true, err)
			return err
		})
	}

	var first error
	if err := awaitWave(ctx, func() { first = g.Wait() }, d.WaveTimeout); err != nil {
		cancel()
		return w.close(err), err
	}

	outcomes := w.close(nil)
	if first != nil {
		d.Logger.Warn("delete wave had failures", "failed", countFailed(outcomes), "first", first)
	}

	return outcomes, nil
}

func countFailed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
