package stress

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Uploader submits asynchronous uploads in waves of at most WaveSize and
// waits for every upload of a wave to complete before starting the next.
type Uploader struct {
	Client      AsyncUploader
	WaveSize    int
	WaveTimeout time.Duration
	Limiter     *rate.Limiter // optional submission pacing
	Logger      *slog.Logger

	inflight atomic.Int64
}

// NewUploader returns an uploader for client. A positive ratePerSec paces
// submissions.
func NewUploader(client AsyncUploader, waveSize int, waveTimeout time.Duration, ratePerSec float64, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	u := &Uploader{
		Client:      client,
		WaveSize:    waveSize,
		WaveTimeout: waveTimeout,
		Logger:      logger,
	}
	if ratePerSec > 0 {
		u.Limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}

	return u
}

// InFlight reports the number of submitted uploads that have not completed.
func (u *Uploader) InFlight() int64 {
	return u.inflight.Load()
}

// Run uploads jobs wave by wave. Per-file failures are recorded in the
// returned stats; the error is non-nil only when a wave timed out or ctx
// ended, in which case the remaining waves are skipped.
func (u *Uploader) Run(ctx context.Context, jobs []Job) (PhaseStats, error) {
	var stats PhaseStats
	start := time.Now()

	for i, batch := range Waves(jobs, u.WaveSize) {
		outcomes, err := u.runWave(ctx, batch)
		stats.add(outcomes)
		u.Logger.Debug("upload wave done", "wave", i+1, "files", len(batch), "in_flight", u.InFlight())
		if err != nil {
			u.Logger.Error("upload wave aborted", "wave", i+1, "error", err)
			stats.Elapsed = time.Since(start)
			return stats, err
		}
	}

	stats.Elapsed = time.Since(start)

	return stats, nil
}

func (u *Uploader) runWave(ctx context.Context, batch []Job) ([]Outcome, error) {
	waveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	names := make([]string, len(batch))
	for i, job := range batch {
		names[i] = job.Remote
	}
	w := newWave(names)

	var wg sync.WaitGroup
	for i, job := range batch {
		if u.Limiter != nil {
			if err := u.Limiter.Wait(waveCtx); err != nil {
				w.finish(i, false, err)
				continue
			}
		}

		u.inflight.Add(1)
		wg.Add(1)
		err := u.Client.UploadAsync(waveCtx, job.Remote, job.Local, func(err error) {
			if err != nil {
				u.Logger.Warn("upload failed", "file", job.Remote, "error", err)
			}
			w.finish(i, true, err)
			u.inflight.Add(-1)
			wg.Done()
		})
		if err != nil {
			u.Logger.Warn("upload not submitted", "file", job.Local, "error", err)
			w.finish(i, false, err)
			u.inflight.Add(-1)
			wg.Done()
		}
	}

	if err := awaitWave(ctx, wg.Wait, u.WaveTimeout); err != nil {
		cancel()
		return w.close(err), err
	}

	return w.close(nil), nil
}
