package stress

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Waves partitions items into consecutive slices of at most size elements.
// A size below 1 is treated as 1.
func Waves[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}

	waves := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		waves = append(waves, items[start:end:end])
	}

	return waves
}

// awaitWave blocks until wait returns, the timeout expires or ctx is done.
// On timeout the goroutine running wait is left to finish on its own.
func awaitWave(ctx context.Context, wait func(), timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case <-done:
		return nil
	case <-expired:
		return fmt.Errorf("%w (%s)", ErrWaveTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wave collects the outcomes of one batch. Completions that arrive after the
// wave was abandoned are dropped.
type wave struct {
	mu       sync.Mutex
	outcomes []Outcome
	finished []bool
	closed   bool
}

func newWave(names []string) *wave {
	w := &wave{
		outcomes: make([]Outcome, len(names)),
		finished: make([]bool, len(names)),
	}
	for i, name := range names {
		w.outcomes[i] = Outcome{Name: name, Submitted: true}
	}

	return w
}

func (w *wave) finish(i int, submitted bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.outcomes[i].Err = err
	w.outcomes[i].Submitted = submitted
	w.finished[i] = true
}

// close seals the wave and returns its outcomes. When abort is non-nil every
// unfinished operation is recorded as failed with it.
func (w *wave) close(abort error) []Outcome {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if abort != nil {
		for i, done := range w.finished {
			if !done {
				w.outcomes[i].Err = abort
			}
		}
	}

	out := make([]Outcome, len(w.outcomes))
	copy(out, w.outcomes)

	return out
}
