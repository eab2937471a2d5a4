package stress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeJobs(n int) []Job {
	jobs := make([]Job, n)
	for i := range jobs {
		jobs[i] = Job{Local: fmt.Sprintf("/tmp/n%d.bin", i), Remote: fmt.Sprintf("performance/n%d.bin", i)}
	}
	return jobs
}

func TestWaves(t *testing.T) {
	tests := []struct {
		n, size, want int
	}{
		{n: 10, size: 5, want: 2},
		{n: 10, size: 3, want: 4},
		{n: 10, size: 1, want: 10},
		{n: 10, size: 10, want: 1},
		{n: 10, size: 50, want: 1},
		{n: 1, size: 1, want: 1},
		{n: 0, size: 4, want: 0},
		{n: 7, size: 0, want: 7},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d/size=%d", tt.n, tt.size), func(t *testing.T) {
			items := make([]int, tt.n)
			for i := range items {
				items[i] = i
			}

			waves := Waves(items, tt.size)
			require.Len(t, waves, tt.want)

			var flat []int
			for _, w := range waves {
				assert.LessOrEqual(t, len(w), max(tt.size, 1))
				assert.NotEmpty(t, w)
				flat = append(flat, w...)
			}
			if tt.n > 0 {
				assert.Equal(t, items, flat, "waves are consecutive and cover every item once")
			}
		})
	}
}

func TestUploaderBarrier(t *testing.T) {
	for _, tc := range []struct{ n, w int }{{10, 5}, {10, 1}, {10, 10}, {7, 3}, {1, 4}} {
		t.Run(fmt.Sprintf("n=%d/w=%d", tc.n, tc.w), func(t *testing.T) {
			remote := newFakeRemote()
			remote.delay = time.Millisecond
			up := NewUploader(remote, tc.w, time.Minute, 0, nil)

			stats, err := up.Run(context.Background(), makeJobs(tc.n))
			require.NoError(t, err)

			assert.Zero(t, up.InFlight())
			assert.Equal(t, (tc.n+tc.w-1)/tc.w, stats.Waves)
			assert.Equal(t, tc.n, stats.Ops)
			assert.Zero(t, stats.Failed)
			assert.Len(t, remote.uploaded, tc.n)
			assert.LessOrEqual(t, remote.Peak(), tc.w, "a wave never overlaps the next")
			assert.NoError(t, stats.Err())
		})
	}
}

func TestUploaderAllSubmissionsFail(t *testing.T) {
	remote := newFakeRemote()
	remote.submitErr = func(local string) error { return fmt.Errorf("cannot open %s", local) }
	up := NewUploader(remote, 4, time.Second, 0, nil)

	done := make(chan struct{})
	var stats PhaseStats
	var err error
	go func() {
		stats, err = up.Run(context.Background(), makeJobs(9))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("upload phase did not terminate")
	}

	require.NoError(t, err)
	assert.Zero(t, up.InFlight())
	assert.Equal(t, 3, stats.Waves)
	assert.Equal(t, 9, stats.Failed)
	for _, o := range stats.Outcomes {
		assert.False(t, o.Submitted)
		assert.Error(t, o.Err)
	}
	assert.ErrorContains(t, stats.Err(), "/tmp/n8.bin")
}

func TestUploaderRecordsAsyncFailures(t *testing.T) {
	boom := errors.New("HTTP 507")
	remote := newFakeRemote()
	remote.opErr = func(remote string) error {
		if strings.HasSuffix(remote, "n3.bin") {
			return boom
		}
		return nil
	}

	stats, err := NewUploader(remote, 5, time.Minute, 0, nil).Run(context.Background(), makeJobs(10))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Failed)
	assert.ErrorIs(t, stats.Err(), boom)
	assert.ErrorContains(t, stats.Err(), "performance/n3.bin")
	assert.Len(t, remote.uploaded, 9)
}

func TestUploaderWaveTimeout(t *testing.T) {
	remote := newFakeRemote()
	remote.hang = true
	up := NewUploader(remote, 3, 50*time.Millisecond, 0, nil)

	start := time.Now()
	stats, err := up.Run(context.Background(), makeJobs(9))
	require.ErrorIs(t, err, ErrWaveTimeout)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, stats.Waves, "later waves are skipped")
	assert.Equal(t, 3, stats.Failed)
	assert.Positive(t, stats.Elapsed)
	for _, o := range stats.Outcomes {
		assert.ErrorIs(t, o.Err, ErrWaveTimeout)
	}
}

func TestUploaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	remote := newFakeRemote()
	remote.hang = true

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewUploader(remote, 2, 0, 0, nil).Run(ctx, makeJobs(4))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUploaderRateLimit(t *testing.T) {
	remote := newFakeRemote()
	up := NewUploader(remote, 10, time.Minute, 1000, nil)
	require.NotNil(t, up.Limiter)

	stats, err := up.Run(context.Background(), makeJobs(5))
	require.NoError(t, err)
	assert.Zero(t, stats.Failed)
}

func TestBatchDeleterSpawnsOnePerEntry(t *testing.T) {
	remote := newFakeRemote()
	remote.delay = time.Millisecond
	paths := make([]string, 23)
	for i := range paths {
		paths[i] = fmt.Sprintf("performance/n%d.bin", i)
	}

	d := NewBatchDeleter(remote, 5, time.Minute, nil)
	stats, err := d.Run(context.Background(), paths)
	require.NoError(t, err)

	assert.EqualValues(t, 23, d.Spawned())
	assert.Equal(t, 5, stats.Waves)
	assert.Equal(t, 23, stats.Ops)
	assert.LessOrEqual(t, remote.Peak(), 5)
	for _, p := range paths {
		assert.Equal(t, 1, remote.deleted[p], p)
	}
}

func TestBatchDeleterRecordsFailures(t *testing.T) {
	remote := newFakeRemote()
	remote.opErr = func(p string) error {
		if p == "b" {
			return errors.New("HTTP 423 locked")
		}
		return nil
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	stats, err := NewBatchDeleter(remote, 2, time.Minute, logger).Run(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.ErrorContains(t, stats.Err(), "b: HTTP 423 locked")

	assert.Equal(t, 1, strings.Count(logs.String(), "delete wave had failures"), "only the wave holding b reports")
	assert.Contains(t, logs.String(), `first="HTTP 423 locked"`)
}

func TestBatchDeleterWaveTimeout(t *testing.T) {
	remote := newFakeRemote()
	remote.hang = true

	stats, err := NewBatchDeleter(remote, 2, 30*time.Millisecond, nil).Run(context.Background(), []string{"a", "b", "c"})
	require.ErrorIs(t, err, ErrWaveTimeout)
	assert.Equal(t, 1, stats.Waves)
	assert.Equal(t, 2, stats.Failed)
}

func TestThroughput(t *testing.T) {
	assert.InDelta(t, 5.0, Throughput(10, 2*time.Second), 1e-9)
	assert.InDelta(t, 0.2, PerFile(10, 2*time.Second), 1e-9)
	assert.InDelta(t, 100.0/1.5, Throughput(100, 1500*time.Millisecond), 1e-9)
	assert.Zero(t, Throughput(10, 0))
	assert.Zero(t, PerFile(0, time.Second))
}

func TestRecordString(t *testing.T) {
	rec := Record{
		Node:   "node1",
		Files:  10,
		Upload: PhaseStats{Ops: 10, Elapsed: 2 * time.Second},
		Delete: PhaseStats{Ops: 10, Elapsed: 4 * time.Second},
	}

	assert.Equal(t,
		"node1           Upload: 2.0s at 0.20 s/file - 5.00 files/sDelete: 4.0s at 0.40 s/file - 2.50 files/s",
		rec.String())
	assert.NoError(t, rec.Err())
}

func TestResults(t *testing.T) {
	var r Results
	line := r.Add(Record{Node: "n", Upload: PhaseStats{Ops: 1, Elapsed: time.Second}})

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{line}, r.Lines())
}

func TestSizesFormatting(t *testing.T) {
	assert.Equal(t, "Size            100       200       ", SizesHeader([]int64{100, 200}))

	row := SizeRow{
		Node:   "node1",
		Sizes:  []int64{100, 200},
		Upload: []PhaseStats{{Elapsed: 1500 * time.Millisecond}, {Elapsed: 12 * time.Second}},
	}
	assert.Equal(t, "node1           1.5       12.0      ", row.String())
}

func TestGenerateFiles(t *testing.T) {
	dir := t.TempDir()

	names, err := GenerateFiles(dir, "node1", 3, 2048)
	require.NoError(t, err)
	assert.Equal(t, []string{"node10.bin", "node11.bin", "node12.bin"}, names)

	var contents [][]byte
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Len(t, b, 2048)
		contents = append(contents, b)
	}
	assert.False(t, bytes.Equal(contents[0], contents[1]), "files carry distinct content")

	require.NoError(t, RemoveFiles(dir, names))
	for _, name := range names {
		assert.NoFileExists(t, filepath.Join(dir, name))
	}
	assert.NoError(t, RemoveFiles(dir, names), "already removed files are ignored")
}

func TestSizedFileNames(t *testing.T) {
	assert.Equal(t, []string{"node10_1024.bin", "node11_1024.bin"}, SizedFileNames("node1", 2, 1024))
}

func TestWriteRandomFilesCleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a.bin", "missing/b.bin"}

	err := WriteRandomFiles(dir, names, 16)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "a.bin"))
}

func TestRandomReaderWraps(t *testing.T) {
	r := newRandomReader(int64(len(randomBuffer())) + 100)
	r.offset = len(randomBuffer()) - 10

	var buf bytes.Buffer
	n, err := buf.ReadFrom(r)
	require.NoError(t, err)
	assert.EqualValues(t, len(randomBuffer())+100, n)
}
