package stress

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextcloud-stress/internal/webdav"
	"nextcloud-stress/internal/webdav/davtest"
)

var recordLine = regexp.MustCompile(`^node1 {11}Upload: \d+\.\ds at \d+\.\d\d s/file - \d+\.\d\d files/s *Delete: \d+\.\ds at \d+\.\d\d s/file - \d+\.\d\d files/s *$`)

func TestRunEndToEnd(t *testing.T) {
	srv := davtest.New(t, "alice", "secret")
	client := webdav.NewClient(srv.URL, "alice", "secret")
	results := &Results{}

	rec, err := Run(context.Background(), client, Options{
		Node:        "node1",
		Folder:      "performance",
		TempDir:     t.TempDir(),
		Files:       10,
		FileSize:    512,
		MaxUploads:  5,
		MaxDeletes:  4,
		WaveTimeout: 30 * time.Second,
		Results:     results,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, rec.Err())

	assert.Equal(t, 2, rec.Upload.Waves)
	assert.Equal(t, 10, rec.Upload.Ops)
	assert.Equal(t, 3, rec.Delete.Waves)
	assert.Equal(t, 10, rec.Delete.Ops)
	assert.Equal(t, 10, srv.Count(http.MethodPut))
	assert.Equal(t, 10, srv.Count(http.MethodDelete))

	var uploaded []string
	for _, o := range rec.Upload.Outcomes {
		uploaded = append(uploaded, o.Name)
	}
	assert.Equal(t, []string{
		"performance/node10.bin", "performance/node11.bin", "performance/node12.bin",
		"performance/node13.bin", "performance/node14.bin", "performance/node15.bin",
		"performance/node16.bin", "performance/node17.bin", "performance/node18.bin",
		"performance/node19.bin",
	}, uploaded)

	names, err := client.List(context.Background(), "performance")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.Equal(t, 1, results.Len())
	assert.Regexp(t, recordLine, results.Lines()[0])
}

func TestRunRemovesLocalFiles(t *testing.T) {
	srv := davtest.New(t, "alice", "secret")
	dir := t.TempDir()

	_, err := Run(context.Background(), webdav.NewClient(srv.URL, "alice", "secret"), Options{
		Node: "n", TempDir: dir, Files: 3, FileSize: 8, MaxUploads: 2, MaxDeletes: 2,
	}, nil)
	require.NoError(t, err)

	assert.NoFileExists(t, dir+"/n0.bin")
	assert.NoFileExists(t, dir+"/n2.bin")
}

func TestRunRecordsUploadFailures(t *testing.T) {
	srv := davtest.New(t, "alice", "secret")
	srv.Fail = func(r *http.Request) int {
		if r.Method == http.MethodPut && r.URL.Path == srv.FilesPrefix()+"/performance/n1.bin" {
			return http.StatusInsufficientStorage
		}
		return 0
	}

	rec, err := Run(context.Background(), webdav.NewClient(srv.URL, "alice", "secret"), Options{
		Node: "n", TempDir: t.TempDir(), Files: 4, FileSize: 8, MaxUploads: 2, MaxDeletes: 2,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.Upload.Failed)
	assert.ErrorIs(t, rec.Err(), webdav.ErrPUTFailed)
	assert.Equal(t, 3, rec.Delete.Ops, "only the uploaded files are listed")
}

func TestRunRecordsDeleteTimeout(t *testing.T) {
	remote := newFakeRemote()
	remote.slowDelete = true
	remote.listing["performance"] = []string{"n0.bin", "n1.bin"}
	results := &Results{}

	rec, err := Run(context.Background(), remote, Options{
		Node: "n", Folder: "performance", TempDir: t.TempDir(), Files: 2, FileSize: 8,
		MaxUploads: 2, MaxDeletes: 2, WaveTimeout: 50 * time.Millisecond, Results: results,
	}, nil)
	require.ErrorIs(t, err, ErrWaveTimeout)

	assert.Equal(t, 2, rec.Upload.Ops)
	assert.Zero(t, rec.Upload.Failed)
	assert.Equal(t, 2, rec.Delete.Ops)
	assert.Equal(t, 2, rec.Delete.Failed)
	require.Equal(t, 1, results.Len(), "the node line is recorded after a delete timeout")
	assert.Contains(t, results.Lines()[0], "Delete:")
}

func TestRunFailsWithoutFolder(t *testing.T) {
	srv := davtest.New(t, "alice", "secret")

	_, err := Run(context.Background(), webdav.NewClient(srv.URL, "alice", "wrong"), Options{Node: "n", Files: 1}, nil)
	require.ErrorIs(t, err, webdav.ErrUnauthorized)
}

func TestRunSizes(t *testing.T) {
	srv := davtest.New(t, "alice", "secret")
	client := webdav.NewClient(srv.URL, "alice", "secret", webdav.WithChunking(1024, 2048))

	row, err := RunSizes(context.Background(), client, Options{
		Node:       "node1",
		TempDir:    t.TempDir(),
		Files:      2,
		MaxUploads: 2,
		MaxDeletes: 2,
	}, []int64{512, 4096}, nil)
	require.NoError(t, err)
	require.NoError(t, row.Err())

	require.Len(t, row.Upload, 2)
	require.Len(t, row.Delete, 2)
	assert.Equal(t, 2+2*4, srv.Count(http.MethodPut), "small files in one PUT, large ones in 1KiB chunks")
	assert.Equal(t, 2, srv.Count("MOVE"))
	assert.Equal(t, 4, srv.Count(http.MethodDelete))
	assert.Regexp(t, `^node1 {11}\d+\.\d +\d+\.\d +$`, row.String())
	assert.True(t, srv.Exists("/selenium-system/TestWebDavPerformance_file_sizes"))
	assert.False(t, srv.Exists("/selenium-system/TestWebDavPerformance_file_sizes/node10_4096.bin"))
}

func TestEmptyTrash(t *testing.T) {
	srv := davtest.New(t, "alice", "secret")
	require.NoError(t, srv.Trash.Mkdir(context.Background(), "/trash", 0o755))
	for _, name := range []string{"a.d1", "b.d2", "c.d3"} {
		srv.PutTrash(t, "/trash/"+name, []byte("x"))
	}
	trash := webdav.NewClient(srv.URL, "alice", "secret").Trashbin()

	stats, err := EmptyTrash(context.Background(), trash, "", 2, time.Minute, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Ops)
	assert.Equal(t, 2, stats.Waves)

	names, err := trash.List(context.Background(), "trash")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestClean(t *testing.T) {
	srv := davtest.New(t, "alice", "secret")
	srv.Mkdir(t, "selenium-system/TestWebDavPerformance_file_sizes")
	srv.Mkdir(t, "projectbucket")
	srv.Mkdir(t, "old-folder/deep")
	srv.Put(t, "/selenium-system/leftover.bin", []byte("x"))
	srv.Put(t, "/stray.txt", []byte("x"))
	srv.Put(t, "/old-folder/deep/f.bin", []byte("x"))

	stats, err := Clean(context.Background(), webdav.NewClient(srv.URL, "alice", "secret"),
		[]string{"selenium-system/", "selenium-personal/", "projectbucket/"}, 3, time.Minute, nil)
	require.NoError(t, err)
	require.NoError(t, stats.Err())

	assert.True(t, srv.Exists("/selenium-system"))
	assert.True(t, srv.Exists("/projectbucket"))
	assert.False(t, srv.Exists("/selenium-system/leftover.bin"))
	assert.False(t, srv.Exists("/selenium-system/TestWebDavPerformance_file_sizes"))
	assert.False(t, srv.Exists("/stray.txt"))
	assert.False(t, srv.Exists("/old-folder"))
	assert.Equal(t, 4, stats.Ops)
}
