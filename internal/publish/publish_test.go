package publish

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	status  int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
		return
	}

	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.objects[r.URL.Path] = body
	f.types[r.URL.Path] = r.Header.Get("Content-Type")
	f.mu.Unlock()

	w.Header().Set("ETag", `"abc"`)
	w.WriteHeader(http.StatusOK)
}

func newFake(t *testing.T) (*fakeS3, *httptest.Server) {
	t.Helper()

	// Keep the SDK away from the developer's own AWS config.
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))

	f := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	return f, srv
}

func TestPublish(t *testing.T) {
	f, srv := newFake(t)

	p, err := New(context.Background(), Options{
		Bucket:          "results",
		Prefix:          "/drive/",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	}, nil)
	require.NoError(t, err)

	key, err := p.Publish(context.Background(), "test", "nightly", "report.html", "text/html", []byte("<html></html>"))
	require.NoError(t, err)
	assert.Equal(t, "drive/test/nightly/report.html", key)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []byte("<html></html>"), f.objects["/results/drive/test/nightly/report.html"])
	assert.Equal(t, "text/html", f.types["/results/drive/test/nightly/report.html"])
}

func TestPublishError(t *testing.T) {
	f, srv := newFake(t)
	f.status = http.StatusForbidden

	p, err := New(context.Background(), Options{
		Bucket: "results", Region: "us-east-1", Endpoint: srv.URL,
		AccessKeyID: "key", SecretAccessKey: "secret",
	}, nil)
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), "prod", "manual", "results.txt", "text/plain", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prod/manual/results.txt")
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Options{Region: "us-east-1"}, nil)
	assert.ErrorIs(t, err, ErrNoBucket)
}

func TestKeyWithoutPrefix(t *testing.T) {
	p := &Publisher{}
	assert.Equal(t, "test/job/a.txt", p.Key("test", "job", "a.txt"))
}
