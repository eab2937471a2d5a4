package stress

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"sync"
)

// randomBuffer is a pool of random bytes that generated files are cut from.
// Each file starts at a random offset so that files differ and the server
// cannot deduplicate or compress them.
var randomBuffer = sync.OnceValue(func() []byte {
	buf := make([]byte, 4*1024*1024)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("failed to initialize random buffer: %v", err))
	}
	return buf
})

// randomReader yields Limit bytes from randomBuffer.
type randomReader struct {
	Limit     int64
	BytesRead int64
	offset    int
}

func newRandomReader(limit int64) *randomReader {
	return &randomReader{Limit: limit, offset: mrand.IntN(len(randomBuffer()))}
}

func (r *randomReader) Read(p []byte) (n int, err error) {
	if r.BytesRead >= r.Limit {
		return 0, io.EOF
	}
	remaining := r.Limit - r.BytesRead
	n = len(p)
	if int64(n) > remaining {
		n = int(remaining)
	}

	buf := randomBuffer()
	copied := 0
	for copied < n {
		c := copy(p[copied:n], buf[r.offset:])
		copied += c
		r.offset = (r.offset + c) % len(buf)
	}

	r.BytesRead += int64(n)
	return n, nil
}

// FileNames returns node0.bin, node1.bin, ... node(n-1).bin.
func FileNames(node string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s%d.bin", node, i)
	}

	return names
}

// SizedFileNames returns node0_size.bin ... for the file-size matrix.
func SizedFileNames(node string, n int, size int64) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s%d_%d.bin", node, i, size)
	}

	return names
}

// GenerateFiles writes n files of size random bytes into dir and returns
// their names.
func GenerateFiles(dir, node string, n int, size int64) ([]string, error) {
	names := FileNames(node, n)
	if err := WriteRandomFiles(dir, names, size); err != nil {
		return nil, err
	}

	return names, nil
}

// WriteRandomFiles creates every name in dir with size random bytes. Files
// written before a failure are removed again.
func WriteRandomFiles(dir string, names []string, size int64) error {
	if dir == "" {
		dir = os.TempDir()
	}

	for i, name := range names {
		if err := writeRandomFile(filepath.Join(dir, name), size); err != nil {
			return errors.Join(fmt.Errorf("generating %s: %w", name, err), RemoveFiles(dir, names[:i]))
		}
	}

	return nil
}

func writeRandomFile(p string, size int64) error {
	f, err := os.Create(p)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, newRandomReader(size)); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// RemoveFiles deletes the named files from dir. Missing files are ignored.
func RemoveFiles(dir string, names []string) error {
	if dir == "" {
		dir = os.TempDir()
	}

	var errs []error
	for _, name := range names {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
