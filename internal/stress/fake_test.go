package stress

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeRemote completes uploads and deletes from background goroutines and
// tracks how many are running at once.
type fakeRemote struct {
	mu        sync.Mutex
	running   int
	peak      int
	uploaded  []string
	deleted   map[string]int
	listing   map[string][]string
	submitErr func(local string) error
	opErr     func(remote string) error
	delay     time.Duration
	hang      bool // never complete uploads or deletes until ctx ends
	slowDelete bool // deletes return only when ctx ends
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		deleted: make(map[string]int),
		listing: make(map[string][]string),
	}
}

func (f *fakeRemote) begin() {
	f.mu.Lock()
	f.running++
	f.peak = max(f.peak, f.running)
	f.mu.Unlock()
}

func (f *fakeRemote) end() {
	f.mu.Lock()
	f.running--
	f.mu.Unlock()
}

func (f *fakeRemote) work(ctx context.Context, remote string) error {
	if f.hang {
		<-ctx.Done()
		select {} // a stuck request that ignores cancellation
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.opErr != nil {
		return f.opErr(remote)
	}
	return nil
}

func (f *fakeRemote) UploadAsync(ctx context.Context, remote, local string, done func(error)) error {
	if f.submitErr != nil {
		if err := f.submitErr(local); err != nil {
			return err
		}
	}

	f.begin()
	go func() {
		err := f.work(ctx, remote)
		f.mu.Lock()
		if err == nil {
			f.uploaded = append(f.uploaded, remote)
		}
		f.mu.Unlock()
		f.end()
		done(err)
	}()

	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, remote string) error {
	f.begin()
	defer f.end()

	if f.slowDelete {
		<-ctx.Done()
		return ctx.Err()
	}

	if err := f.work(ctx, remote); err != nil {
		return err
	}

	f.mu.Lock()
	f.deleted[remote]++
	f.mu.Unlock()

	return nil
}

func (f *fakeRemote) List(_ context.Context, dir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	names, ok := f.listing[dir]
	if !ok {
		return nil, errors.New("no such folder")
	}

	return names, nil
}

func (f *fakeRemote) Mkdir(context.Context, string) error { return nil }

func (f *fakeRemote) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.peak
}
