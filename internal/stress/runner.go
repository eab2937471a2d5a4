package stress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"nextcloud-stress/internal/config"
)

func (o Options) withDefaults() Options {
	if o.Folder == "" {
		o.Folder = config.DefaultStressFolder
	}
	if o.MaxUploads < 1 {
		o.MaxUploads = config.DefaultMaxUploads
	}
	if o.MaxDeletes < 1 {
		o.MaxDeletes = config.DefaultMaxDeletes
	}

	return o
}

// scratchDir returns the directory to generate files in and a cleanup func.
func scratchDir(dir string) (string, func(), error) {
	if dir != "" {
		return dir, func() {}, nil
	}

	tmp, err := os.MkdirTemp("", "drive-stress-*")
	if err != nil {
		return "", nil, err
	}

	return tmp, func() { _ = os.RemoveAll(tmp) }, nil
}

// Run performs one node's stress run: create the remote folder, generate the
// local files, upload them in waves, remove the local copies, list the
// remote folder and delete its contents in waves.
//
// Setup failures (folder, generation, listing) are returned with an empty or
// partial record. Per-file failures only show up in Record.Err. A wave
// timeout in the upload phase still runs the delete phase and is returned
// afterwards.
func Run(ctx context.Context, remote Remote, opts Options, logger *slog.Logger) (Record, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts = opts.withDefaults()
	logger = logger.With("node", opts.Node)
	rec := Record{Node: opts.Node, Files: opts.Files}

	if err := remote.Mkdir(ctx, opts.Folder); err != nil {
		return rec, fmt.Errorf("creating %s: %w", opts.Folder, err)
	}

	dir, cleanup, err := scratchDir(opts.TempDir)
	if err != nil {
		return rec, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer cleanup()

	logger.Info("generating files", "files", opts.Files, "size", opts.FileSize)
	names, err := GenerateFiles(dir, opts.Node, opts.Files, opts.FileSize)
	if err != nil {
		return rec, err
	}

	jobs := make([]Job, len(names))
	for i, name := range names {
		jobs[i] = Job{Local: filepath.Join(dir, name), Remote: path.Join(opts.Folder, name)}
	}

	logger.Info("upload phase", "files", len(jobs), "wave", opts.MaxUploads)
	up := NewUploader(remote, opts.MaxUploads, opts.WaveTimeout, opts.RateLimit, logger)
	rec.Upload, err = up.Run(ctx, jobs)
	upErr := err

	if err := RemoveFiles(dir, names); err != nil {
		logger.Warn("removing local files", "error", err)
	}
	if ctx.Err() != nil {
		return rec, ctx.Err()
	}

	paths, err := listChildren(ctx, remote, opts.Folder)
	if err != nil {
		return rec, errors.Join(upErr, err)
	}

	logger.Info("delete phase", "files", len(paths), "wave", opts.MaxDeletes)
	rec.Delete, err = NewBatchDeleter(remote, opts.MaxDeletes, opts.WaveTimeout, logger).Run(ctx, paths)

	line := rec.String()
	if opts.Results != nil {
		line = opts.Results.Add(rec)
	}
	logger.Info(line)

	return rec, errors.Join(upErr, err)
}

// listChildren lists folder once and returns the full paths of its children.
func listChildren(ctx context.Context, store Store, folder string) ([]string, error) {
	names, err := store.List(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", folder, err)
	}

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = path.Join(folder, name)
	}

	return paths, nil
}

// prune lists folder once and deletes every child in waves.
func prune(ctx context.Context, store Store, folder string, waveSize int, timeout time.Duration, logger *slog.Logger) (PhaseStats, error) {
	paths, err := listChildren(ctx, store, folder)
	if err != nil {
		return PhaseStats{}, err
	}

	logger.Info("delete phase", "files", len(paths), "wave", waveSize)

	return NewBatchDeleter(store, waveSize, timeout, logger).Run(ctx, paths)
}

// RunSizes uploads opts.Files files of each size and deletes them again,
// timing each size separately. Files larger than the client's chunk
// threshold are sent with chunked upload by the client.
func RunSizes(ctx context.Context, remote Remote, opts Options, sizes []int64, logger *slog.Logger) (SizeRow, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Folder == "" {
		opts.Folder = config.DefaultSizesFolder
	}
	opts = opts.withDefaults()
	logger = logger.With("node", opts.Node)
	row := SizeRow{Node: opts.Node, Sizes: sizes}

	if err := remote.Mkdir(ctx, opts.Folder); err != nil {
		return row, fmt.Errorf("creating %s: %w", opts.Folder, err)
	}

	dir, cleanup, err := scratchDir(opts.TempDir)
	if err != nil {
		return row, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer cleanup()

	var phaseErrs []error
	for _, size := range sizes {
		names := SizedFileNames(opts.Node, opts.Files, size)
		if err := WriteRandomFiles(dir, names, size); err != nil {
			return row, err
		}

		jobs := make([]Job, len(names))
		for i, name := range names {
			jobs[i] = Job{Local: filepath.Join(dir, name), Remote: path.Join(opts.Folder, name)}
		}

		logger.Info("uploading", "size", size, "files", len(jobs))
		stats, err := NewUploader(remote, opts.MaxUploads, opts.WaveTimeout, opts.RateLimit, logger).Run(ctx, jobs)
		row.Upload = append(row.Upload, stats)
		phaseErrs = append(phaseErrs, err)

		if err := RemoveFiles(dir, names); err != nil {
			logger.Warn("removing local files", "error", err)
		}
		if ctx.Err() != nil {
			return row, ctx.Err()
		}

		remotes := make([]string, len(names))
		for i, name := range names {
			remotes[i] = path.Join(opts.Folder, name)
		}
		stats, err = NewBatchDeleter(remote, opts.MaxDeletes, opts.WaveTimeout, logger).Run(ctx, remotes)
		row.Delete = append(row.Delete, stats)
		phaseErrs = append(phaseErrs, err)
	}

	logger.Info(row.String())

	return row, errors.Join(phaseErrs...)
}

// EmptyTrash deletes every entry below folder of a trash bin store.
func EmptyTrash(ctx context.Context, trash Store, folder string, maxDeletes int, timeout time.Duration, logger *slog.Logger) (PhaseStats, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if folder == "" {
		folder = config.DefaultTrashFolder
	}
	if maxDeletes < 1 {
		maxDeletes = config.DefaultTrashMaxDeletes
	}

	return prune(ctx, trash, folder, maxDeletes, timeout, logger)
}

// Clean deletes everything in the account's files root. For entries named in
// exclude (collection names with a trailing "/") only their children are
// deleted, so the folders themselves survive.
func Clean(ctx context.Context, store Store, exclude []string, maxDeletes int, timeout time.Duration, logger *slog.Logger) (PhaseStats, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if maxDeletes < 1 {
		maxDeletes = config.DefaultCleanMaxDeletes
	}

	entries, err := store.List(ctx, "")
	if err != nil {
		return PhaseStats{}, fmt.Errorf("listing files root: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !slices.Contains(exclude, entry) && !slices.Contains(exclude, strings.TrimSuffix(entry, "/")) {
			paths = append(paths, strings.TrimSuffix(entry, "/"))
			continue
		}

		children, err := store.List(ctx, entry)
		if err != nil {
			return PhaseStats{}, fmt.Errorf("listing %s: %w", entry, err)
		}
		logger.Info("keeping folder, deleting contents", "folder", entry, "entries", len(children))
		for _, child := range children {
			paths = append(paths, path.Join(entry, child))
		}
	}

	logger.Info("cleaning account", "entries", len(paths), "wave", maxDeletes)

	return NewBatchDeleter(store, maxDeletes, timeout, logger).Run(ctx, paths)
}
