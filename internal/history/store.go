// Package history keeps past runs in a local SQLite database so results can
// be compared across days and deployments.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".

	"nextcloud-stress/internal/report"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is the run history database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Run is one stored run.
type Run struct {
	ID          string
	Kind        string
	Environment string
	Job         string
	StartedAt   time.Time
	Completed   bool
	Failed      int
	Nodes       int
	Errors      []string
}

// NodeRow is one node of a stored stress run.
type NodeRow struct {
	Node         string
	URL          string
	Line         string
	UploadOps    int
	UploadFailed int
	Upload       time.Duration
	DeleteOps    int
	DeleteFailed int
	Delete       time.Duration
}

// Open opens or creates the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: creating directory for %s: %w", path, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening database %s: %w", path, err)
	}

	// One connection: keeps an in-memory database alive and serialises writers.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

func migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("history: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("history: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("history: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a run, replacing any earlier version with the same run ID.
func (s *Store) Save(ctx context.Context, data report.ReportData) error {
	settings, err := json.Marshal(data.Settings)
	if err != nil {
		return fmt.Errorf("history: encoding settings: %w", err)
	}

	errs, err := json.Marshal(append([]string{}, data.Errors...))
	if err != nil {
		return fmt.Errorf("history: encoding errors: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, data.RunID); err != nil {
		return fmt.Errorf("history: replacing run %s: %w", data.RunID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, kind, environment, job, started_at, completed, failed, settings, errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		data.RunID, data.Kind, data.Environment, data.JobName,
		data.GeneratedAt.UnixNano(), data.Completed, data.TotalFailed(), string(settings), string(errs))
	if err != nil {
		return fmt.Errorf("history: inserting run %s: %w", data.RunID, err)
	}

	for _, n := range data.Nodes {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO node_results (run_id, node, url, line,
			   upload_ops, upload_failed, upload_ns, delete_ops, delete_failed, delete_ns)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			data.RunID, n.Node, n.URL, n.Line,
			n.Upload.Ops, n.Upload.Failed, int64(n.Upload.Duration),
			n.Delete.Ops, n.Delete.Failed, int64(n.Delete.Duration))
		if err != nil {
			return fmt.Errorf("history: inserting node %s: %w", n.Node, err)
		}
	}

	for _, r := range data.SizeRows {
		for i, p := range r.Upload {
			if i >= len(data.Settings.Sizes) {
				break
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO size_results (run_id, node, size, upload_ns, failed) VALUES (?, ?, ?, ?, ?)`,
				data.RunID, r.Node, data.Settings.Sizes[i], int64(p.Duration), p.Failed)
			if err != nil {
				return fmt.Errorf("history: inserting size row %s: %w", r.Node, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}

	s.logger.Debug("run saved", "run", data.RunID, "nodes", len(data.Nodes), "size_rows", len(data.SizeRows))

	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.kind, r.environment, r.job, r.started_at, r.completed, r.failed, r.errors,
		        (SELECT COUNT(*) FROM node_results n WHERE n.run_id = r.id) +
		        (SELECT COUNT(DISTINCT node) FROM size_results z WHERE z.run_id = r.id)
		   FROM runs r
		  ORDER BY r.started_at DESC, r.id
		  LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		var errs string
		if err := rows.Scan(&r.ID, &r.Kind, &r.Environment, &r.Job, &started, &r.Completed, &r.Failed, &errs, &r.Nodes); err != nil {
			return nil, fmt.Errorf("history: scanning run: %w", err)
		}
		r.StartedAt = time.Unix(0, started)
		if err := json.Unmarshal([]byte(errs), &r.Errors); err != nil {
			return nil, fmt.Errorf("history: decoding errors of %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Nodes returns the per-node results of a stress run in node order.
func (s *Store) Nodes(ctx context.Context, runID string) ([]NodeRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node, url, line, upload_ops, upload_failed, upload_ns, delete_ops, delete_failed, delete_ns
		   FROM node_results
		  WHERE run_id = ?
		  ORDER BY node`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: listing nodes of %s: %w", runID, err)
	}
	defer rows.Close()

	var out []NodeRow
	for rows.Next() {
		var n NodeRow
		var up, del int64
		if err := rows.Scan(&n.Node, &n.URL, &n.Line, &n.UploadOps, &n.UploadFailed, &up, &n.DeleteOps, &n.DeleteFailed, &del); err != nil {
			return nil, fmt.Errorf("history: scanning node: %w", err)
		}
		n.Upload = time.Duration(up)
		n.Delete = time.Duration(del)
		out = append(out, n)
	}

	return out, rows.Err()
}
