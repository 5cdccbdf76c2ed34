// SPDX-License-Identifier: MPL-2.0

package metricstore

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/nibench/nibench/pkg/metrics"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

//go:embed schema.sql
var schemaFS embed.FS

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

type (
	// Store is a SQLite-backed metric record store.
	Store struct {
		db  *sql.DB
		now func() time.Time
	}

	// Run identifies one benchmark invocation.
	Run struct {
		ID        string
		Suite     string
		Benchmark string
		Config    string
		Stage     string
		CreatedAt time.Time
	}

	// StoredRecord is a metric record read back from the store.
	StoredRecord struct {
		RunID  string
		Record metrics.Record
	}

	// Filter narrows ListRuns. Empty fields match everything.
	Filter struct {
		Benchmark string
		Config    string
		// Limit caps the number of runs returned; 0 means no cap.
		Limit int
	}

	// RunSink writes the records of one run. It implements metrics.Sink.
	RunSink struct {
		store *Store
		run   Run
		ctx   context.Context
	}
)

// Open opens (creating if needed) the database at path and applies the schema.
// Pass MemoryPath for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("execute schema: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// BeginRun records a new run and returns a sink for its records.
// A run without an ID is assigned a random one.
func (s *Store) BeginRun(ctx context.Context, run Run) (*RunSink, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, suite, benchmark, config, stage, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Suite, run.Benchmark, run.Config, run.Stage, run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	return &RunSink{store: s, run: run, ctx: ctx}, nil
}

// Run returns the run this sink writes to.
func (r *RunSink) Run() Run { return r.run }

// Record stores records under the sink's run.
func (r *RunSink) Record(benchmark string, records []metrics.Record) error {
	return r.store.insertRecords(r.ctx, r.run.ID, benchmark, records)
}

func (s *Store) insertRecords(ctx context.Context, runID, benchmark string, records []metrics.Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, benchmark, name, value, unit, object, better, iteration, dimensions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		dims, merr := json.Marshal(rec)
		if merr != nil {
			return fmt.Errorf("marshal record %s: %w", rec.Name(), merr)
		}
		var value any
		if v, ok := rec.Value(); ok {
			value = v
		}
		name := rec.Benchmark()
		if name == "" {
			name = benchmark
		}
		if _, err = stmt.ExecContext(ctx, runID, name, rec.Name(), value,
			rec.Unit(), rec.Object(), rec.Better(), rec.Iteration(), string(dims)); err != nil {
			return fmt.Errorf("save record %s: %w", rec.Name(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit records: %w", err)
	}
	return nil
}

// GetRun returns the run with the given ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, suite, benchmark, config, stage, created_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, f Filter) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if f.Benchmark != "" {
		where = append(where, "benchmark = ?")
		args = append(args, f.Benchmark)
	}
	if f.Config != "" {
		where = append(where, "config = ?")
		args = append(args, f.Config)
	}

	query := `SELECT id, suite, benchmark, config, stage, created_at FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Records returns the records of a run in insertion order.
func (s *Store) Records(ctx context.Context, runID string) ([]StoredRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, dimensions FROM records WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		var (
			id   string
			dims string
		)
		if err := rows.Scan(&id, &dims); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decodeRecord(dims)
		if err != nil {
			return nil, err
		}
		out = append(out, StoredRecord{RunID: id, Record: rec})
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its records.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	// In-memory databases are opened without the foreign_keys pragma.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run     Run
		created string
	)
	if err := row.Scan(&run.ID, &run.Suite, &run.Benchmark, &run.Config, &run.Stage, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Run{}, fmt.Errorf("parse run time %q: %w", created, err)
	}
	run.CreatedAt = t
	return run, nil
}

// decodeRecord restores integer dimensions as int64 and the rest as float64.
func decodeRecord(dims string) (metrics.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(dims)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	rec := make(metrics.Record, len(raw))
	for k, v := range raw {
		n, ok := v.(json.Number)
		if !ok {
			rec[k] = v
			continue
		}
		if i, err := n.Int64(); err == nil {
			rec[k] = i
		} else if f, err := n.Float64(); err == nil {
			rec[k] = f
		} else {
			rec[k] = n.String()
		}
	}
	return rec, nil
}
