// Package recorder persists optimizer evaluations to a SQLite database so
// runs can be inspected with ordinary SQL after the process exits.
package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/smartcache-sim/smartcache-sim/sim/optimize"
)

// DefaultBatchSize is the number of buffered evaluations that triggers a flush.
const DefaultBatchSize = 256

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	mode       TEXT NOT NULL,
	started_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS evaluations (
	run_id    TEXT NOT NULL,
	workload  TEXT NOT NULL,
	iteration INTEGER NOT NULL,
	source    TEXT NOT NULL,
	size      INTEGER NOT NULL,
	block     INTEGER NOT NULL,
	assoc     INTEGER NOT NULL,
	hits      INTEGER NOT NULL,
	misses    INTEGER NOT NULL,
	miss_rate REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS evaluations_by_run ON evaluations (run_id, workload, iteration);
`

const insertEvaluation = `INSERT INTO evaluations
	(run_id, workload, iteration, source, size, block, assoc, hits, misses, miss_rate)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteRecorder buffers evaluation records and writes them in batched
// transactions. Safe for concurrent use by parallel optimization runs.
type SQLiteRecorder struct {
	db        *sql.DB
	runID     string
	batchSize int

	mu      sync.Mutex
	pending []optimize.EvaluationRecord
	written int
	closed  bool
}

// NewRunID returns a fresh, sortable run identifier.
func NewRunID() string { return xid.New().String() }

// Open creates (or reuses) the database at path and registers run runID.
// Buffered records are flushed on Close and at process exit via atexit.
func Open(path, runID, mode string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening recorder database: %w", err)
	}
	// a single connection serializes writers at the driver
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating recorder schema in %s: %w", path, err)
	}
	if _, err := db.Exec(`INSERT INTO runs (run_id, mode, started_at) VALUES (?, ?, ?)`,
		runID, mode, time.Now().UTC().Format(time.RFC3339)); err != nil {
		db.Close()
		return nil, fmt.Errorf("registering run %s: %w", runID, err)
	}

	r := &SQLiteRecorder{db: db, runID: runID, batchSize: DefaultBatchSize}
	atexit.Register(func() {
		if err := r.Close(); err != nil {
			logrus.Errorf("recorder: %v", err)
		}
	})
	logrus.Infof("Recording evaluations of run %s to %s", runID, path)
	return r, nil
}

// RunID returns the identifier rows are written under.
func (r *SQLiteRecorder) RunID() string { return r.runID }

// Record buffers one evaluation and flushes when the batch is full.
// It has the signature of optimize.Options.OnEvaluation.
func (r *SQLiteRecorder) Record(rec optimize.EvaluationRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.pending = append(r.pending, rec)
	if len(r.pending) >= r.batchSize {
		if err := r.flushLocked(); err != nil {
			logrus.Errorf("recorder: %v", err)
		}
	}
}

// Flush writes all buffered records in one transaction.
func (r *SQLiteRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

func (r *SQLiteRecorder) flushLocked() error {
	if len(r.pending) == 0 || r.closed {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.Prepare(insertEvaluation)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range r.pending {
		if _, err := stmt.Exec(r.runID, rec.Workload, rec.Iteration, string(rec.Source),
			rec.Config.SizeBytes(), rec.Config.BlockBytes(), rec.Config.Associativity(),
			rec.Hits, rec.Misses, rec.MissRate); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting %s eval %d: %w", rec.Workload, rec.Iteration, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %d evaluations: %w", len(r.pending), err)
	}
	r.written += len(r.pending)
	r.pending = nil
	return nil
}

// Written returns the number of records committed so far.
func (r *SQLiteRecorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Close flushes and closes the database. Further calls are no-ops.
func (r *SQLiteRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	err := r.flushLocked()
	r.closed = true
	if cerr := r.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// RunSummary is one row of the per-workload best query.
type RunSummary struct {
	Workload     string
	Evaluations  int
	BestMissRate float64
}

// Summaries returns the evaluation count and best miss rate per workload for
// this run, ordered by workload. Only committed rows are visible.
func (r *SQLiteRecorder) Summaries() ([]RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("recorder closed")
	}
	rows, err := r.db.Query(`SELECT workload, COUNT(*), MIN(miss_rate) FROM evaluations
		WHERE run_id = ? GROUP BY workload ORDER BY workload`, r.runID)
	if err != nil {
		return nil, fmt.Errorf("querying summaries: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.Workload, &s.Evaluations, &s.BestMissRate); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
