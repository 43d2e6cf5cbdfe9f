// Package journal persists a queryable history of reconciliation runs and
// their per-mapping outcomes in a local SQLite database. The log stream
// remains the primary user-visible surface; the journal exists so support
// can answer "what did the agent do on this machine last Tuesday" without
// scraping transcripts.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver
)

// Journal records runs into a SQLite database. One writer at a time:
// the connection pool is capped at a single connection, and the agent
// itself is single-instance via the PID file.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Run is the top-level record of one reconciliation pass.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string // "completed" or "fatal:<reason>"
	Mappings   int
	Actions    int
	Failures   int
}

// ActionRecord is one per-mapping outcome within a run.
type ActionRecord struct {
	Seq     int
	Mapping string
	Letter  string
	Op      string
	Outcome string
	Error   string
}

// Open opens (creating if needed) the journal database at path and applies
// pending schema migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: opening %s: %w", path, err)
	}

	// Sole-writer: a single connection avoids SQLITE_BUSY entirely.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Record writes one run and its action records in a single transaction.
func (j *Journal) Record(ctx context.Context, run Run, actions []ActionRecord) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, outcome, mappings, actions, failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Outcome,
		run.Mappings,
		run.Actions,
		run.Failures,
	)
	if err != nil {
		return fmt.Errorf("journal: inserting run: %w", err)
	}

	for _, a := range actions {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_actions (run_id, seq, mapping, letter, op, outcome, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, a.Seq, a.Mapping, a.Letter, a.Op, a.Outcome, a.Error,
		)
		if err != nil {
			return fmt.Errorf("journal: inserting action %d: %w", a.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal: commit: %w", err)
	}

	j.logger.Debug("run journaled",
		slog.String("run_id", run.ID),
		slog.Int("actions", len(actions)),
	)

	return nil
}

// LastRuns returns the most recent runs, newest first.
func (j *Journal) LastRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, outcome, mappings, actions, failures
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var (
			r                    Run
			startedAt, finishedAt string
		)

		if err := rows.Scan(&r.ID, &startedAt, &finishedAt, &r.Outcome,
			&r.Mappings, &r.Actions, &r.Failures); err != nil {
			return nil, fmt.Errorf("journal: scanning run: %w", err)
		}

		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("journal: parsing started_at: %w", err)
		}

		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("journal: parsing finished_at: %w", err)
		}

		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterating runs: %w", err)
	}

	return runs, nil
}

// RunActions returns the action records of one run in sequence order.
func (j *Journal) RunActions(ctx context.Context, runID string) ([]ActionRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT seq, mapping, letter, op, outcome, error
		 FROM run_actions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: querying actions: %w", err)
	}
	defer rows.Close()

	var actions []ActionRecord

	for rows.Next() {
		var a ActionRecord

		if err := rows.Scan(&a.Seq, &a.Mapping, &a.Letter, &a.Op, &a.Outcome, &a.Error); err != nil {
			return nil, fmt.Errorf("journal: scanning action: %w", err)
		}

		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterating actions: %w", err)
	}

	return actions, nil
}
