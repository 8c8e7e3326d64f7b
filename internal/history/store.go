// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a SQLite log of harvest runs and the records each
// run collected, so past results can be listed and re-exported.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/scholar-harvest/internal/export"
	"github.com/pdiddy/scholar-harvest/pkg/types"
)

// DefaultPath is where the history database lives when none is configured.
const DefaultPath = ".scholar-harvest/history.db"

// Run is one row of the runs table.
type Run struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	Keywords   string    `json:"keywords"`
	StartYear  int       `json:"start_year"`
	EndYear    int       `json:"end_year"`
	Outcome    string    `json:"outcome"`
	Collected  int       `json:"collected"`
	Visited    int       `json:"visited"`
	Skipped    int       `json:"skipped"`
	Attempts   int       `json:"attempts"`
	Proxy      string    `json:"proxy"`
	Output     string    `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// FromManifest converts a run manifest into a history row.
func FromManifest(m export.Manifest) Run {
	return Run{
		ID:         m.RunID,
		Provider:   m.Provider,
		Keywords:   m.Request.Keywords,
		StartYear:  m.Request.StartYear,
		EndYear:    m.Request.EndYear,
		Outcome:    string(m.Summary.Outcome),
		Collected:  m.Summary.Collected,
		Visited:    m.Summary.Visited,
		Skipped:    m.Summary.Skipped,
		Attempts:   m.Summary.Attempts,
		Proxy:      m.Summary.Proxy,
		Output:     m.Output,
		Error:      m.Summary.Error,
		StartedAt:  m.Summary.StartedAt,
		FinishedAt: m.Summary.FinishedAt,
	}
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating the parent
// directory and schema when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			keywords TEXT NOT NULL,
			start_year INTEGER NOT NULL,
			end_year INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			collected INTEGER NOT NULL,
			visited INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			proxy TEXT,
			output TEXT,
			error TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT,
			doi TEXT,
			authors TEXT,
			year INTEGER,
			month TEXT,
			abstract TEXT,
			citation INTEGER,
			publication TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a run and its records in one transaction.
func (s *Store) Record(ctx context.Context, run Run, records []types.PublicationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, provider, keywords, start_year, end_year, outcome,
			collected, visited, skipped, attempts, proxy, output, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Provider, run.Keywords, run.StartYear, run.EndYear, run.Outcome,
		run.Collected, run.Visited, run.Skipped, run.Attempts, run.Proxy, run.Output, run.Error,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, position, title, doi, authors, year, month, abstract, citation, publication)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, run.ID, i, r.Title, r.DOI, r.Authors, r.Year,
			r.Month, r.Abstract, r.Citation, r.Publication); err != nil {
			return fmt.Errorf("inserting record %d of run %s: %w", i, run.ID, err)
		}
	}

	return tx.Commit()
}

// List returns up to limit runs, newest first. A limit of 0 returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, provider, keywords, start_year, end_year, outcome, collected, visited,
		skipped, attempts, proxy, output, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			proxy, out, msg   sql.NullString
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.Provider, &r.Keywords, &r.StartYear, &r.EndYear, &r.Outcome,
			&r.Collected, &r.Visited, &r.Skipped, &r.Attempts, &proxy, &out, &msg,
			&started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Proxy, r.Output, r.Error = proxy.String, out.String, msg.String
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Records returns the records collected by a run in discovery order.
func (s *Store) Records(ctx context.Context, runID string) ([]types.PublicationRecord, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("looking up run %s: %w", runID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("run %s not found", runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT title, doi, authors, year, month, abstract, citation, publication
		FROM records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []types.PublicationRecord
	for rows.Next() {
		var r types.PublicationRecord
		if err := rows.Scan(&r.Title, &r.DOI, &r.Authors, &r.Year, &r.Month,
			&r.Abstract, &r.Citation, &r.Publication); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
