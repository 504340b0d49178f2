package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// timeLayout is fixed-width so TEXT columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// HistoryStore journals walkthrough runs in SQLite.
type HistoryStore struct {
	DB *sql.DB
}

func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			target_url TEXT,
			started_at TEXT,
			finished_at TEXT,
			status TEXT,
			entry_count INTEGER,
			error TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT REFERENCES runs(id),
			step_index INTEGER,
			name TEXT,
			screenshot TEXT,
			outcome TEXT,
			detail TEXT,
			at TEXT
		);`,
	}
	for _, q := range queries {
		if _, err = db.Exec(q); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &HistoryStore{DB: db}, nil
}

func (h *HistoryStore) Close() error {
	return h.DB.Close()
}

// SaveRun writes the run and all of its steps in one transaction.
func (h *HistoryStore) SaveRun(run *Run) error {
	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, target_url, started_at, finished_at, status, entry_count, error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.TargetURL, run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		string(run.Status), run.EntryCount, run.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, s := range run.Steps {
		_, err = tx.Exec(
			`INSERT INTO steps (run_id, step_index, name, screenshot, outcome, detail, at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, s.Index, s.Name, s.Screenshot, string(s.Outcome), s.Detail, s.At.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("insert step %d: %w", s.Index, err)
		}
	}

	return tx.Commit()
}

// GetRun loads a run with its steps in checkpoint order.
func (h *HistoryStore) GetRun(id string) (*Run, error) {
	var run Run
	var started, finished, status string
	err := h.DB.QueryRow(
		`SELECT id, target_url, started_at, finished_at, status, entry_count, error FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.TargetURL, &started, &finished, &status, &run.EntryCount, &run.Error)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.StartedAt, _ = time.Parse(timeLayout, started)
	run.FinishedAt, _ = time.Parse(timeLayout, finished)

	rows, err := h.DB.Query(
		`SELECT step_index, name, screenshot, outcome, detail, at FROM steps WHERE run_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s Step
		var outcome, at string
		if err := rows.Scan(&s.Index, &s.Name, &s.Screenshot, &outcome, &s.Detail, &at); err != nil {
			return nil, err
		}
		s.Outcome = Outcome(outcome)
		s.At, _ = time.Parse(timeLayout, at)
		run.Steps = append(run.Steps, s)
	}
	return &run, rows.Err()
}

// RecentRuns lists the latest runs for a target, newest first, without steps.
func (h *HistoryStore) RecentRuns(targetURL string, limit int) ([]Run, error) {
	rows, err := h.DB.Query(
		`SELECT id, target_url, started_at, finished_at, status, entry_count, error
		FROM runs WHERE target_url = ? ORDER BY started_at DESC LIMIT ?`, targetURL, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished, status string
		if err := rows.Scan(&r.ID, &r.TargetURL, &started, &finished, &status, &r.EntryCount, &r.Error); err != nil {
			return nil, err
		}
		r.Status = RunStatus(status)
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LastRun returns the newest journaled run for a target with its steps, or
// nil when the target has no runs yet.
func (h *HistoryStore) LastRun(targetURL string) (*Run, error) {
	runs, err := h.RecentRuns(targetURL, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return h.GetRun(runs[0].ID)
}
