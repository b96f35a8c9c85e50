package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists run snapshots so past runs stay inspectable
// across processes. Live runs record into a MemoryStore; the finished
// snapshot is saved here in one transaction.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the history database at the given
// path and initializes the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("history store opened", "path", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS iterations (
			run_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			decision TEXT NOT NULL,
			outcome TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (run_id, idx)
		)`,
		`CREATE TABLE IF NOT EXISTS run_errors (
			run_id TEXT NOT NULL,
			iteration INTEGER NOT NULL,
			message TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_iterations_run ON iterations(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_run_errors_run ON run_errors(run_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}

// SaveRun persists a finished run snapshot atomically.
func (s *SQLiteStore) SaveRun(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO runs (id, query, status, started_at, ended_at) VALUES (?, ?, ?, ?, ?)`,
		snap.RunID, snap.Query, snap.Status, snap.StartedAt.Unix(), snap.EndedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM iterations WHERE run_id = ?`, snap.RunID); err != nil {
		return fmt.Errorf("clear iterations: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM run_errors WHERE run_id = ?`, snap.RunID); err != nil {
		return fmt.Errorf("clear run errors: %w", err)
	}

	for _, rec := range snap.Records {
		decJSON, err := json.Marshal(rec.Decision)
		if err != nil {
			return fmt.Errorf("marshal decision: %w", err)
		}
		outJSON, err := json.Marshal(rec.Outcome)
		if err != nil {
			return fmt.Errorf("marshal outcome: %w", err)
		}
		_, err = tx.Exec(`INSERT INTO iterations (run_id, idx, decision, outcome, created_at) VALUES (?, ?, ?, ?, ?)`,
			snap.RunID, rec.Index, string(decJSON), string(outJSON), rec.Timestamp.Unix())
		if err != nil {
			return fmt.Errorf("insert iteration %d: %w", rec.Index, err)
		}
	}

	for _, e := range snap.Errors {
		_, err = tx.Exec(`INSERT INTO run_errors (run_id, iteration, message, created_at) VALUES (?, ?, ?, ?)`,
			snap.RunID, e.Iteration, e.Message, e.Timestamp.Unix())
		if err != nil {
			return fmt.Errorf("insert run error: %w", err)
		}
	}

	return tx.Commit()
}

// LoadRun reads a run snapshot back by ID.
func (s *SQLiteStore) LoadRun(runID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap Snapshot
	var started, ended int64
	err := s.db.QueryRow(`SELECT id, query, status, started_at, ended_at FROM runs WHERE id = ?`, runID).
		Scan(&snap.RunID, &snap.Query, &snap.Status, &started, &ended)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	snap.StartedAt = time.Unix(started, 0).UTC()
	if ended > 0 {
		snap.EndedAt = time.Unix(ended, 0).UTC()
	}

	rows, err := s.db.Query(`SELECT idx, decision, outcome, created_at FROM iterations WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load iterations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec Record
		var decJSON, outJSON string
		var created int64
		if err := rows.Scan(&rec.Index, &decJSON, &outJSON, &created); err != nil {
			return Snapshot{}, err
		}
		if err := json.Unmarshal([]byte(decJSON), &rec.Decision); err != nil {
			return Snapshot{}, fmt.Errorf("decode decision: %w", err)
		}
		if err := json.Unmarshal([]byte(outJSON), &rec.Outcome); err != nil {
			return Snapshot{}, fmt.Errorf("decode outcome: %w", err)
		}
		rec.Timestamp = time.Unix(created, 0).UTC()
		snap.Records = append(snap.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	errRows, err := s.db.Query(`SELECT iteration, message, created_at FROM run_errors WHERE run_id = ? ORDER BY created_at`, runID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load run errors: %w", err)
	}
	defer errRows.Close()
	for errRows.Next() {
		var e RunError
		var created int64
		if err := errRows.Scan(&e.Iteration, &e.Message, &created); err != nil {
			return Snapshot{}, err
		}
		e.Timestamp = time.Unix(created, 0).UTC()
		snap.Errors = append(snap.Errors, e)
	}
	return snap, errRows.Err()
}

// RunSummary is lightweight metadata about a stored run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Query      string    `json:"query"`
	Status     string    `json:"status"`
	Iterations int       `json:"iterations"`
	StartedAt  time.Time `json:"started_at"`
}

// ListRuns returns summaries of all stored runs, newest first.
func (s *SQLiteStore) ListRuns() ([]RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT r.id, r.query, r.status, r.started_at,
		       (SELECT COUNT(*) FROM iterations i WHERE i.run_id = r.id)
		FROM runs r ORDER BY r.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var started int64
		if err := rows.Scan(&rs.RunID, &rs.Query, &rs.Status, &started, &rs.Iterations); err != nil {
			return nil, err
		}
		rs.StartedAt = time.Unix(started, 0).UTC()
		out = append(out, rs)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
