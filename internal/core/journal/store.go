package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/charleschow/slope-limits/internal/telemetry"

	_ "modernc.org/sqlite"
)

// Run kinds.
const (
	KindInitialize = "initialize"
	KindApply      = "apply"
	KindRestore    = "restore"
)

// Change is one live definition whose limit a run rewrote.
type Change struct {
	Collection string
	Object     string
	Name       string
	Old        float64
	New        float64
}

// Run summarizes one resolver transition.
type Run struct {
	ID         string
	Kind       string
	Policy     string
	Started    time.Time
	Duration   time.Duration
	Scanned    int
	Changed    int
	Discovered int
	Err        string // empty on success
	Changes    []Change
}

// startedLayout is fixed width so runs sort by their text column.
const startedLayout = "2006-01-02T15:04:05.000000000Z"

// Store keeps the run history in a SQLite database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT    PRIMARY KEY,
			kind        TEXT    NOT NULL,
			policy      TEXT    NOT NULL,
			started     TEXT    NOT NULL,
			duration_us INTEGER NOT NULL,
			scanned     INTEGER NOT NULL,
			changed     INTEGER NOT NULL,
			discovered  INTEGER NOT NULL,
			err         TEXT    NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS changes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT    NOT NULL REFERENCES runs(id),
			collection TEXT    NOT NULL,
			object     TEXT    NOT NULL,
			name       TEXT    NOT NULL,
			old_limit  REAL    NOT NULL,
			new_limit  REAL    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started)`,
		`CREATE INDEX IF NOT EXISTS idx_changes_run ON changes(run_id)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema (%s): %w", stmt, err)
		}
	}

	var count, size int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("read row count: %w", err)
	}
	db.QueryRow(`SELECT COALESCE(page_count * page_size, 0) FROM pragma_page_count(), pragma_page_size()`).Scan(&size)

	telemetry.Infof("Started journal db  path=%s  runs=%d  size=%s", path, count, humanize.Bytes(uint64(size)))

	return &Store{db: db}, nil
}

// Record writes a run and its changes in one transaction.
func (s *Store) Record(run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin journal tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, kind, policy, started, duration_us, scanned, changed, discovered, err)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Kind, run.Policy,
		run.Started.UTC().Format(startedLayout),
		run.Duration.Microseconds(),
		run.Scanned, run.Changed, run.Discovered, run.Err,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(run.Changes) > 0 {
		stmt, err := tx.Prepare(
			`INSERT INTO changes (run_id, collection, object, name, old_limit, new_limit) VALUES (?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("prepare change insert: %w", err)
		}
		defer stmt.Close()
		for _, c := range run.Changes {
			if _, err := stmt.Exec(run.ID, c.Collection, c.Object, c.Name, c.Old, c.New); err != nil {
				return fmt.Errorf("insert change: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal tx: %w", err)
	}
	return nil
}

// Recent returns the latest n runs, newest first, without their changes.
func (s *Store) Recent(n int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, kind, policy, started, duration_us, scanned, changed, discovered, err
		 FROM runs ORDER BY started DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			started string
			durUS   int64
		)
		if err := rows.Scan(&r.ID, &r.Kind, &r.Policy, &started, &durUS, &r.Scanned, &r.Changed, &r.Discovered, &r.Err); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Started, _ = time.Parse(time.RFC3339Nano, started)
		r.Duration = time.Duration(durUS) * time.Microsecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// Changes returns the per-definition changes of one run in insertion order.
func (s *Store) Changes(runID string) ([]Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT collection, object, name, old_limit, new_limit FROM changes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.Collection, &c.Object, &c.Name, &c.Old, &c.New); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
