package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    model TEXT NOT NULL,
    backend TEXT NOT NULL,
    created_at TEXT NOT NULL,
    n_snapshots INTEGER NOT NULL,
    final_time REAL NOT NULL,
    outcome TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// RunSummary is one row of the run index.
type RunSummary struct {
	ID        string
	Model     string
	Backend   string
	CreatedAt time.Time
	Snapshots int
	FinalTime float64
	Outcome   string
}

func openIndex(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create run index: %w", err)
	}
	return db, nil
}

func (s *Store) index(meta RunMetadata) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, model, backend, created_at, n_snapshots, final_time, outcome)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Model, meta.Backend, meta.CreatedAt.Format(time.RFC3339Nano),
		meta.Snapshots, meta.FinalTime, meta.Outcome,
	)
	return err
}

// List returns every indexed run, newest first.
func (s *Store) List() ([]RunSummary, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT id, model, backend, created_at, n_snapshots, final_time, outcome
		 FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		var (
			r       RunSummary
			created string
		)
		if err := rows.Scan(&r.ID, &r.Model, &r.Backend, &created, &r.Snapshots, &r.FinalTime, &r.Outcome); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
