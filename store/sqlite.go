package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout keeps stored timestamps fixed width and UTC so that text
// ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	pattern TEXT NOT NULL,
	agents TEXT NOT NULL,
	refined INTEGER NOT NULL DEFAULT 0,
	degraded INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS nets (
	run_id TEXT NOT NULL,
	agent TEXT NOT NULL,
	kind TEXT NOT NULL,
	digest TEXT NOT NULL,
	doc BLOB NOT NULL,
	PRIMARY KEY (run_id, agent, kind)
);
`

// SQLite is a Store backed by a SQLite database file. The pure Go
// driver keeps the module free of cgo; ":memory:" gives an ephemeral
// database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at path and migrates the
// schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// One connection keeps :memory: databases coherent; the pool would
	// open a fresh empty database per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

// SaveRun inserts or replaces a run record.
func (s *SQLite) SaveRun(ctx context.Context, run Run) error {
	agents, err := json.Marshal(run.Agents)
	if err != nil {
		return fmt.Errorf("store: encode agents: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, created_at, pattern, agents, refined, degraded)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.CreatedAt.UTC().Format(timeLayout),
		run.Pattern, string(agents), run.Refined, run.Degraded,
	)
	if err != nil {
		return fmt.Errorf("store: save run %s: %w", run.ID, err)
	}
	return nil
}

// Run returns the run with the given id.
func (s *SQLite) Run(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, pattern, agents, refined, degraded
		 FROM runs WHERE id = ?`, id.String(),
	)
	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: load run %s: %w", id, err)
	}
	return run, nil
}

// Runs lists all runs, newest first; ties break on the run id.
func (s *SQLite) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, pattern, agents, refined, degraded
		 FROM runs ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("store: list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	return runs, nil
}

func scanRun(scan func(...any) error) (Run, error) {
	var (
		run       Run
		id        string
		createdAt string
		agents    string
	)
	if err := scan(&id, &createdAt, &run.Pattern, &agents, &run.Refined, &run.Degraded); err != nil {
		return Run{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("parse id %q: %w", id, err)
	}
	run.ID = parsed
	run.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if err := json.Unmarshal([]byte(agents), &run.Agents); err != nil {
		return Run{}, fmt.Errorf("decode agents: %w", err)
	}
	return run, nil
}

// SaveNet attaches a net document to a saved run.
func (s *SQLite) SaveNet(ctx context.Context, rec NetRecord) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM runs WHERE id = ?`, rec.RunID.String(),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("save net: run %s: %w", rec.RunID, ErrRunNotFound)
	}
	if err != nil {
		return fmt.Errorf("store: save net: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO nets (run_id, agent, kind, digest, doc)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.RunID.String(), rec.Agent, rec.Kind, rec.Digest, rec.Doc,
	)
	if err != nil {
		return fmt.Errorf("store: save net for run %s: %w", rec.RunID, err)
	}
	return nil
}

// Nets lists the documents of a run ordered by agent then kind.
func (s *SQLite) Nets(ctx context.Context, runID uuid.UUID) ([]NetRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, agent, kind, digest, doc
		 FROM nets WHERE run_id = ? ORDER BY agent, kind`, runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("store: list nets: %w", err)
	}
	defer rows.Close()

	var records []NetRecord
	for rows.Next() {
		var (
			rec NetRecord
			id  string
		)
		if err := rows.Scan(&id, &rec.Agent, &rec.Kind, &rec.Digest, &rec.Doc); err != nil {
			return nil, fmt.Errorf("store: list nets: %w", err)
		}
		rec.RunID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("store: parse run id %q: %w", id, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list nets: %w", err)
	}
	return records, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
