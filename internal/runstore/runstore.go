// Package runstore keeps a SQLite history of sampling runs.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// DefaultListLimit bounds List when the caller passes no limit.
const DefaultListLimit = 50

// timeLayout is a fixed-width UTC timestamp so started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run is one recorded call to the sampler.
type Run struct {
	ID        string
	SessionID string
	Model     string
	Artifact  string
	Params    map[string]string
	Status    string
	Output    string
	ErrorKind string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// Store is a SQLite-backed run ledger. It is safe for concurrent use.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Open opens or creates the ledger at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		model       TEXT NOT NULL,
		artifact    TEXT NOT NULL,
		params      TEXT,
		status      TEXT NOT NULL,
		output      TEXT,
		error_kind  TEXT,
		error       TEXT,
		started_at  TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores r and returns it with ID (and StartedAt, if unset) filled in.
func (s *Store) Record(ctx context.Context, r Run) (Run, error) {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	r.StartedAt = r.StartedAt.UTC()
	if r.ID == "" {
		r.ID = s.newID(r.StartedAt)
	}
	if r.Status == "" {
		r.Status = StatusOK
	}
	var params *string
	if len(r.Params) > 0 {
		b, err := json.Marshal(r.Params)
		if err != nil {
			return Run{}, fmt.Errorf("encode params: %w", err)
		}
		p := string(b)
		params = &p
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs
		(id, session_id, model, artifact, params, status, output, error_kind, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Model, r.Artifact, params, r.Status,
		nullable(r.Output), nullable(r.ErrorKind), nullable(r.Error),
		r.StartedAt.Format(timeLayout), r.Duration.Milliseconds())
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return r, nil
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, session_id, model, artifact, params, status,
		output, error_kind, error, started_at, duration_ms FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// ListParams filters List.
type ListParams struct {
	SessionID string
	Limit     int // 0 means DefaultListLimit
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, p ListParams) ([]Run, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT id, session_id, model, artifact, params, status,
		output, error_kind, error, started_at, duration_ms FROM runs`
	var args []any
	if p.SessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, p.SessionID)
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var params, output, errKind, errMsg sql.NullString
	var startedAt string
	var durMS int64
	if err := row.Scan(&r.ID, &r.SessionID, &r.Model, &r.Artifact, &params, &r.Status,
		&output, &errKind, &errMsg, &startedAt, &durMS); err != nil {
		return r, err
	}
	r.StartedAt, _ = time.Parse(timeLayout, startedAt)
	r.Duration = time.Duration(durMS) * time.Millisecond
	r.Output = output.String
	r.ErrorKind = errKind.String
	r.Error = errMsg.String
	if params.Valid {
		if err := json.Unmarshal([]byte(params.String), &r.Params); err != nil {
			return r, fmt.Errorf("decode params for %s: %w", r.ID, err)
		}
	}
	return r, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
