// Package report persists validation runs and their findings in SQLite
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/metaschema-go/metaschema/internal/constraint"
	"github.com/metaschema-go/metaschema/internal/validation"
)

// ErrRunNotFound is returned when no run has the requested id
var ErrRunNotFound = errors.New("validation run not found")

// Run summarizes one validation of one document
type Run struct {
	ID       uuid.UUID
	Document string
	Schema   string
	// Highest is meaningless when Findings is zero.
	Highest   constraint.Level
	Passing   bool
	Findings  int
	StartedAt time.Time
}

// StoredFinding is a finding as read back from the store
type StoredFinding struct {
	RunID      uuid.UUID
	Sequence   int
	Level      constraint.Level
	Kind       string
	Constraint string
	Path       string
	Message    string
	Cause      string
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for run timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store records validation runs
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// New wraps an open database. Call Initialize before first use.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens or creates the SQLite database at path and initializes it
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	s := New(db, opts...)
	if err := s.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize ensures the runs and findings tables exist
func (s *Store) Initialize(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS validation_runs (
	id TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	schema_name TEXT NOT NULL,
	highest_level INTEGER NOT NULL,
	passing BOOLEAN NOT NULL,
	finding_count INTEGER NOT NULL,
	started_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS findings (
	run_id TEXT NOT NULL REFERENCES validation_runs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	level INTEGER NOT NULL,
	kind TEXT NOT NULL,
	constraint_id TEXT,
	path TEXT NOT NULL,
	message TEXT NOT NULL,
	cause TEXT,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_validation_runs_started_at
ON validation_runs(started_at);
`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to initialize report tables: %w", err)
	}
	return nil
}

// SaveRun records the findings of validating document against schema in
// one transaction and returns the new run
func (s *Store) SaveRun(ctx context.Context, document, schema string, findings []validation.Finding) (*Run, error) {
	run := &Run{
		ID:        uuid.New(),
		Document:  document,
		Schema:    schema,
		Passing:   true,
		Findings:  len(findings),
		StartedAt: s.now().UTC(),
	}
	for i, f := range findings {
		if i == 0 || f.Level > run.Highest {
			run.Highest = f.Level
		}
	}
	if len(findings) > 0 && run.Highest >= constraint.LevelError {
		run.Passing = false
	}

	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO validation_runs (id, document, schema_name, highest_level, passing, finding_count, started_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID.String(), run.Document, run.Schema, int(run.Highest), run.Passing, run.Findings,
			run.StartedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO findings (run_id, seq, level, kind, constraint_id, path, message, cause)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare finding insert: %w", err)
		}
		defer stmt.Close()

		for i, f := range findings {
			var cause sql.NullString
			if f.Cause != nil {
				cause = sql.NullString{String: f.Cause.Error(), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, run.ID.String(), i+1, int(f.Level), f.Kind.String(),
				f.ConstraintID(), f.Path, f.Message, cause); err != nil {
				return fmt.Errorf("failed to insert finding %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("saved validation run",
		zap.String("run", run.ID.String()),
		zap.String("document", document),
		zap.Int("findings", run.Findings))
	return run, nil
}

// Runs returns the most recent runs first. A limit of zero or less returns
// every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]*Run, error) {
	query := `
SELECT id, document, schema_name, highest_level, passing, finding_count, started_at
FROM validation_runs
ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with id
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, document, schema_name, highest_level, passing, finding_count, started_at
FROM validation_runs
WHERE id = ?`, id.String())
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Findings returns the findings of a run in reporting order
func (s *Store) Findings(ctx context.Context, runID uuid.UUID) ([]StoredFinding, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT seq, level, kind, constraint_id, path, message, cause
FROM findings
WHERE run_id = ?
ORDER BY seq ASC`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []StoredFinding
	for rows.Next() {
		f := StoredFinding{RunID: runID}
		var level int
		var id, cause sql.NullString
		if err := rows.Scan(&f.Sequence, &level, &f.Kind, &id, &f.Path, &f.Message, &cause); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.Level = constraint.Level(level)
		f.Constraint = id.String
		f.Cause = cause.String
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating findings: %w", err)
	}
	return findings, nil
}

// DeleteRun removes a run and its findings
func (s *Store) DeleteRun(ctx context.Context, id uuid.UUID) error {
	return s.withTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM findings WHERE run_id = ?`, id.String()); err != nil {
			return fmt.Errorf("failed to delete findings: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM validation_runs WHERE id = ?`, id.String())
		if err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil
	})
}

// withTransaction commits when fn succeeds and rolls back on error or panic
func (s *Store) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var id, startedAt string
	var highest int
	if err := row.Scan(&id, &run.Document, &run.Schema, &highest, &run.Passing, &run.Findings, &startedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	run.ID = parsed
	run.Highest = constraint.Level(highest)
	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid run timestamp %q: %w", startedAt, err)
	}
	return run, nil
}
