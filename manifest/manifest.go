// Package manifest records generator runs and the files each run wrote.
// Pruning and up-to-date checks read the last successful run.
package manifest

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/jbind/db"
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/logger"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// Run is one generator run.
type Run struct {
	ID               uuid.UUID
	StartedAt        time.Time
	FinishedAt       time.Time
	GeneratorVersion string
	ConfigHash       string
	SourceRevision   string
	Status           string
}

// Output is one file a run wrote.
type Output struct {
	Path    string
	SHA256  string
	Classes []string
}

// NewOutput describes a file from its content.
func NewOutput(path string, content []byte, classes []string) Output {
	return Output{Path: path, SHA256: Hash(content), Classes: classes}
}

// Hash is the hex sha256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Store is the manifest database.
type Store struct {
	db      *sql.DB
	dialect db.Dialect
	log     *zap.SugaredLogger
	now     func() time.Time
}

// Open opens and migrates the manifest database a DSN names.
func Open(dsn string) (*Store, error) {
	log := logger.ComponentLogger("manifest")
	sqlDB, dialect, err := db.OpenWithMigrations(dsn, log)
	if err != nil {
		return nil, errors.Wrapf(err, "open manifest %s", dsn)
	}
	return New(sqlDB, dialect), nil
}

// New wraps an already migrated database.
func New(sqlDB *sql.DB, dialect db.Dialect) *Store {
	return &Store{db: sqlDB, dialect: dialect, log: logger.ComponentLogger("manifest"), now: time.Now}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin records the start of a run.
func (s *Store) Begin(ctx context.Context, generatorVersion, configHash, sourceRevision string) (*Run, error) {
	run := &Run{
		ID:               uuid.New(),
		StartedAt:        s.now().UTC(),
		GeneratorVersion: generatorVersion,
		ConfigHash:       configHash,
		SourceRevision:   sourceRevision,
		Status:           StatusRunning,
	}
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO runs (id, started_at, generator_version, config_hash, source_revision, status) VALUES (?, ?, ?, ?, ?, ?)`),
		run.ID.String(), run.StartedAt, run.GeneratorVersion, run.ConfigHash, run.SourceRevision, run.Status)
	if err != nil {
		return nil, errors.Wrap(err, "record run start")
	}
	s.log.Debugw("Run started", logger.FieldRunID, run.ID.String())
	return run, nil
}

// Finish records the outcome of a run and, for successful runs, the
// files it wrote.
func (s *Store) Finish(ctx context.Context, run *Run, status string, outputs []Output) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if db.IsDatabaseClosed(err) {
		return errors.Mark(errors.Wrapf(err, "run %s not recorded", run.ID), db.ErrDatabaseClosed)
	}
	if err != nil {
		return errors.Wrap(err, "begin finish")
	}
	insert := s.dialect.Rebind(`INSERT INTO outputs (run_id, path, sha256, classes) VALUES (?, ?, ?, ?)`)
	for _, o := range outputs {
		if _, err := tx.ExecContext(ctx, insert, run.ID.String(), o.Path, o.SHA256, strings.Join(o.Classes, "\n")); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "record output %s", o.Path)
		}
	}
	finished := s.now().UTC()
	if _, err := tx.ExecContext(ctx, s.dialect.Rebind(`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`),
		finished, status, run.ID.String()); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "record run end")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit finish")
	}
	run.FinishedAt = finished
	run.Status = status
	s.log.Debugw("Run finished", logger.FieldRunID, run.ID.String(), "status", status, logger.FieldCount, len(outputs))
	return nil
}

// LastSuccessful returns the most recent successful run, or an error
// matching errors.ErrNotFound when there is none.
func (s *Store) LastSuccessful(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT id, started_at, finished_at, generator_version, config_hash, source_revision, status
		 FROM runs WHERE status = ? ORDER BY finished_at DESC LIMIT 1`), StatusOK)
	var (
		run      Run
		id       string
		finished sql.NullTime
	)
	err := row.Scan(&id, &run.StartedAt, &finished, &run.GeneratorVersion, &run.ConfigHash, &run.SourceRevision, &run.Status)
	if err == sql.ErrNoRows {
		return nil, errors.Mark(errors.New("no successful run recorded"), errors.ErrNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read last run")
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, errors.Wrapf(err, "run id %q", id)
	}
	run.FinishedAt = finished.Time
	return &run, nil
}

// Outputs lists the files of a run in path order.
func (s *Store) Outputs(ctx context.Context, runID uuid.UUID) ([]Output, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT path, sha256, classes FROM outputs WHERE run_id = ? ORDER BY path`), runID.String())
	if err != nil {
		return nil, errors.Wrap(err, "read outputs")
	}
	defer rows.Close()
	var out []Output
	for rows.Next() {
		var (
			o       Output
			classes string
		)
		if err := rows.Scan(&o.Path, &o.SHA256, &classes); err != nil {
			return nil, errors.Wrap(err, "scan output")
		}
		if classes != "" {
			o.Classes = strings.Split(classes, "\n")
		}
		out = append(out, o)
	}
	return out, errors.Wrap(rows.Err(), "read outputs")
}

// Stale lists files of the last successful run that current does not
// contain. Without a previous run nothing is stale.
func (s *Store) Stale(ctx context.Context, current []string) ([]string, error) {
	last, err := s.LastSuccessful(ctx)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	prev, err := s.Outputs(ctx, last.ID)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]bool, len(current))
	for _, p := range current {
		keep[p] = true
	}
	var stale []string
	for _, o := range prev {
		if !keep[o.Path] {
			stale = append(stale, o.Path)
		}
	}
	sort.Strings(stale)
	return stale, nil
}

// Prune deletes runs other than the newest keep, with their outputs.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)`), keep)
	if err != nil {
		return 0, errors.Wrap(err, "prune runs")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
