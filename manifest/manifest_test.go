package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jbind/db"
	"github.com/teranos/jbind/errors"
	jbindtest "github.com/teranos/jbind/internal/testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s := New(jbindtest.CreateTestDB(t), db.SQLite)

	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestOpenMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "manifest.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.FileExists(t, path)

	_, err = s.LastSuccessful(context.Background())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestFinishOnClosedStore(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	run, err := s.Begin(ctx, "1.0.0", "cfg", "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Finish(ctx, run, StatusOK, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrDatabaseClosed))
	assert.Equal(t, StatusRunning, run.Status)
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, err := s.LastSuccessful(ctx)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	run, err := s.Begin(ctx, "1.0.0", "cfg", "abc")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)

	outputs := []Output{
		NewOutput("pkg/a_jbind.go", []byte("package pkg"), []string{"pkg.A"}),
		NewOutput("pkg/b_jbind.go", []byte("package pkg\n"), []string{"pkg.B", "pkg.B$Inner"}),
	}
	require.NoError(t, s.Finish(ctx, run, StatusOK, outputs))
	assert.Equal(t, StatusOK, run.Status)

	last, err := s.LastSuccessful(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, last.ID)
	assert.Equal(t, "cfg", last.ConfigHash)
	assert.Equal(t, "abc", last.SourceRevision)
	assert.False(t, last.FinishedAt.IsZero())

	got, err := s.Outputs(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, outputs, got)
}

func TestFailedRunIsNotLast(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	ok, err := s.Begin(ctx, "1.0.0", "cfg", "")
	require.NoError(t, err)
	require.NoError(t, s.Finish(ctx, ok, StatusOK, nil))

	failed, err := s.Begin(ctx, "1.0.0", "cfg", "")
	require.NoError(t, err)
	require.NoError(t, s.Finish(ctx, failed, StatusFailed, nil))

	last, err := s.LastSuccessful(ctx)
	require.NoError(t, err)
	assert.Equal(t, ok.ID, last.ID)
}

func TestStale(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	stale, err := s.Stale(ctx, []string{"a.go"})
	require.NoError(t, err)
	assert.Empty(t, stale, "nothing is stale without a previous run")

	run, err := s.Begin(ctx, "1.0.0", "cfg", "")
	require.NoError(t, err)
	require.NoError(t, s.Finish(ctx, run, StatusOK, []Output{
		NewOutput("c.go", nil, nil),
		NewOutput("a.go", nil, nil),
		NewOutput("b.go", nil, nil),
	}))

	stale, err = s.Stale(ctx, []string{"a.go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.go", "c.go"}, stale)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	var last *Run
	for i := 0; i < 3; i++ {
		run, err := s.Begin(ctx, "1.0.0", "cfg", "")
		require.NoError(t, err)
		require.NoError(t, s.Finish(ctx, run, StatusOK, []Output{NewOutput("a.go", nil, nil)}))
		last = run
	}

	n, err := s.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := s.LastSuccessful(ctx)
	require.NoError(t, err)
	assert.Equal(t, last.ID, got.ID)
}

func TestFinishRollsBack(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	s := New(sqlDB, db.Postgres)

	run := &Run{ID: uuid.New()}
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO outputs \(run_id, path, sha256, classes\) VALUES \(\$1, \$2, \$3, \$4\)`).
		WithArgs(run.ID.String(), "a.go", sqlmock.AnyArg(), "pkg.A").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = s.Finish(context.Background(), run, StatusOK, []Output{NewOutput("a.go", nil, []string{"pkg.A"})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.go")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	s := New(sqlDB, db.SQLite)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "1.0.0", "cfg", "", StatusRunning).
		WillReturnError(errors.New("database is locked"))

	_, err = s.Begin(context.Background(), "1.0.0", "cfg", "")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash(nil))
}

func TestSourceRevision(t *testing.T) {
	dir := t.TempDir()

	rev, err := SourceRevision(dir)
	require.NoError(t, err)
	assert.Empty(t, rev, "not a repository")

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	rev, err = SourceRevision(dir)
	require.NoError(t, err)
	assert.Empty(t, rev, "no commits yet")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "jbind.toml"), []byte("[naming]\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("jbind.toml")
	require.NoError(t, err)
	hash, err := wt.Commit("config", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	rev, err = SourceRevision(sub)
	require.NoError(t, err)
	assert.Equal(t, hash.String(), rev)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "jbind.toml"), []byte("[naming]\nmodule = \"x\"\n"), 0o644))
	rev, err = SourceRevision(dir)
	require.NoError(t, err)
	assert.Equal(t, hash.String()+"+dirty", rev)
}
