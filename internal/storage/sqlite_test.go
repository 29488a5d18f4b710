package storage

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err, "Open(:memory:)")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrations_ReopenDoesNotReapply(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	require.NoError(t, err)
	v1, err := s1.AppliedMigrations()
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()
	v2, err := s2.AppliedMigrations()
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, v1)
	assert.Equal(t, v1, v2)
}

func TestMigrations_CreateTables(t *testing.T) {
	s := openTestStore(t)
	for _, name := range []string{"vector_collections", "document_vectors", "import_runs", "import_errors", "idx_document_vectors_source"} {
		var count int
		err := s.DB().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = ?", name).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "schema object %s", name)
	}
}

func TestParseMigrationVersion(t *testing.T) {
	v, err := parseMigrationVersion("002_import_runs.sql")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = parseMigrationVersion("import_runs.sql")
	assert.Error(t, err)
}

func TestLoadMigrations_OrdersAndRejectsDuplicates(t *testing.T) {
	ms, err := loadMigrations(fstest.MapFS{
		"m/010_later.sql":  {Data: []byte("SELECT 10")},
		"m/002_second.sql": {Data: []byte("SELECT 2")},
		"m/README.md":      {Data: []byte("ignored")},
	}, "m")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, 2, ms[0].version)
	assert.Equal(t, "010_later.sql", ms[1].name)

	_, err = loadMigrations(fstest.MapFS{
		"m/001_a.sql": {Data: []byte("SELECT 1")},
		"m/001_b.sql": {Data: []byte("SELECT 1")},
	}, "m")
	assert.Error(t, err)
}

func sampleRun(id string, started time.Time) ImportRun {
	return ImportRun{
		ID:          id,
		RootPath:    "/vault",
		StartedAt:   started,
		FinishedAt:  started.Add(95 * time.Second),
		Total:       3,
		Processed:   2,
		Failed:      1,
		Embedded:    3,
		Translation: 60 * time.Second,
		GraphWrite:  1500 * time.Millisecond,
		Embedding:   30 * time.Second,
		Elapsed:     95 * time.Second,
		Reset:       true,
		Errors: []ImportError{
			{Document: "/vault/b.md", Phase: "graph_write", Message: "syntax error near CREATE"},
			{Document: "/vault/c.md", Phase: "embedding", Message: "timeout"},
		},
	}
}

func TestImportRun_SaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	want := sampleRun("run-1", started)
	require.NoError(t, s.SaveImportRun(ctx, want))

	got, err := s.GetImportRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestImportRun_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetImportRun(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestImportRun_DuplicateIDRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run := sampleRun("run-1", time.Now().UTC())
	require.NoError(t, s.SaveImportRun(ctx, run))
	assert.Error(t, s.SaveImportRun(ctx, run))

	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM import_errors").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestListImportRuns_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveImportRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := s.ListImportRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
	assert.Nil(t, runs[0].Errors)
	assert.True(t, runs[0].Reset)
	assert.Equal(t, 95*time.Second, runs[0].Elapsed)
}
