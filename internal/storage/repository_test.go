package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complaints/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "complaints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestReadSnapshot_Empty(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.ReadSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestReplaceAndReadSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	present := map[core.Column]bool{core.ColState: true, core.ColCount: true, core.ColProduct: true}
	first := core.NewSnapshot("csv:a", present, []core.Complaint{
		{State: "CO", Product: "Mortgage", Count: 3},
		{State: "TX", Product: "", Count: 0},
	})
	require.NoError(t, repo.ReplaceSnapshot(ctx, first))

	got, err := repo.ReadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "csv:a", got.Source)
	assert.True(t, got.LoadedAt.Equal(first.LoadedAt))
	assert.Equal(t, present, got.Present)
	assert.Equal(t, first.Records, got.Records)

	second := core.NewSnapshot("csv:b", present, []core.Complaint{{State: "CA", Count: 7}})
	require.NoError(t, repo.ReplaceSnapshot(ctx, second))

	got, err = repo.ReadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	require.Len(t, got.Records, 1)
	assert.Equal(t, int64(7), got.Records[0].Count)
}

func TestReplaceSnapshot_InvalidRecordKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	good := core.NewSnapshot("good", nil, []core.Complaint{{State: "CO", Count: 1}})
	require.NoError(t, repo.ReplaceSnapshot(ctx, good))

	bad := core.NewSnapshot("bad", nil, []core.Complaint{{State: "CO", Count: 1}, {State: "", Count: 2}})
	err := repo.ReplaceSnapshot(ctx, bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmptyState)

	got, err := repo.ReadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, good.ID, got.ID)
	assert.Empty(t, got.Present)
}

func TestReplaceSnapshot_Nil(t *testing.T) {
	assert.Error(t, newTestRepo(t).ReplaceSnapshot(context.Background(), nil))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "complaints.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestColumnsEncoding(t *testing.T) {
	enc := encodeColumns(map[core.Column]bool{core.ColState: true, core.ColCount: true, core.ColIssue: false})
	assert.Equal(t, "complaint_id_count,state", enc)
	assert.Equal(t, map[core.Column]bool{core.ColState: true, core.ColCount: true}, decodeColumns(enc))
	assert.Empty(t, decodeColumns(""))
}
