package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/core"
	"subtrack/internal/storage"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "db", "subtrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, storage.ErrNoSnapshot)

	snap := storage.Snapshot{Subscriptions: core.DefaultSubscriptions(), Filter: core.DefaultFilterState()}
	require.NoError(t, repo.Save(ctx, snap))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Subscriptions, 3)
	assert.Equal(t, "Adobe Creative Cloud", got.Subscriptions[2].Name)

	// Upsert keeps a single row
	snap.Filter.SearchTerm = "spot"
	snap.Subscriptions = snap.Subscriptions[:1]
	require.NoError(t, repo.Save(ctx, snap))

	var rows int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&rows))
	assert.Equal(t, 1, rows)

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Subscriptions, 1)
	assert.Equal(t, "spot", got.Filter.SearchTerm)
}

func TestRepositoryCorruptPayload(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.db.Exec(`INSERT INTO snapshots (store_key, version, payload) VALUES (?, 1, ?)`,
		storage.StoreKey, "not json")
	require.NoError(t, err)

	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrCorruptSnapshot)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subtrack.db")
	repo, err := NewRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	require.NoError(t, RunMigrations(path))
}
