package db_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/db"
	"github.com/udisondev/aasnav/internal/door"
	"github.com/udisondev/aasnav/internal/testutil"
)

var _ door.StateStore = (*db.DoorRepository)(nil)

func gridRecord(t *testing.T, name string, cols int) db.MapRecord {
	t.Helper()
	b := aasfile.GridLevel(cols, 2, 64, 2)
	b.Name = name
	b.MapCRC = 0xdeadbeef
	f, err := b.Build()
	require.NoError(t, err)
	return db.RecordOf(f)
}

func TestMapRepository(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	repo := db.NewMapRepository(pool)

	got, err := repo.Get(ctx, "e1m1")
	require.NoError(t, err)
	assert.Nil(t, got)

	rec := gridRecord(t, "e1m1", 5)
	changed, err := repo.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.True(t, changed, "first registration")

	changed, err = repo.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.False(t, changed, "same content")

	got, err = repo.Get(ctx, "e1m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Fingerprint, got.Fingerprint)
	assert.Equal(t, uint32(0xdeadbeef), got.MapCRC)
	assert.Equal(t, rec.Version, got.Version)
	assert.Equal(t, 10, got.Areas)
	assert.Equal(t, 2, got.Clusters)
	assert.WithinDuration(t, time.Now(), got.LoadedAt, time.Minute)

	bigger := gridRecord(t, "e1m1", 8)
	changed, err = repo.Upsert(ctx, bigger)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = repo.Upsert(ctx, gridRecord(t, "e1m2", 4))
	require.NoError(t, err)
	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "e1m1", all[0].Name)
	assert.Equal(t, 16, all[0].Areas)
	assert.Equal(t, "e1m2", all[1].Name)
}

func TestDoorRepository(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	repo := db.NewDoorRepository(pool)

	states, err := repo.LoadAll(ctx, "e1m1")
	require.NoError(t, err)
	assert.Empty(t, states)

	require.NoError(t, repo.Save(ctx, "e1m1", "gate", true))
	require.NoError(t, repo.Save(ctx, "e1m1", "postern", false))
	require.NoError(t, repo.Save(ctx, "e1m1", "gate", false))
	require.NoError(t, repo.Save(ctx, "e1m2", "gate", true))

	states, err = repo.LoadAll(ctx, "e1m1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"gate": false, "postern": false}, states)

	n, err := repo.DeleteMap(ctx, "e1m1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	states, err = repo.LoadAll(ctx, "e1m2")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"gate": true}, states)
}
