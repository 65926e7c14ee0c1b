package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/coursetrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteKVStore_SetAndGet(t *testing.T) {
	store := NewSQLiteKVStore(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "completedLessons_c1", `["l1"]`))

	got, err := store.Get(ctx, "completedLessons_c1")
	require.NoError(t, err)
	assert.Equal(t, `["l1"]`, got)
}

func TestSQLiteKVStore_SetOverwrites(t *testing.T) {
	store := NewSQLiteKVStore(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "one"))
	require.NoError(t, store.Set(ctx, "k", "two"))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", got)
}

func TestSQLiteKVStore_GetMissing(t *testing.T) {
	store := NewSQLiteKVStore(testutil.NewTestDB(t))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteKVStore_Delete(t *testing.T) {
	store := NewSQLiteKVStore(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v"))
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"), "deleting a missing key is not an error")

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteKVStore_Ping(t *testing.T) {
	store := NewSQLiteKVStore(testutil.NewTestDB(t))
	assert.NoError(t, store.Ping(context.Background()))
}

func TestSQLiteKVStore_ClosedDBReturnsErrors(t *testing.T) {
	database := testutil.NewTestDB(t)
	store := NewSQLiteKVStore(database)
	require.NoError(t, database.Close())
	ctx := context.Background()

	_, err := store.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Error(t, store.Set(ctx, "k", "v"))
	assert.Error(t, store.Ping(ctx))
}
