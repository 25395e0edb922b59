package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := &Entry{
		ExecutedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		File:        "api.http",
		RequestName: "login",
		Method:      "POST",
		URL:         "https://api.example.com/login",
		StatusCode:  200,
		DurationMs:  42,
		Success:     true,
	}
	require.NoError(t, store.Record(ctx, first))
	assert.NotZero(t, first.ID)

	second := &Entry{
		ExecutedAt:  time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC),
		File:        "api.http",
		Method:      "GET",
		URL:         "https://api.example.com/me",
		Success:     false,
		FailureKind: "transport",
		Error:       "connection failed: dial tcp: refused",
	}
	require.NoError(t, store.Record(ctx, second))

	entries, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "GET", entries[0].Method)
	assert.Equal(t, "transport", entries[0].FailureKind)
	assert.False(t, entries[0].Success)

	assert.Equal(t, "login", entries[1].RequestName)
	assert.Equal(t, 200, entries[1].StatusCode)
	assert.Equal(t, int64(42), entries[1].DurationMs)
	assert.True(t, entries[1].Success)
	assert.Equal(t, 2026, entries[1].ExecutedAt.Year())
}

func TestRecord_StampsExecutedAt(t *testing.T) {
	store := openTestStore(t)

	e := &Entry{File: "a.http", Method: "GET", URL: "http://x", Success: true}
	require.NoError(t, store.Record(context.Background(), e))
	assert.False(t, e.ExecutedAt.IsZero())
}

func TestList_Limit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, &Entry{
			ExecutedAt: base.Add(time.Duration(i) * time.Second),
			File:       "a.http",
			Method:     "GET",
			URL:        "http://x",
			StatusCode: 200 + i,
			Success:    true,
		}))
	}

	entries, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 204, entries[0].StatusCode)
	assert.Equal(t, 203, entries[1].StatusCode)
}

func TestList_DefaultLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < defaultListLimit+5; i++ {
		require.NoError(t, store.Record(ctx, &Entry{
			File: "a.http", Method: "GET", URL: "http://x", Success: true,
		}))
	}

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, defaultListLimit)
}

func TestList_Empty(t *testing.T) {
	store := openTestStore(t)

	entries, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpen_BadDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "deep", "history.db"))
	assert.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)

	assert.NoError(t, store.Close())
}
