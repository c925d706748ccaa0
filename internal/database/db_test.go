package database_test

import (
	"path/filepath"
	"testing"

	"promptscan/internal/database"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	ctx := t.Context()

	rows := []database.Extraction{
		{FilePath: "/a.png", MediaKind: "image", Positive: "a red fox", Leaves: `["a red fox"]`},
		{FilePath: "/b.mp4", MediaKind: "video"},
	}
	require.NoError(t, store.InsertBatch(ctx, rows))

	existing, err := store.ExistingPaths(ctx)
	require.NoError(t, err)
	require.Len(t, existing, 2)
	require.Contains(t, existing, "/a.png")

	got, err := store.Get(ctx, "/a.png")
	require.NoError(t, err)
	require.Equal(t, "a red fox", got.Positive)

	// Upsert replaces rather than duplicating.
	rows[0].Positive = "updated"
	require.NoError(t, store.InsertBatch(ctx, rows[:1]))

	listed, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	got, err = store.Get(ctx, "/a.png")
	require.NoError(t, err)
	require.Equal(t, "updated", got.Positive)
}

func TestStoreEmptyBatch(t *testing.T) {
	store, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.InsertBatch(t.Context(), nil))
}
