package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/rpggio/worklog/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestHistoryStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"), nil)

	entries, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, entries)

	for _, summary := range []string{"first", "second", "third"} {
		require.NoError(t, store.Append(ctx, ledger.HistoryEntry{Date: "2026-03-01", Summary: summary, DebtBefore: 4}))
	}

	entries, err = store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "third", entries[0].Summary)
	require.Equal(t, "second", entries[1].Summary)

	entries, err = store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestHistoryStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("[{"), 0o644))
	store := NewHistoryStore(path, nil)

	entries, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, entries)

	err = store.Append(ctx, ledger.HistoryEntry{Summary: "x"})
	require.ErrorIs(t, err, repository.ErrCorrupt)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[{", string(data))
}

func TestHistoryStore_EmptyFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))
	store := NewHistoryStore(path, nil)

	require.NoError(t, store.Append(ctx, ledger.HistoryEntry{Summary: "x"}))
	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
