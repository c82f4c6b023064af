package sheetstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeUnderTest runs the same contract suite against every backend that can
// run without external services.
func storeUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	sqlitePath := filepath.Join(t.TempDir(), "test.sqlite")
	sqlite, err := NewSQLiteStore(sqlitePath)
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			info, err := store.AddSheet(ctx, "widgets", []string{"id", "name"}, []string{"string", "string"})
			require.NoError(t, err)
			assert.Equal(t, "widgets", info.Title)

			headers, err := store.GetHeaderRow(ctx, "widgets")
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "name"}, headers)

			types, err := store.GetTypeRow(ctx, "widgets")
			require.NoError(t, err)
			assert.Equal(t, []string{"string", "string"}, types)

			require.NoError(t, store.AppendRow(ctx, "widgets", []string{"1", "first"}))
			require.NoError(t, store.AppendRow(ctx, "widgets", []string{"2", "second"}))

			rows, err := store.GetAllRows(ctx, "widgets")
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, []string{"1", "first"}, rows[0])
			assert.Equal(t, []string{"2", "second"}, rows[1])

			// Overwrite in place: data row 1 lives at spreadsheet row 3.
			require.NoError(t, store.OverwriteRow(ctx, "widgets", 3, []string{"1", "renamed"}))
			rows, err = store.GetAllRows(ctx, "widgets")
			require.NoError(t, err)
			assert.Equal(t, []string{"1", "renamed"}, rows[0])

			// Clearing a row keeps its position.
			require.NoError(t, store.OverwriteRow(ctx, "widgets", 3, []string{"", ""}))
			rows, err = store.GetAllRows(ctx, "widgets")
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "", rows[0][0])
			assert.Equal(t, []string{"2", "second"}, rows[1])

			require.NoError(t, store.UpdateCell(ctx, "widgets", 1, 1, "title"))
			headers, err = store.GetHeaderRow(ctx, "widgets")
			require.NoError(t, err)
			assert.Equal(t, "title", headers[1])

			metas, err := store.GetSheetMetadata(ctx)
			require.NoError(t, err)
			require.Len(t, metas, 1)
			require.NoError(t, store.RenameSheet(ctx, metas[0].SheetID, "gadgets"))
			_, err = store.GetHeaderRow(ctx, "widgets")
			assert.ErrorIs(t, err, ErrSheetNotFound)
			_, err = store.GetHeaderRow(ctx, "gadgets")
			assert.NoError(t, err)

			assert.NoError(t, store.HealthCheck(ctx))
		})
	}
}

func TestStore_MissingSheet(t *testing.T) {
	for name, store := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := store.GetAllRows(ctx, "nope")
			assert.ErrorIs(t, err, ErrSheetNotFound)
			assert.ErrorIs(t, store.AppendRow(ctx, "nope", []string{"x"}), ErrSheetNotFound)
		})
	}
}

func TestNewStore_Factory(t *testing.T) {
	ctx := context.Background()

	mem, err := NewStore(ctx, Config{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, mem)

	sqlite, err := NewStore(ctx, Config{Type: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "f.sqlite")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sqlite)

	_, err = NewStore(ctx, Config{Type: "cassandra"})
	assert.Error(t, err)
}
