package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	database := &DB{path: ":memory:"}
	var err error
	database.DB, err = openDB(":memory:")
	require.NoError(t, err, "failed to create test database")
	require.NoError(t, database.InitSchema(), "failed to initialize schema")

	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestGetSetDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, ok, err := db.Get(ctx, "extractionConfig")
	require.NoError(t, err)
	assert.False(t, ok)

	tests := []struct {
		name  string
		value string
	}{
		{name: "first write", value: `{"version":1}`},
		{name: "overwrite", value: `{"version":2}`},
		{name: "unicode payload", value: `{"template":"作者: {author}"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, db.Set(ctx, "extractionConfig", []byte(tt.value)))
			got, ok, err := db.Get(ctx, "extractionConfig")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.value, string(got))
		})
	}

	require.NoError(t, db.Delete(ctx, "extractionConfig"))
	_, ok, err = db.Get(ctx, "extractionConfig")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHistoryKeepsReplacedValues(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, "k", []byte("a")))
	require.NoError(t, db.Set(ctx, "k", []byte("b")))
	require.NoError(t, db.Set(ctx, "k", []byte("c")))

	entries, err := db.History(ctx, "k", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", string(entries[0].Value), "newest replaced value first")
	assert.Equal(t, "a", string(entries[1].Value))
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.ensureSchemaExists())
	require.NoError(t, db.InitSchema())
}
