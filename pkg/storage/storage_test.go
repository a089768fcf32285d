package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	stores := map[string]Store{
		"file":   fileStore,
		"memory": NewMemoryStore(),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := s.Get(ctx, "extractionConfig")
			require.NoError(t, err)
			assert.False(t, ok, "missing key should report absent")

			require.NoError(t, s.Set(ctx, "extractionConfig", []byte(`{"version":2}`)))
			v, ok, err := s.Get(ctx, "extractionConfig")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.JSONEq(t, `{"version":2}`, string(v))

			require.NoError(t, s.Set(ctx, "extractionConfig", []byte(`{"version":3}`)))
			v, _, _ = s.Get(ctx, "extractionConfig")
			assert.JSONEq(t, `{"version":3}`, string(v))

			require.NoError(t, s.Delete(ctx, "extractionConfig"))
			_, ok, _ = s.Get(ctx, "extractionConfig")
			assert.False(t, ok)

			// deleting an absent key is not an error
			assert.NoError(t, s.Delete(ctx, "extractionConfig"))
		})
	}
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "../escape/attempt", []byte("x")))
	v, ok, err := s.Get(ctx, "../escape/attempt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", string(v))

	stats, err := s.Stats("../escape/attempt")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.SizeBytes)
}
