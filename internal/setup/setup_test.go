package setup

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/config"
	"github.com/dtnitsch/llm-page-context/pkg/storage"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false, false, true)
	logger.Debug().Msg("hidden")
	logger.Info().Str("component", "test").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"component":"test"`)

	buf.Reset()
	logger = newLogger(&buf, true, false, true)
	logger.Debug().Msg("debug line")
	assert.Contains(t, buf.String(), "debug line")

	buf.Reset()
	logger = newLogger(&buf, true, true, true)
	logger.Warn().Msg("quiet wins")
	assert.Empty(t, buf.String())
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionMode(""), mode)

	mode, err = ParseMode("Readability")
	require.NoError(t, err)
	assert.Equal(t, models.ModeReadability, mode)

	_, err = ParseMode("magic")
	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, ExitUsage, exit.ExitCode())
}

func TestOpenStoreBackends(t *testing.T) {
	dir := t.TempDir()

	env := &Env{App: (&config.AppConfig{Store: config.StoreConfig{Backend: config.StoreMemory}}).WithDefaults()}
	require.NoError(t, env.openStore())
	assert.IsType(t, &storage.MemoryStore{}, env.Store)
	_, err := env.DB()
	assert.Error(t, err)

	env = &Env{App: (&config.AppConfig{Store: config.StoreConfig{Backend: config.StoreFile, Path: filepath.Join(dir, "kv")}}).WithDefaults()}
	require.NoError(t, env.openStore())
	assert.IsType(t, &storage.FileStore{}, env.Store)
	assert.NoError(t, env.Close())

	env = &Env{App: (&config.AppConfig{Store: config.StoreConfig{Backend: config.StoreSQLite, Path: filepath.Join(dir, "lpc.db")}}).WithDefaults()}
	require.NoError(t, env.openStore())
	database, err := env.DB()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lpc.db"), database.Path())
	assert.NoError(t, env.Close())
}

func TestCacheDisabled(t *testing.T) {
	off := false
	env := &Env{App: (&config.AppConfig{Cache: config.CacheConfig{Enabled: &off}}).WithDefaults()}
	assert.Nil(t, env.Cache())

	env = &Env{App: (&config.AppConfig{Cache: config.CacheConfig{Dir: t.TempDir()}}).WithDefaults()}
	assert.NotNil(t, env.Cache())
}
