package papertrail

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/papertrail/ai/mock"
	"github.com/poiesic/papertrail/config"
	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "db")
	cfg.Embedding.Tokenizer = "words"
	cfg.Embedding.BaseDelay = time.Millisecond
	cfg.Ingestion.ChunkWords = 4
	cfg.Ingestion.Workers = 2
	cfg.Backfill.Delay = 0
	return cfg
}

func TestOpen(t *testing.T) {
	t.Run("open new store", func(t *testing.T) {
		engine, err := Open(testConfig(t), WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, engine)
		defer engine.Close()

		assert.NotNil(t, engine.ChunkRepository())
		assert.NotNil(t, engine.StateRepository())
		assert.NotNil(t, engine.CheckpointRepository())
		assert.NotNil(t, engine.EmbeddingClient())
		assert.Equal(t, 4, engine.Config().Ingestion.ChunkWords)
	})

	t.Run("in memory", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store.InMemory = true
		engine, err := Open(cfg, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		assert.NoError(t, engine.Close())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to open a store at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		cfg := testConfig(t)
		cfg.Store.Path = tmpFile
		engine, err := Open(cfg, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, engine)
	})

	t.Run("openai provider from config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Provider.EmbeddingHost = "http://127.0.0.1:1"
		cfg.Provider.GenerationHost = "http://127.0.0.1:1"
		engine, err := Open(cfg)
		require.NoError(t, err)
		assert.NoError(t, engine.Close())
	})
}

func TestEngine_EndToEnd(t *testing.T) {
	provider := mock.NewMockProvider()
	engine, err := Open(testConfig(t), WithProvider(provider))
	require.NoError(t, err)
	defer engine.Close()
	ctx := context.Background()

	pipeline, err := engine.NewIngestionPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	report, err := pipeline.Run(ctx, ingestion.NewSliceSource(
		&core.Document{Key: "paper-1", Title: "Solid electrolytes", Authors: []string{"J. Goodenough"},
			Content: "garnet electrolytes suppress dendrites at high current density"},
		&core.Document{Key: "paper-2", Title: "Silicon anodes", Authors: []string{"Y. Cui"},
			Content: "silicon expands during lithiation and cracks"},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Persisted)

	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 4, stats.Chunks)
	assert.Equal(t, 4, stats.Embedded)
	assert.Equal(t, mock.DefaultDimensions, stats.Dimension)

	answerer, err := engine.NewAnswerer()
	require.NoError(t, err)
	answer, err := answerer.Answer(ctx, "how do silicon anodes fail?")
	require.NoError(t, err)
	assert.Equal(t, 4, answer.Passages)
	assert.Contains(t, answer.Text, "from 4 passages")

	backfiller, err := engine.NewBackfiller(io.Discard)
	require.NoError(t, err)
	summary, err := backfiller.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Pending)
}
