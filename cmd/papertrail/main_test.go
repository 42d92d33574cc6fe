package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/papertrail/config"
	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func findFlag(t *testing.T, flags []cli.Flag, name string) cli.Flag {
	t.Helper()
	for _, flag := range flags {
		for _, n := range flag.Names() {
			if n == name {
				return flag
			}
		}
	}
	t.Fatalf("flag %q not found", name)
	return nil
}

func TestCommandFlags(t *testing.T) {
	app := newApp()

	t.Run("ingest requires file", func(t *testing.T) {
		err := app.Run([]string{"papertrail", "ingest"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file")
	})

	t.Run("backfill defaults", func(t *testing.T) {
		cmd := findCommand(t, app, "backfill")

		batch, ok := findFlag(t, cmd.Flags, "batch-size").(*cli.IntFlag)
		require.True(t, ok)
		assert.Equal(t, 500, batch.Value)

		delay, ok := findFlag(t, cmd.Flags, "delay").(*cli.DurationFlag)
		require.True(t, ok)
		assert.Equal(t, time.Second, delay.Value)
	})

	t.Run("retrieve leaves max-per-document to config by default", func(t *testing.T) {
		cmd := findCommand(t, app, "retrieve")
		flag, ok := findFlag(t, cmd.Flags, "max-per-document").(*cli.IntFlag)
		require.True(t, ok)
		assert.Equal(t, -1, flag.Value)
	})

	t.Run("api key reads OPENAI_API_KEY", func(t *testing.T) {
		flag, ok := findFlag(t, app.Flags, "api-key").(*cli.StringFlag)
		require.True(t, ok)
		assert.Contains(t, flag.EnvVars, "OPENAI_API_KEY")
	})
}

func TestCommandValidation(t *testing.T) {
	app := newApp()

	t.Run("retrieve without a query fails", func(t *testing.T) {
		err := app.Run([]string{"papertrail", "retrieve"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query is required")
	})

	t.Run("ask without a question fails", func(t *testing.T) {
		err := app.Run([]string{"papertrail", "ask", "   "})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "question is required")
	})

	t.Run("backfill rejects a zero batch size", func(t *testing.T) {
		err := app.Run([]string{"papertrail", "--db", t.TempDir(), "backfill", "--batch-size", "0"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch-size")
	})
}

func TestLoadConfig(t *testing.T) {
	run := func(t *testing.T, args ...string) *config.Config {
		t.Helper()
		var cfg *config.Config
		app := newApp()
		app.Commands = []*cli.Command{{
			Name: "inspect",
			Action: func(c *cli.Context) error {
				var err error
				cfg, err = loadConfig(c)
				return err
			},
		}}
		require.NoError(t, app.Run(append(append([]string{"papertrail"}, args...), "inspect")))
		return cfg
	}

	t.Run("defaults without a file", func(t *testing.T) {
		cfg := run(t)
		assert.Equal(t, "./papertrail_db", cfg.Store.Path)
		assert.Equal(t, 1000, cfg.Ingestion.ChunkWords)
	})

	t.Run("flags override the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "papertrail.yaml")
		require.NoError(t, os.WriteFile(path, []byte("store:\n  path: /from/file\nretrieval:\n  top_k: 7\n"), 0o600))

		cfg := run(t, "--config", path, "--db", "/from/flag", "--metrics-addr", ":9999")
		assert.Equal(t, "/from/flag", cfg.Store.Path)
		assert.Equal(t, ":9999", cfg.Metrics.Addr)
		assert.Equal(t, 7, cfg.Retrieval.TopK)
	})

	t.Run("api key from the file is kept", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "papertrail.yaml")
		require.NoError(t, os.WriteFile(path, []byte("provider:\n  api_key: file-key\n"), 0o600))

		cfg := run(t, "--config", path, "--api-key", "flag-key")
		assert.Equal(t, "file-key", cfg.Provider.APIKey)
	})

	t.Run("api key flag fills an empty file value", func(t *testing.T) {
		cfg := run(t, "--api-key", "flag-key")
		assert.Equal(t, "flag-key", cfg.Provider.APIKey)
	})
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, []*core.ScoredChunk{
		{Chunk: &core.Chunk{DocumentKey: "a", Index: 2}, Title: "Attention", Score: 0.9876},
		{Chunk: &core.Chunk{DocumentKey: "b", Index: 0}, Title: "Transformers", Score: 0.5},
	})
	assert.Equal(t, "1: 'Attention' #2 [0.988]\n2: 'Transformers' #0 [0.500]\n", buf.String())
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, nil)
	assert.Empty(t, buf.String())

	report := &ingestion.Report{
		RunID:    "run",
		Failures: []ingestion.Failure{{DocumentKey: "doc-1", Stage: core.StageEmbedding, LastCompleted: core.StageChunking, Kind: core.KindProviderUnavailable, Err: core.ErrProviderUnavailable}},
	}
	printReport(&buf, report)
	assert.Contains(t, buf.String(), "doc-1: EMBEDDING after CHUNKING")
}

func TestSetupLogger(t *testing.T) {
	newLoggerApp := func() *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "log-level",
					Aliases: []string{"l"},
					Value:   "info",
				},
				&cli.StringFlag{
					Name:  "log-format",
					Value: "text",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}
	}

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				err := newLoggerApp().Run([]string{"test", "--log-level", level})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newLoggerApp().Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("json format", func(t *testing.T) {
		err := newLoggerApp().Run([]string{"test", "--log-format", "json"})
		require.NoError(t, err)
	})

	t.Run("invalid log format returns error", func(t *testing.T) {
		err := newLoggerApp().Run([]string{"test", "--log-format", "xml"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log format")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		err := newLoggerApp().Run([]string{"test", "-l", "debug"})
		require.NoError(t, err)
	})
}
