// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/papertrail"
	"github.com/poiesic/papertrail/config"
	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/ingestion"
	"github.com/poiesic/papertrail/metrics"
	"github.com/poiesic/papertrail/search"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "papertrail",
		Usage: "Chunk, embed and search a corpus of papers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"PAPERTRAIL_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides config)",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for the embedding and generation hosts",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address (e.g. :9090)",
			},
		},
		Before:   setupLogger,
		Commands: commands(),
	}
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "ingest",
			Usage:     "Chunk and embed documents from a JSON Lines feed",
			ArgsUsage: " ",
			Action:    ingestCommand,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"f"},
					Usage:    "JSON Lines file of documents, - for stdin",
					Required: true,
				},
				&cli.IntFlag{
					Name:  "workers",
					Usage: "Documents processed concurrently (overrides config)",
				},
				&cli.IntFlag{
					Name:  "chunk-words",
					Usage: "Maximum words per chunk (overrides config)",
				},
			},
		},
		{
			Name:   "resume",
			Usage:  "Finish documents left failed or with missing embeddings",
			Action: resumeCommand,
		},
		{
			Name:   "backfill",
			Usage:  "Embed every stored chunk that is missing a vector",
			Action: backfillCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "batch-size",
					Usage: "Number of chunks to fetch in each batch",
					Value: 500,
				},
				&cli.DurationFlag{
					Name:  "delay",
					Usage: "Pause between batches",
					Value: 1 * time.Second,
				},
				&cli.BoolFlag{
					Name:  "reset",
					Usage: "Discard the saved checkpoint and start over",
				},
			},
		},
		{
			Name:      "retrieve",
			Usage:     "Print the passages most similar to a query",
			ArgsUsage: "<query>",
			Action:    retrieveCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "top-k",
					Aliases: []string{"k"},
					Usage:   "Number of passages to return (overrides config)",
				},
				&cli.IntFlag{
					Name:  "max-per-document",
					Usage: "Cap on passages from one document, 0 for none (overrides config)",
					Value: -1,
				},
			},
		},
		{
			Name:      "ask",
			Usage:     "Answer a question from the stored corpus",
			ArgsUsage: "<question>",
			Action:    askCommand,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "sources",
					Usage: "Print the passages the answer was grounded in",
					Value: true,
				},
			},
		},
		{
			Name:   "status",
			Usage:  "Summarize the store and list failed documents",
			Action: statusCommand,
		},
	}
}

// loadConfig reads the configuration file and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.Store.Path = db
		cfg.Store.InMemory = false
	}
	if key := c.String("api-key"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if addr := c.String("metrics-addr"); addr != "" {
		cfg.Metrics.Addr = addr
	}
	// Flags win over the file.
	if !c.IsSet("log-level") && !c.IsSet("log-format") {
		if err := configureLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// withEngine opens an engine, serves metrics if configured and runs fn with
// a context canceled on SIGINT or SIGTERM.
func withEngine(c *cli.Context, cfg *config.Config, fn func(context.Context, *papertrail.Engine) error) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := papertrail.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, slog.Default()); err != nil {
				slog.Error("metrics server stopped", "err", err)
			}
		}()
	}

	return fn(ctx, engine)
}

func ingestCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if n := c.Int("workers"); n > 0 {
		cfg.Ingestion.Workers = n
	}
	if n := c.Int("chunk-words"); n > 0 {
		cfg.Ingestion.ChunkWords = n
	}

	var in io.Reader = os.Stdin
	if path := c.String("file"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		in = f
	}

	return withEngine(c, cfg, func(ctx context.Context, engine *papertrail.Engine) error {
		pipeline, err := engine.NewIngestionPipeline()
		if err != nil {
			return fmt.Errorf("failed to create pipeline: %w", err)
		}
		defer pipeline.Release()

		fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.Store.Path)
		fmt.Fprintf(os.Stderr, "Embedding host: %s\n", cfg.Provider.EmbeddingHost)
		fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.Provider.EmbeddingModel)
		fmt.Fprintln(os.Stderr)

		report, err := pipeline.Run(ctx, ingestion.NewJSONLSource(in))
		printReport(os.Stdout, report)
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
		return nil
	})
}

func resumeCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return withEngine(c, cfg, func(ctx context.Context, engine *papertrail.Engine) error {
		pipeline, err := engine.NewIngestionPipeline()
		if err != nil {
			return fmt.Errorf("failed to create pipeline: %w", err)
		}
		defer pipeline.Release()

		report, err := pipeline.Resume(ctx)
		printReport(os.Stdout, report)
		if err != nil {
			return fmt.Errorf("resume failed: %w", err)
		}
		return nil
	})
}

func backfillCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.Backfill.BatchSize = c.Int("batch-size")
	cfg.Backfill.Delay = c.Duration("delay")
	if cfg.Backfill.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if cfg.Backfill.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}

	return withEngine(c, cfg, func(ctx context.Context, engine *papertrail.Engine) error {
		backfiller, err := engine.NewBackfiller(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to create backfill: %w", err)
		}
		if c.Bool("reset") {
			if err := backfiller.Reset(ctx); err != nil {
				return fmt.Errorf("failed to reset checkpoint: %w", err)
			}
		}

		fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.Store.Path)
		fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.Provider.EmbeddingModel)
		fmt.Fprintln(os.Stderr)

		summary, err := backfiller.Run(ctx)
		if err != nil {
			return fmt.Errorf("backfill failed: %w", err)
		}
		for _, ref := range summary.Rejected {
			fmt.Fprintf(os.Stdout, "rejected: %s #%d\n", ref.DocumentKey, ref.Index)
		}
		return nil
	})
}

func retrieveCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	topK := cfg.Retrieval.TopK
	if k := c.Int("top-k"); k > 0 {
		topK = k
	}
	maxPerDocument := cfg.Retrieval.MaxPerDocument
	if m := c.Int("max-per-document"); m >= 0 {
		maxPerDocument = m
	}

	return withEngine(c, cfg, func(ctx context.Context, engine *papertrail.Engine) error {
		retriever, err := engine.NewRetriever()
		if err != nil {
			return err
		}
		monitor := &search.LogMonitor{Logger: slog.Default()}
		results, err := retriever.RetrieveWithMonitor(ctx, query, topK, maxPerDocument, monitor)
		if err != nil {
			return fmt.Errorf("retrieval failed: %w", err)
		}
		printResults(os.Stdout, results)
		return nil
	})
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	return withEngine(c, cfg, func(ctx context.Context, engine *papertrail.Engine) error {
		answerer, err := engine.NewAnswerer()
		if err != nil {
			return err
		}
		answer, err := answerer.Answer(ctx, question)
		if err != nil {
			return fmt.Errorf("answer failed: %w", err)
		}
		fmt.Fprintln(os.Stdout, answer.Text)
		if c.Bool("sources") && len(answer.Sources) > 0 {
			fmt.Fprintln(os.Stdout)
			fmt.Fprintln(os.Stdout, "Sources:")
			printResults(os.Stdout, answer.Sources)
		}
		return nil
	})
}

func statusCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return withEngine(c, cfg, func(ctx context.Context, engine *papertrail.Engine) error {
		stats, err := engine.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Documents: %d\n", stats.Documents)
		fmt.Fprintf(os.Stdout, "Chunks:    %d (%d embedded, %d pending)\n", stats.Chunks, stats.Embedded, stats.Pending)
		fmt.Fprintf(os.Stdout, "Dimension: %d\n", stats.Dimension)

		failed, err := engine.StateRepository().ListStates(ctx, core.StageFailed)
		if err != nil {
			return err
		}
		if len(failed) == 0 {
			return nil
		}
		fmt.Fprintf(os.Stdout, "\nFailed documents (%d):\n", len(failed))
		for _, s := range failed {
			fmt.Fprintf(os.Stdout, "  %s after %s (attempts %d): %s\n", s.DocumentKey, s.LastCompleted, s.Attempts, s.Error)
		}
		return nil
	})
}

func printReport(w io.Writer, report *ingestion.Report) {
	if report == nil {
		return
	}
	fmt.Fprintln(w, report.String())
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  %s: %s after %s [%s]: %v\n", f.DocumentKey, f.Stage, f.LastCompleted, f.Kind, f.Err)
	}
}

func printResults(w io.Writer, results []*core.ScoredChunk) {
	for i, r := range results {
		fmt.Fprintf(w, "%d: '%s' #%d [%0.3f]\n", i+1, r.Title, r.Chunk.Index, r.Score)
	}
}

func setupLogger(c *cli.Context) error {
	return configureLogger(c.String("log-level"), c.String("log-format"))
}

func configureLogger(levelStr, format string) error {
	levelStr = strings.ToLower(levelStr)

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format = strings.ToLower(format); format {
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", format)
	}
	slog.SetDefault(slog.New(handler))

	return nil
}
