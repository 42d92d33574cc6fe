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

package papertrail

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/papertrail/ai"
	"github.com/poiesic/papertrail/ai/openai"
	"github.com/poiesic/papertrail/backfill"
	"github.com/poiesic/papertrail/chunker"
	"github.com/poiesic/papertrail/config"
	"github.com/poiesic/papertrail/embedding"
	"github.com/poiesic/papertrail/ingestion"
	"github.com/poiesic/papertrail/search"
	"github.com/poiesic/papertrail/storage"
	"github.com/poiesic/papertrail/storage/badger"
)

// Engine wires the store, the AI provider and the shared rate budget
// together and builds the pipeline, retriever and backfill on top of them.
type Engine struct {
	config   *config.Config
	repos    *badger.Repositories
	provider ai.AIProvider
	budget   *embedding.Budget
	client   *embedding.Client
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithProvider uses provider instead of building an OpenAI provider from
// the configuration. The Engine closes it on Close.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open opens the store described by cfg and connects the provider.
// A nil cfg means config.Default().
func Open(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	counter, err := cfg.TokenCounter()
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(cfg.AIConfig())
		if err != nil {
			return nil, err
		}
	}

	path := cfg.Store.Path
	if cfg.Store.InMemory {
		path = ""
	}
	repos, err := badger.Open(path, cfg.Store.InMemory, badger.WithClaimTTL(cfg.Store.ClaimTTL))
	if err != nil {
		provider.Close()
		return nil, err
	}

	// One budget for every call site that talks to the provider.
	budget := embedding.NewBudget(cfg.BudgetConfig())
	client, err := embedding.NewClient(provider.Embedder(), budget,
		embedding.WithConfig(cfg.ClientConfig()),
		embedding.WithTokenCounter(counter),
		embedding.WithLogger(options.logger),
	)
	if err != nil {
		repos.Close()
		provider.Close()
		return nil, err
	}

	return &Engine{
		config:   cfg,
		repos:    repos,
		provider: provider,
		budget:   budget,
		client:   client,
		logger:   options.logger,
	}, nil
}

// Close releases the provider and closes the store.
func (e *Engine) Close() error {
	// Close AI provider first
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	if err := e.repos.Close(); err != nil {
		e.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

func (e *Engine) Config() *config.Config {
	return e.config
}

func (e *Engine) ChunkRepository() storage.ChunkRepository {
	return e.repos.Chunks
}

func (e *Engine) StateRepository() storage.StateRepository {
	return e.repos.States
}

func (e *Engine) CheckpointRepository() storage.CheckpointRepository {
	return e.repos.Checkpoints
}

// EmbeddingClient returns the client shared by every component of the engine.
func (e *Engine) EmbeddingClient() *embedding.Client {
	return e.client
}

// NewIngestionPipeline builds a pipeline from the configuration; opts are
// applied after the configured ones.
func (e *Engine) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithPoolSize(e.config.Ingestion.Workers),
		ingestion.WithChunker(chunker.New(chunker.WithMaxWords(e.config.Ingestion.ChunkWords))),
		ingestion.WithEmbedBatchSize(e.config.Ingestion.EmbedBatchSize),
		ingestion.WithLogger(e.logger),
	}
	return ingestion.NewPipeline(e.repos.Chunks, e.repos.States, e.client, append(base, opts...)...)
}

func (e *Engine) NewRetriever(opts ...search.Option) (*search.Retriever, error) {
	return search.NewRetriever(e.repos.Chunks, e.client, append([]search.Option{search.WithLogger(e.logger)}, opts...)...)
}

// NewAnswerer builds an answerer with the configured retrieval defaults.
func (e *Engine) NewAnswerer(opts ...search.Option) (*search.Answerer, error) {
	retriever, err := e.NewRetriever(opts...)
	if err != nil {
		return nil, err
	}
	return search.NewAnswerer(retriever, e.provider.Generator(), search.AnswerConfig{
		TopK:            e.config.Retrieval.TopK,
		MaxPerDocument:  e.config.Retrieval.MaxPerDocument,
		MaxContextWords: e.config.Retrieval.MaxContextWords,
	})
}

// NewBackfiller builds a backfill that writes progress to progress.
func (e *Engine) NewBackfiller(progress io.Writer) (*backfill.Backfiller, error) {
	return backfill.NewBackfiller(e.repos.Chunks, e.repos.Checkpoints, e.client, &backfill.Config{
		BatchSize:      e.config.Backfill.BatchSize,
		Delay:          e.config.Backfill.Delay,
		ReportInterval: e.config.Backfill.BatchSize,
	}, progress)
}

// Stats summarizes the store.
func (e *Engine) Stats(ctx context.Context) (*storage.Stats, error) {
	return e.repos.Chunks.Stats(ctx)
}
