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

package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/metrics"
	"github.com/poiesic/papertrail/storage"
)

// DefaultTopK is the number of passages retrieved when none is requested.
const DefaultTopK = 20

// QueryEmbedder turns a query into a vector in the store's space.
// *embedding.Client satisfies it.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever finds the stored chunks most similar to a query.
type Retriever struct {
	store    storage.VectorSearcher
	embedder QueryEmbedder
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(store storage.VectorSearcher, embedder QueryEmbedder, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		store:    store,
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "retriever")
	return r, nil
}

// Retrieve returns up to topK chunks ranked by cosine similarity to query,
// at most maxPerDocument from any one document (0 means no cap).
// topK <= 0 uses DefaultTopK.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK, maxPerDocument int) ([]*core.ScoredChunk, error) {
	return r.RetrieveWithMonitor(ctx, query, topK, maxPerDocument, nil)
}

// RetrieveWithMonitor is Retrieve with stage callbacks.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, query string, topK, maxPerDocument int, monitor RetrievalMonitor) ([]*core.ScoredChunk, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	start := time.Now()
	defer func() {
		metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	}()
	monitor.Start(query)

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Error("failed to embed query", "err", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	monitor.AfterQueryEmbedding(len(vector), time.Since(start))

	searchStart := time.Now()
	results, err := r.store.SimilaritySearch(ctx, vector, topK, maxPerDocument)
	if err != nil {
		r.logger.Error("similarity search failed", "err", err)
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	monitor.AfterSimilaritySearch(len(results), time.Since(searchStart))

	r.logger.Debug("retrieved chunks", "results", len(results), "topK", topK, "maxPerDocument", maxPerDocument)
	monitor.Finish(results)
	return results, nil
}
