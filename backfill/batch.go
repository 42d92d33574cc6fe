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

package backfill

import (
	"context"
	"fmt"

	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/embedding"
	"github.com/poiesic/papertrail/metrics"
	"github.com/poiesic/papertrail/storage"
)

// BatchEmbedder embeds texts in order. *embedding.Client satisfies it.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) embedding.Result
}

// BatchResult counts what happened to one batch.
type BatchResult struct {
	Embedded int
	Rejected []core.ChunkRef
}

// BatchProcessor embeds a batch of pending chunks and stores the vectors.
type BatchProcessor struct {
	repo     storage.ChunkRepository
	embedder BatchEmbedder
}

// NewBatchProcessor creates a new batch processor.
// Retries and rate limiting are the embedding client's job.
func NewBatchProcessor(repo storage.ChunkRepository, embedder BatchEmbedder) *BatchProcessor {
	return &BatchProcessor{
		repo:     repo,
		embedder: embedder,
	}
}

// Process embeds chunks and writes each vector. On failure the vectors of
// the completed prefix are still written. Every lease in the batch is
// released before Process returns.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []core.PendingChunk) (BatchResult, error) {
	var result BatchResult
	if len(chunks) == 0 {
		return result, nil
	}

	refs := make([]core.ChunkRef, len(chunks))
	texts := make([]string, len(chunks))
	for i := range chunks {
		refs[i] = chunks[i].ChunkRef
		texts[i] = chunks[i].EmbeddingText()
	}
	defer bp.repo.ReleaseClaims(context.WithoutCancel(ctx), refs...)

	embedded := bp.embedder.EmbedBatch(ctx, texts)
	for i, vector := range embedded.Vectors {
		if vector == nil {
			result.Rejected = append(result.Rejected, refs[i])
			continue
		}
		if err := bp.repo.SetEmbedding(ctx, refs[i], vector); err != nil {
			return result, fmt.Errorf("failed to store embedding for %s#%d: %w", refs[i].DocumentKey, refs[i].Index, err)
		}
		result.Embedded++
		metrics.ChunksEmbeddedTotal.Inc()
	}

	if err := embedded.AsError(); err != nil {
		return result, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	return result, nil
}
