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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/embedding"
	"github.com/poiesic/papertrail/metrics"
	"github.com/poiesic/papertrail/storage"
)

// BatchEmbedder embeds texts in order. *embedding.Client satisfies it.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) embedding.Result
}

// embeddingProcessor generates embeddings for a document's pending chunks.
type embeddingProcessor struct {
	chunkRepository storage.ChunkRepository
	embedder        BatchEmbedder
	batchSize       int
	logger          *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

func newEmbeddingProcessor(chunkRepository storage.ChunkRepository, embedder BatchEmbedder, batchSize int, logger *slog.Logger) *embeddingProcessor {
	return &embeddingProcessor{
		chunkRepository: chunkRepository,
		embedder:        embedder,
		batchSize:       batchSize,
		logger:          logger.With("processor", "embeddings"),
	}
}

func (ep *embeddingProcessor) stage() core.Stage {
	return core.StageEmbedding
}

// process embeds only the chunks still missing a vector. Vectors are written
// batch by batch in index order, so a failure leaves every chunk before it
// embedded and the rest pending.
func (ep *embeddingProcessor) process(ctx context.Context, j *job) error {
	pending, err := ep.chunkRepository.FetchDocumentChunksMissingEmbedding(ctx, j.key)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	ep.logger.Debug("embedding chunks", "document", j.key, "pending", len(pending))

	refs := make([]core.ChunkRef, len(pending))
	for i := range pending {
		refs[i] = pending[i].ChunkRef
	}
	defer ep.chunkRepository.ReleaseClaims(context.WithoutCancel(ctx), refs...)

	for start := 0; start < len(pending); start += ep.batchSize {
		end := min(start+ep.batchSize, len(pending))
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].EmbeddingText()
		}

		result := ep.embedder.EmbedBatch(ctx, texts)
		for i, vector := range result.Vectors {
			ref := batch[i].ChunkRef
			if vector == nil {
				ep.logger.Warn("provider rejected chunk, skipping", "document", ref.DocumentKey, "chunk", ref.Index)
				j.rejected = append(j.rejected, ref.Index)
				continue
			}
			if err := ep.chunkRepository.SetEmbedding(ctx, ref, vector); err != nil {
				return fmt.Errorf("store embedding for chunk %d: %w", ref.Index, err)
			}
			j.embedded++
			metrics.ChunksEmbeddedTotal.Inc()
		}
		if err := result.AsError(); err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", batch[0].Index, batch[len(batch)-1].Index, err)
		}
	}
	return nil
}
