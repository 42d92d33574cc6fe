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
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/papertrail/chunker"
	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/storage"
)

// chunkProcessor splits a document and stores its chunks without vectors.
type chunkProcessor struct {
	chunkRepository storage.ChunkRepository
	chunker         *chunker.Chunker
	logger          *slog.Logger
}

var _ processor = (*chunkProcessor)(nil)

func newChunkProcessor(chunkRepository storage.ChunkRepository, c *chunker.Chunker, logger *slog.Logger) *chunkProcessor {
	return &chunkProcessor{
		chunkRepository: chunkRepository,
		chunker:         c,
		logger:          logger.With("processor", "chunks"),
	}
}

func (cp *chunkProcessor) stage() core.Stage {
	return core.StageChunking
}

// process stores the document's chunks unless the stored header already
// matches its content hash and chunk count.
func (cp *chunkProcessor) process(ctx context.Context, j *job) error {
	existing, err := cp.chunkRepository.GetDocument(ctx, j.key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	if j.doc == nil {
		if existing == nil {
			return ErrDocumentUnavailable
		}
		j.chunks = existing.ChunkCount
		return nil
	}

	chunks := cp.chunker.Chunk(j.doc)
	if existing != nil && existing.ContentHash == j.doc.ContentHash() && existing.ChunkCount == len(chunks) {
		cp.logger.Debug("document unchanged, keeping stored chunks", "document", j.key, "chunks", len(chunks))
		j.chunks = len(chunks)
		return nil
	}

	record := core.NewDocumentRecord(j.doc, len(chunks))
	if err := cp.chunkRepository.UpsertDocumentChunks(ctx, record, chunks); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	cp.logger.Debug("stored chunks", "document", j.key, "chunks", len(chunks))
	j.chunks = len(chunks)
	j.rechunk = true
	return nil
}
