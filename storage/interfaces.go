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

package storage

import (
	"context"

	"github.com/poiesic/papertrail/core"
)

// Stats summarizes the contents of a store.
type Stats struct {
	Documents int
	Chunks    int
	Embedded  int
	Pending   int
	Dimension int // 0 until the first vector is written
}

// VectorSearcher performs nearest-neighbor search over stored embeddings.
type VectorSearcher interface {
	// SimilaritySearch scores every embedded chunk against query by cosine
	// similarity and returns the best topK, at most maxPerDocument per
	// document when maxPerDocument > 0. Ties are ordered by document key
	// then chunk index.
	SimilaritySearch(ctx context.Context, query []float32, topK, maxPerDocument int) ([]*core.ScoredChunk, error)
}

type ChunkRepository interface {
	VectorSearcher

	// UpsertDocumentChunks atomically replaces the document header and all of
	// its chunks. Stored chunks at indices >= len(chunks) are deleted. An
	// incoming chunk without a vector keeps the stored vector when its text
	// is unchanged.
	UpsertDocumentChunks(ctx context.Context, doc *core.DocumentRecord, chunks []core.Chunk) error

	// GetDocument retrieves a document header by key.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, key string) (*core.DocumentRecord, error)

	// GetChunks retrieves a document's chunks in index order.
	// Returns ErrNotFound if the document doesn't exist.
	GetChunks(ctx context.Context, key string) ([]core.Chunk, error)

	// DeleteDocument removes a document, its chunks and its pipeline state.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, key string) error

	// FetchChunksMissingEmbedding returns up to limit pending chunks ordered
	// by storage position, strictly after the after cursor when it is non-nil.
	// Returned chunks are leased to the caller; chunks leased to someone else
	// are skipped until the lease expires or is released.
	FetchChunksMissingEmbedding(ctx context.Context, after *core.ChunkRef, limit int) ([]core.PendingChunk, error)

	// FetchDocumentChunksMissingEmbedding returns and leases every pending
	// chunk of one document, in index order.
	FetchDocumentChunksMissingEmbedding(ctx context.Context, key string) ([]core.PendingChunk, error)

	// ReleaseClaims gives back leases taken by the fetch methods.
	ReleaseClaims(ctx context.Context, refs ...core.ChunkRef)

	// SetEmbedding stores the vector of one chunk and clears its pending mark.
	// Returns ErrNotFound if the chunk doesn't exist and ErrDimensionMismatch
	// if the vector does not match the store's dimension.
	SetEmbedding(ctx context.Context, ref core.ChunkRef, vector []float32) error

	// CountChunksMissingEmbedding returns the number of pending chunks.
	CountChunksMissingEmbedding(ctx context.Context) (int, error)

	// ListDocumentsMissingEmbedding returns the keys of documents with at
	// least one pending chunk.
	ListDocumentsMissingEmbedding(ctx context.Context) ([]string, error)

	// Stats summarizes the store.
	Stats(ctx context.Context) (*Stats, error)
}

type StateRepository interface {
	// SaveState persists the pipeline state of a document, setting UpdatedAt.
	SaveState(ctx context.Context, state *core.DocumentState) error

	// GetState returns the state of a document.
	// Returns ErrNotFound if no state was saved.
	GetState(ctx context.Context, key string) (*core.DocumentState, error)

	// ListStates returns every saved state whose stage is one of stages, or
	// every state when stages is empty.
	ListStates(ctx context.Context, stages ...core.Stage) ([]*core.DocumentState, error)
}

type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint for a processor type.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a processor type.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error)

	// DeleteCheckpoint removes the checkpoint for a processor type.
	DeleteCheckpoint(ctx context.Context, processorType string) error
}
