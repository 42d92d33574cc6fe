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
	"iter"

	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/storage"
)

const (
	// DefaultBatchSize is the default number of chunks to fetch in each batch
	DefaultBatchSize = 500
)

// Iterator pulls pending chunks from the store one batch at a time.
// It never holds more than one batch in memory, and the cursor it reports
// can seed a new Iterator that continues where this one stopped.
type Iterator struct {
	repo      storage.ChunkRepository
	batchSize int
	cursor    *core.ChunkRef
}

// NewIterator creates an iterator that starts strictly after cursor, or at
// the beginning when cursor is nil.
// batchSize: number of chunks to fetch in each batch (must be > 0)
func NewIterator(repo storage.ChunkRepository, batchSize int, cursor *core.ChunkRef) *Iterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if cursor != nil {
		c := *cursor
		cursor = &c
	}
	return &Iterator{
		repo:      repo,
		batchSize: batchSize,
		cursor:    cursor,
	}
}

// Cursor returns the last chunk handed out, nil before the first batch.
func (it *Iterator) Cursor() *core.ChunkRef {
	if it.cursor == nil {
		return nil
	}
	c := *it.cursor
	return &c
}

// Batches yields batches of leased pending chunks until none remain after
// the cursor. A fetch error is yielded once and ends the sequence. The
// cursor advances past a batch as soon as it is yielded; chunks of that
// batch the consumer fails to embed are revisited only by a new pass.
func (it *Iterator) Batches(ctx context.Context) iter.Seq2[[]core.PendingChunk, error] {
	return func(yield func([]core.PendingChunk, error) bool) {
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			batch, err := it.repo.FetchChunksMissingEmbedding(ctx, it.cursor, it.batchSize)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(batch) == 0 {
				return
			}

			last := batch[len(batch)-1].ChunkRef
			it.cursor = &last
			if !yield(batch, nil) {
				return
			}
		}
	}
}
