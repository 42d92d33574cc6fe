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

package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/storage"
)

// SimilaritySearch scores every embedded chunk by cosine similarity to query.
// Stored vectors are unit length, so the score is a dot product against the
// normalized query. Only the current best topK chunks are held during the scan.
func (r *ChunkRepository) SimilaritySearch(ctx context.Context, query []float32, topK, maxPerDocument int) ([]*core.ScoredChunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidQuery)
	}
	if maxPerDocument < 0 {
		return nil, fmt.Errorf("%w: maxPerDocument cannot be negative", storage.ErrInvalidQuery)
	}
	if err := core.ValidateVector(query); err != nil {
		return nil, err
	}
	query = core.NormalizeVector(query)

	top := core.NewTopK(topK, maxPerDocument)
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		dim, err := readDimension(tx)
		if err != nil {
			return err
		}
		if dim == 0 {
			return nil
		}
		if dim != len(query) {
			return fmt.Errorf("%w: store holds %d-dimensional vectors, query has %d",
				storage.ErrDimensionMismatch, dim, len(query))
		}

		headers := make(map[core.ID]*core.DocumentRecord)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		scanned := 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if scanned++; scanned%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk.Vector == nil {
				continue
			}

			id := core.DocumentID(chunk.DocumentKey)
			header, ok := headers[id]
			if !ok {
				if header, err = readDocument(tx, id); err != nil {
					return err
				}
				headers[id] = header
			}

			top.Add(&core.ScoredChunk{
				Chunk:   chunk,
				Title:   header.Title,
				Authors: header.Authors,
				Score:   core.DotProduct(query, chunk.Vector),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return top.Results(), nil
}
