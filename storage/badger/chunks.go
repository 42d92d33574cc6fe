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
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
	claims  *claimTable
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// ChunkOption configures a ChunkRepository.
type ChunkOption func(*ChunkRepository)

// WithClaimTTL sets how long fetched pending chunks stay leased.
func WithClaimTTL(ttl time.Duration) ChunkOption {
	return func(r *ChunkRepository) {
		if ttl > 0 {
			r.claims.ttl = ttl
		}
	}
}

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend, opts ...ChunkOption) *ChunkRepository {
	r := &ChunkRepository{
		backend: backend,
		claims:  newClaimTable(DefaultClaimTTL),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// UpsertDocumentChunks atomically replaces a document and its chunks.
func (r *ChunkRepository) UpsertDocumentChunks(ctx context.Context, doc *core.DocumentRecord, chunks []core.Chunk) error {
	if doc == nil || doc.Key == "" {
		return fmt.Errorf("%w: %w", storage.ErrInvalidChunks, core.ErrEmptyKey)
	}
	for i := range chunks {
		c := &chunks[i]
		if c.Index != i {
			return fmt.Errorf("%w: chunk at position %d has index %d", storage.ErrInvalidChunks, i, c.Index)
		}
		if c.DocumentKey != "" && c.DocumentKey != doc.Key {
			return fmt.Errorf("%w: chunk %d belongs to %q", storage.ErrInvalidChunks, i, c.DocumentKey)
		}
		if c.Vector != nil {
			if err := core.ValidateVector(c.Vector); err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
		}
	}

	id := core.DocumentID(doc.Key)
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		previous, err := readDocument(tx, id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		existing, err := readChunks(tx, id)
		if err != nil {
			return err
		}
		stored := make(map[int]core.Chunk, len(existing))
		for _, c := range existing {
			stored[c.Index] = c
		}

		record := *doc
		record.ChunkCount = len(chunks)
		record.IngestedAt = time.Now().UTC()
		if previous != nil && previous.ContentHash == record.ContentHash && previous.ChunkCount == record.ChunkCount {
			record.IngestedAt = previous.IngestedAt
		}
		if err := tx.Set(makeDocumentKey(id), storage.MarshalDocumentRecord(&record)); err != nil {
			return err
		}

		for i := range chunks {
			chunk := chunks[i]
			chunk.DocumentKey = doc.Key
			if old, ok := stored[i]; ok && chunk.Vector == nil && old.Text == chunk.Text {
				chunk.Vector = old.Vector
			} else if chunk.Vector != nil {
				chunk.Vector = core.NormalizeVector(chunk.Vector)
				if err := checkDimension(tx, len(chunk.Vector)); err != nil {
					return err
				}
			}

			if err := tx.Set(makeChunkKey(id, i), storage.MarshalChunk(&chunk)); err != nil {
				return err
			}
			if err := setPending(tx, id, i, chunk.Vector == nil); err != nil {
				return err
			}
		}

		for index := range stored {
			if index < len(chunks) {
				continue
			}
			if err := tx.Delete(makeChunkKey(id, index)); err != nil {
				return err
			}
			if err := tx.Delete(makePendingKey(id, index)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDocument retrieves a document header by key.
func (r *ChunkRepository) GetDocument(ctx context.Context, key string) (*core.DocumentRecord, error) {
	var doc *core.DocumentRecord
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, core.DocumentID(key))
		return err
	})
	return doc, err
}

// GetChunks retrieves a document's chunks in index order.
func (r *ChunkRepository) GetChunks(ctx context.Context, key string) ([]core.Chunk, error) {
	var chunks []core.Chunk
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		id := core.DocumentID(key)
		if _, err := readDocument(tx, id); err != nil {
			return err
		}
		var err error
		chunks, err = readChunks(tx, id)
		return err
	})
	return chunks, err
}

// DeleteDocument removes a document, its chunks and its pipeline state.
func (r *ChunkRepository) DeleteDocument(ctx context.Context, key string) error {
	id := core.DocumentID(key)
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		if _, err := readDocument(tx, id); err != nil {
			return err
		}
		for _, prefix := range [][]byte{makeChunkPrefix(id), makePendingPrefix(id)} {
			keys, err := collectKeys(tx, prefix)
			if err != nil {
				return err
			}
			for _, k := range keys {
				if err := tx.Delete(k); err != nil {
					return err
				}
			}
		}
		if err := tx.Delete(makeStateKey(id)); err != nil {
			return err
		}
		return tx.Delete(makeDocumentKey(id))
	})
	if err == nil {
		r.releaseDocument(id)
	}
	return err
}

// FetchChunksMissingEmbedding returns up to limit unleased pending chunks
// after the cursor and leases them to the caller.
func (r *ChunkRepository) FetchChunksMissingEmbedding(ctx context.Context, after *core.ChunkRef, limit int) ([]core.PendingChunk, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	start := []byte(pendingPrefix)
	if after != nil {
		start = makePendingKey(core.DocumentID(after.DocumentKey), after.Index+1)
	}
	r.claims.sweep()
	return r.fetchPending(ctx, []byte(pendingPrefix), start, limit)
}

// FetchDocumentChunksMissingEmbedding returns and leases every unleased
// pending chunk of one document.
func (r *ChunkRepository) FetchDocumentChunksMissingEmbedding(ctx context.Context, key string) ([]core.PendingChunk, error) {
	prefix := makePendingPrefix(core.DocumentID(key))
	return r.fetchPending(ctx, prefix, prefix, 0)
}

// ReleaseClaims gives back leases taken by the fetch methods.
func (r *ChunkRepository) ReleaseClaims(ctx context.Context, refs ...core.ChunkRef) {
	keys := make([]claimKey, len(refs))
	for i, ref := range refs {
		keys[i] = claimKey{doc: core.DocumentID(ref.DocumentKey), index: ref.Index}
	}
	r.claims.release(keys...)
}

// fetchPending walks pending markers under prefix from start, claiming up to
// limit chunks (no limit when limit is 0).
func (r *ChunkRepository) fetchPending(ctx context.Context, prefix, start []byte, limit int) ([]core.PendingChunk, error) {
	var result []core.PendingChunk
	var claimed []claimKey

	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		headers := make(map[core.ID]*core.DocumentRecord)

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(start); iter.Valid(); iter.Next() {
			if limit > 0 && len(result) >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			id, index, ok := parseIndexedKey(iter.Item().Key(), pendingPrefix)
			if !ok {
				continue
			}
			k := claimKey{doc: id, index: index}
			if !r.claims.tryClaim(k) {
				continue
			}
			claimed = append(claimed, k)

			chunk, err := readChunk(tx, id, index)
			if err != nil {
				return err
			}
			header, ok := headers[id]
			if !ok {
				if header, err = readDocument(tx, id); err != nil {
					return err
				}
				headers[id] = header
			}

			result = append(result, core.PendingChunk{
				ChunkRef: chunk.Ref(),
				Text:     chunk.Text,
				Title:    header.Title,
				Authors:  header.Authors,
			})
		}
		return nil
	})
	if err != nil {
		r.claims.release(claimed...)
		return nil, err
	}
	return result, nil
}

// SetEmbedding stores the vector of one chunk and clears its pending mark.
func (r *ChunkRepository) SetEmbedding(ctx context.Context, ref core.ChunkRef, vector []float32) error {
	if err := core.ValidateVector(vector); err != nil {
		return err
	}
	normalized := core.NormalizeVector(vector)

	id := core.DocumentID(ref.DocumentKey)
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		chunk, err := readChunk(tx, id, ref.Index)
		if err != nil {
			return err
		}
		if err := checkDimension(tx, len(normalized)); err != nil {
			return err
		}
		chunk.Vector = normalized
		if err := tx.Set(makeChunkKey(id, ref.Index), storage.MarshalChunk(chunk)); err != nil {
			return err
		}
		return tx.Delete(makePendingKey(id, ref.Index))
	})
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		r.claims.release(claimKey{doc: id, index: ref.Index})
	}
	return err
}

// CountChunksMissingEmbedding returns the number of pending chunks.
func (r *ChunkRepository) CountChunksMissingEmbedding(ctx context.Context) (int, error) {
	var count int
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		var err error
		count, err = countKeys(tx, []byte(pendingPrefix))
		return err
	})
	return count, err
}

// ListDocumentsMissingEmbedding returns the keys of documents with at least
// one pending chunk, sorted.
func (r *ChunkRepository) ListDocumentsMissingEmbedding(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(pendingPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var last core.ID
		seen := false
		for iter.Rewind(); iter.Valid(); iter.Next() {
			id, _, ok := parseIndexedKey(iter.Item().Key(), pendingPrefix)
			if !ok || (seen && id == last) {
				continue
			}
			last, seen = id, true

			doc, err := readDocument(tx, id)
			if err != nil {
				return err
			}
			keys = append(keys, doc.Key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}

// Stats summarizes the store.
func (r *ChunkRepository) Stats(ctx context.Context) (*storage.Stats, error) {
	stats := &storage.Stats{}
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		var err error
		if stats.Documents, err = countKeys(tx, []byte(documentPrefix)); err != nil {
			return err
		}
		if stats.Chunks, err = countKeys(tx, []byte(chunkPrefix)); err != nil {
			return err
		}
		if stats.Pending, err = countKeys(tx, []byte(pendingPrefix)); err != nil {
			return err
		}
		stats.Embedded = stats.Chunks - stats.Pending
		stats.Dimension, err = readDimension(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *ChunkRepository) releaseDocument(id core.ID) {
	r.claims.mu.Lock()
	defer r.claims.mu.Unlock()
	for k := range r.claims.leases {
		if k.doc == id {
			delete(r.claims.leases, k)
		}
	}
}

func readDocument(tx *badger.Txn, id core.ID) (*core.DocumentRecord, error) {
	item, err := tx.Get(makeDocumentKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var doc *core.DocumentRecord
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocumentRecord(val)
		return err
	})
	return doc, err
}

func readChunk(tx *badger.Txn, id core.ID, index int) (*core.Chunk, error) {
	item, err := tx.Get(makeChunkKey(id, index))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("chunk %d: %w", index, storage.ErrNotFound)
		}
		return nil, err
	}
	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}

// readChunks returns a document's stored chunks in index order.
func readChunks(tx *badger.Txn, id core.ID) ([]core.Chunk, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeChunkPrefix(id)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var chunks []core.Chunk
	for iter.Rewind(); iter.Valid(); iter.Next() {
		err := iter.Item().Value(func(val []byte) error {
			chunk, err := storage.UnmarshalChunk(val)
			if err != nil {
				return err
			}
			chunks = append(chunks, *chunk)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return chunks, nil
}

// readDimension returns the recorded vector dimension, 0 if none yet.
func readDimension(tx *badger.Txn) (int, error) {
	item, err := tx.Get([]byte(dimensionKey))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var dim int
	err = item.Value(func(val []byte) error {
		var err error
		dim, err = storage.UnmarshalDimension(val)
		return err
	})
	return dim, err
}

// checkDimension records dim on first use and rejects any other dimension
// afterwards.
func checkDimension(tx *badger.Txn, dim int) error {
	stored, err := readDimension(tx)
	if err != nil {
		return err
	}
	switch {
	case stored == 0:
		return tx.Set([]byte(dimensionKey), storage.MarshalDimension(dim))
	case stored != dim:
		return fmt.Errorf("%w: store holds %d-dimensional vectors, got %d", storage.ErrDimensionMismatch, stored, dim)
	}
	return nil
}

func setPending(tx *badger.Txn, id core.ID, index int, pending bool) error {
	key := makePendingKey(id, index)
	if pending {
		return tx.Set(key, nil)
	}
	return tx.Delete(key)
}

func collectKeys(tx *badger.Txn, prefix []byte) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys, nil
}

func countKeys(tx *badger.Txn, prefix []byte) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Item().Key(), prefix) {
			break
		}
		count++
	}
	return count, nil
}
