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
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/storage"
)

// StateRepository implements storage.StateRepository for BadgerDB.
type StateRepository struct {
	backend *Backend
}

var _ storage.StateRepository = (*StateRepository)(nil)

// NewStateRepository creates a new StateRepository.
func NewStateRepository(backend *Backend) *StateRepository {
	return &StateRepository{
		backend: backend,
	}
}

// SaveState persists the pipeline state of a document.
func (r *StateRepository) SaveState(ctx context.Context, state *core.DocumentState) error {
	if state.DocumentKey == "" {
		return core.ErrEmptyKey
	}
	state.UpdatedAt = time.Now().UTC()
	key := makeStateKey(core.DocumentID(state.DocumentKey))
	value := storage.MarshalDocumentState(state)
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Set(key, value)
	})
}

// GetState returns the state of a document.
func (r *StateRepository) GetState(ctx context.Context, key string) (*core.DocumentState, error) {
	var state *core.DocumentState
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		item, err := tx.Get(makeStateKey(core.DocumentID(key)))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			state, err = storage.UnmarshalDocumentState(val)
			return err
		})
	})
	return state, err
}

// ListStates returns saved states in the given stages, ordered by key.
func (r *StateRepository) ListStates(ctx context.Context, stages ...core.Stage) ([]*core.DocumentState, error) {
	var states []*core.DocumentState
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(statePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				state, err := storage.UnmarshalDocumentState(val)
				if err != nil {
					return err
				}
				if len(stages) == 0 || slices.Contains(stages, state.Stage) {
					states = append(states, state)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(states, func(a, b *core.DocumentState) int {
		return strings.Compare(a.DocumentKey, b.DocumentKey)
	})
	return states, nil
}
