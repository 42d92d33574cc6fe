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

// Repositories groups the repositories sharing one Backend.
type Repositories struct {
	Backend     *Backend
	Chunks      *ChunkRepository
	States      *StateRepository
	Checkpoints *CheckpointRepository
}

// Open opens the store at path (in memory when inMemory is set) and builds
// every repository on it.
func Open(path string, inMemory bool, opts ...ChunkOption) (*Repositories, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Backend:     backend,
		Chunks:      NewChunkRepository(backend, opts...),
		States:      NewStateRepository(backend),
		Checkpoints: NewCheckpointRepository(backend),
	}, nil
}

// Close closes the shared backend.
func (r *Repositories) Close() error {
	return r.Backend.Close()
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must Close the result when done.
func NewMemoryRepositories(opts ...ChunkOption) (*Repositories, error) {
	return Open("", true, opts...)
}
