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

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrStateRepositoryRequired is returned when a state repository is not provided.
	ErrStateRepositoryRequired = errors.New("state repository required")

	// ErrEmbedderRequired is returned when an embedding client is not provided.
	ErrEmbedderRequired = errors.New("embedding client required")

	// ErrSourceRequired is returned when Run is called without a document source.
	ErrSourceRequired = errors.New("document source required")

	// ErrDocumentUnavailable is returned by Resume for a document whose chunks
	// were never stored; only a fresh Run can ingest it.
	ErrDocumentUnavailable = errors.New("document content unavailable, re-ingest from source")
)
