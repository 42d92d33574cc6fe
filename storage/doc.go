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

// Package storage defines the persistence interfaces for papertrail.
//
// The pipeline and retriever are written against these interfaces; the
// BadgerDB implementation lives in storage/badger. Records are encoded with
// mus-go serializers (see serialization.go).
//
// # Repositories
//
//   - ChunkRepository: documents, chunks, embeddings and similarity search
//   - StateRepository: per-document pipeline state, used to resume runs
//   - CheckpointRepository: cursors for long-running backfills
//
// # Consistency
//
// UpsertDocumentChunks replaces a document's whole chunk set in one
// transaction; readers see either the old set or the new one. SetEmbedding
// writes a single vector atomically. A chunk is pending until its vector is
// written, and pending chunks handed out by FetchChunksMissingEmbedding are
// leased so that concurrent workers do not embed the same chunk twice.
//
// # Errors
//
// Lookups of absent records fail with ErrNotFound (the same value as
// core.ErrNotFound). Failures of the underlying engine are wrapped in
// core.ErrStoreUnavailable so callers can tell them apart from domain errors.
package storage
