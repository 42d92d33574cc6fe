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

package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentID returns the storage identifier for a document key.
func DocumentID(key string) ID {
	return IDFromContent(key)
}

// Document is a source document as delivered by the acquisition feed.
type Document struct {
	Key        string    `json:"key"` // Stable unique key, usually the source URL
	Title      string    `json:"title"`
	Authors    []string  `json:"authors"`
	Content    string    `json:"content"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// ContentHash fingerprints everything about a document that affects its chunks
// and their embeddings.
func (d *Document) ContentHash() ID {
	var sb strings.Builder
	sb.WriteString(d.Title)
	sb.WriteByte(0)
	sb.WriteString(strings.Join(d.Authors, "\x1f"))
	sb.WriteByte(0)
	sb.WriteString(d.Content)
	return IDFromContent(sb.String())
}

// DocumentRecord is the persisted header of an ingested document.
// The document body lives in its chunks.
type DocumentRecord struct {
	Key         string
	Title       string
	Authors     []string
	AcquiredAt  time.Time
	ContentHash ID
	ChunkCount  int
	IngestedAt  time.Time
}

// NewDocumentRecord builds the header for doc with the given chunk count.
func NewDocumentRecord(doc *Document, chunkCount int) *DocumentRecord {
	return &DocumentRecord{
		Key:         doc.Key,
		Title:       doc.Title,
		Authors:     doc.Authors,
		AcquiredAt:  doc.AcquiredAt,
		ContentHash: doc.ContentHash(),
		ChunkCount:  chunkCount,
	}
}

// Chunk is an ordered slice of a document's text.
// Vector is nil until the chunk has been embedded.
type Chunk struct {
	DocumentKey string
	Index       int
	Text        string
	Vector      []float32
}

// Ref returns the chunk's identity.
func (c *Chunk) Ref() ChunkRef {
	return ChunkRef{DocumentKey: c.DocumentKey, Index: c.Index}
}

// ChunkRef identifies a chunk by (document key, chunk index).
type ChunkRef struct {
	DocumentKey string
	Index       int
}

// Compare orders refs by document key, then chunk index.
func (r ChunkRef) Compare(other ChunkRef) int {
	if c := strings.Compare(r.DocumentKey, other.DocumentKey); c != 0 {
		return c
	}
	switch {
	case r.Index < other.Index:
		return -1
	case r.Index > other.Index:
		return 1
	}
	return 0
}

// PendingChunk is a chunk that still needs an embedding, together with the
// document fields that go into the embedding input.
type PendingChunk struct {
	ChunkRef
	Text    string
	Title   string
	Authors []string
}

// EmbeddingText returns the text sent to the embedding provider for this chunk.
func (p *PendingChunk) EmbeddingText() string {
	return EmbeddingText(p.Title, p.Authors, p.Text)
}

// EmbeddingText combines document title, authors and chunk text into the
// provider input: "title authors text".
func EmbeddingText(title string, authors []string, text string) string {
	parts := make([]string, 0, 3)
	if title != "" {
		parts = append(parts, title)
	}
	if len(authors) > 0 {
		parts = append(parts, strings.Join(authors, ", "))
	}
	parts = append(parts, text)
	return strings.Join(parts, " ")
}

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	Chunk   *Chunk
	Title   string
	Authors []string
	Score   float32
}
