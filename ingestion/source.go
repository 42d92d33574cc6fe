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
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/poiesic/papertrail/core"
)

// Source feeds documents to the pipeline. Next returns io.EOF when the feed
// is exhausted.
type Source interface {
	Next(ctx context.Context) (*core.Document, error)
}

// SliceSource serves documents from memory.
type SliceSource struct {
	mu   sync.Mutex
	docs []*core.Document
	pos  int
}

var _ Source = (*SliceSource)(nil)

// NewSliceSource returns a Source over docs.
func NewSliceSource(docs ...*core.Document) *SliceSource {
	return &SliceSource{docs: docs}
}

func (s *SliceSource) Next(ctx context.Context) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.docs) {
		return nil, io.EOF
	}
	doc := s.docs[s.pos]
	s.pos++
	return doc, nil
}

// JSONLSource decodes one JSON document per line:
//
//	{"key": "https://arxiv.org/abs/2401.00001", "title": "...", "authors": ["..."], "content": "...", "acquired_at": "2024-01-02T15:04:05Z"}
type JSONLSource struct {
	mu      sync.Mutex
	decoder *json.Decoder
	line    int
}

var _ Source = (*JSONLSource)(nil)

// NewJSONLSource reads documents from r.
func NewJSONLSource(r io.Reader) *JSONLSource {
	return &JSONLSource{decoder: json.NewDecoder(bufio.NewReader(r))}
}

func (s *JSONLSource) Next(ctx context.Context) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc core.Document
	if err := s.decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decode document %d: %w", s.line+1, err)
	}
	s.line++
	return &doc, nil
}
