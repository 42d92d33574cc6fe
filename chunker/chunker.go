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

package chunker

import (
	"unicode"

	"github.com/poiesic/papertrail/core"
)

// DefaultMaxWords is the default number of words per chunk.
const DefaultMaxWords = 1000

// Split breaks text into segments of at most maxWords words.
// Words are maximal runs of non-whitespace. Segments are slices of text cut
// just before the first word of the next segment, so whitespace stays with
// the segment it follows and strings.Join(segments, "") == text.
// Empty or whitespace-only text yields no segments.
// A non-positive maxWords uses DefaultMaxWords.
func Split(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	var segments []string
	start, words, inWord := 0, 0, false
	for i, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if inWord {
			continue
		}
		inWord = true
		if words > 0 && words%maxWords == 0 {
			segments = append(segments, text[start:i])
			start = i
		}
		words++
	}
	if words == 0 {
		return nil
	}
	return append(segments, text[start:])
}

// Chunker turns documents into indexed chunks.
type Chunker struct {
	maxWords int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxWords sets the maximum words per chunk. Non-positive values are ignored.
func WithMaxWords(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxWords = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{maxWords: DefaultMaxWords}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxWords returns the configured chunk size.
func (c *Chunker) MaxWords() int {
	return c.maxWords
}

// Chunk splits the document content into chunks indexed from 0.
// Vectors are left nil.
func (c *Chunker) Chunk(doc *core.Document) []core.Chunk {
	segments := Split(doc.Content, c.maxWords)
	if len(segments) == 0 {
		return nil
	}

	chunks := make([]core.Chunk, len(segments))
	for i, text := range segments {
		chunks[i] = core.Chunk{
			DocumentKey: doc.Key,
			Index:       i,
			Text:        text,
		}
	}
	return chunks
}
