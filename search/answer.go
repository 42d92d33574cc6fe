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

package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/papertrail/ai"
	"github.com/poiesic/papertrail/core"
)

// AnswerConfig controls how much context an answer is grounded in.
type AnswerConfig struct {
	TopK            int
	MaxPerDocument  int
	MaxContextWords int
}

// Answer is a generated answer with the passages it was grounded in.
type Answer struct {
	Question string
	Text     string
	Sources  []*core.ScoredChunk
	// Passages is the number of sources that fit in the context window.
	Passages int
}

// Answerer retrieves context for a question and hands it to a generator.
type Answerer struct {
	retriever *Retriever
	generator ai.Generator
	config    AnswerConfig
	logger    *slog.Logger
}

// NewAnswerer creates an Answerer. Zero config fields take the defaults.
func NewAnswerer(retriever *Retriever, generator ai.Generator, config AnswerConfig) (*Answerer, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	if config.MaxContextWords <= 0 {
		config.MaxContextWords = DefaultMaxContextWords
	}
	return &Answerer{
		retriever: retriever,
		generator: generator,
		config:    config,
		logger:    retriever.logger.With("component", "answerer"),
	}, nil
}

// Answer answers question from the stored corpus.
func (a *Answerer) Answer(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuery
	}

	results, err := a.retriever.Retrieve(ctx, question, a.config.TopK, a.config.MaxPerDocument)
	if err != nil {
		return nil, err
	}

	passages := BuildContext(results, a.config.MaxContextWords)
	a.logger.Debug("generating answer", "retrieved", len(results), "passages", len(passages))

	text, err := a.generator.Generate(ctx, question, passages)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &Answer{
		Question: question,
		Text:     text,
		Sources:  results[:len(passages)],
		Passages: len(passages),
	}, nil
}
