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

package ai

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when a provider answers without content.
	ErrEmptyResponse = errors.New("provider returned an empty response")

	// ErrRateLimited marks a provider refusal caused by rate limiting. It is
	// always wrapped together with core.ErrProviderUnavailable.
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrAccessDenied marks a refusal that no input or retry can fix: bad
	// credentials, missing permissions or an unknown model. It is wrapped
	// together with core.ErrProviderUnavailable and is never retried.
	ErrAccessDenied = errors.New("provider denied access")
)

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Errors wrap core.ErrProviderUnavailable or core.ErrProviderRejected when
	// the failure can be classified.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces an answer to a question grounded in retrieved passages.
// It is the external generation collaborator: prompt construction beyond the
// passages themselves is the implementation's business.
type Generator interface {
	// Generate answers question using contexts, in ranked order.
	Generate(ctx context.Context, question string, contexts []string) (string, error)
}

// AIProvider aggregates model services for initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the answer generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	Close() error
}
