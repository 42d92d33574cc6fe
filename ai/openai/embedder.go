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

package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/papertrail/ai"
	"github.com/poiesic/papertrail/core"
	oai "github.com/sashabaranov/go-openai"
)

// Embedder implements ai.Embedder against the OpenAI embeddings endpoint.
type Embedder struct {
	client     *oai.Client
	model      oai.EmbeddingModel
	dimensions int
	logger     *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clientCfg := oai.DefaultConfig(config.Token())
	clientCfg.BaseURL = config.EmbeddingHost

	return &Embedder{
		client:     oai.NewClientWithConfig(clientCfg),
		model:      oai.EmbeddingModel(config.EmbeddingModel),
		dimensions: config.EmbeddingDimensions,
		logger:     slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a single request.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	input := make([]string, len(texts))
	for i, text := range texts {
		input[i] = stripNewLines(text)
	}

	req := oai.EmbeddingRequest{
		Input:          input,
		Model:          e.model,
		EncodingFormat: oai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, classifyError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, received %d",
			core.ErrProviderUnavailable, len(texts), len(resp.Data))
	}

	// The API reports each vector's input position; do not rely on response order.
	data := slices.Clone(resp.Data)
	slices.SortFunc(data, func(a, b oai.Embedding) int { return a.Index - b.Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}

	e.logger.Debug("embeddings generated", "count", len(vectors), "prompt_tokens", resp.Usage.PromptTokens)
	return vectors, nil
}

// classifyError maps a go-openai error onto the core failure taxonomy.
// Rate limits, timeouts, server errors and transport failures are transient.
// Credential, permission and unknown-model statuses fail the whole call;
// every other HTTP status means the provider will not accept this input.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	status := 0
	var apiErr *oai.APIError
	var reqErr *oai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == 429:
		return fmt.Errorf("%w: %w: %w", core.ErrProviderUnavailable, ai.ErrRateLimited, err)
	case status == 401, status == 403, status == 404:
		return fmt.Errorf("%w: %w: status %d: %w", core.ErrProviderUnavailable, ai.ErrAccessDenied, status, err)
	case status == 0, status == 408, status >= 500:
		return fmt.Errorf("%w: %w", core.ErrProviderUnavailable, err)
	default:
		return fmt.Errorf("%w: status %d: %w", core.ErrProviderRejected, status, err)
	}
}
