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

package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/papertrail/ai"
	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/metrics"
)

const (
	DefaultMaxBatchSize   = 100
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = time.Second
	DefaultMaxInputTokens = 8100
	DefaultTruncateStep   = 500
	DefaultRateLimitPause = 10 * time.Second
)

var (
	ErrEmbedderRequired = errors.New("embedder is required")
	ErrBudgetRequired   = errors.New("rate budget is required")
)

// Config tunes batching, truncation and retry behavior.
type Config struct {
	// MaxBatchSize caps the number of texts per provider call.
	MaxBatchSize int
	// MaxAttempts bounds calls per sub-batch, including the first.
	MaxAttempts int
	// BaseDelay is the first backoff; each retry doubles it.
	BaseDelay time.Duration
	// MaxInputTokens is the provider's per-input limit.
	MaxInputTokens int
	// TruncateStep is how many trailing words each truncation pass drops.
	TruncateStep int
	// RateLimitPause stops every caller after the provider reports a rate limit.
	RateLimitPause time.Duration
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:   DefaultMaxBatchSize,
		MaxAttempts:    DefaultMaxAttempts,
		BaseDelay:      DefaultBaseDelay,
		MaxInputTokens: DefaultMaxInputTokens,
		TruncateStep:   DefaultTruncateStep,
		RateLimitPause: DefaultRateLimitPause,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = d.MaxBatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxInputTokens <= 0 {
		c.MaxInputTokens = d.MaxInputTokens
	}
	if c.TruncateStep <= 0 {
		c.TruncateStep = d.TruncateStep
	}
	if c.RateLimitPause < 0 {
		c.RateLimitPause = 0
	}
}

// Client turns texts into unit vectors through an ai.Embedder, sharing a
// rate Budget with every other client built on the same budget.
// Safe for concurrent use.
type Client struct {
	embedder ai.Embedder
	budget   *Budget
	counter  TokenCounter
	config   Config
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithConfig replaces the default configuration. Zero fields keep defaults.
func WithConfig(cfg Config) Option {
	return func(c *Client) error {
		cfg.applyDefaults()
		c.config = cfg
		return nil
	}
}

// WithTokenCounter sets the counter used for truncation and token budgeting.
func WithTokenCounter(counter TokenCounter) Option {
	return func(c *Client) error {
		if counter == nil {
			return errors.New("token counter cannot be nil")
		}
		c.counter = counter
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// NewClient creates a Client. The budget is required so that every call
// site in a process draws on the same limits.
func NewClient(embedder ai.Embedder, budget *Budget, opts ...Option) (*Client, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if budget == nil {
		return nil, ErrBudgetRequired
	}

	c := &Client{
		embedder: embedder,
		budget:   budget,
		counter:  WordCounter{},
		config:   DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "embedding-client")
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// EmbedBatch embeds texts, returning vectors in input order.
// See Result for how partial progress is reported.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) Result {
	result := Result{Vectors: make([][]float32, 0, len(texts))}
	if len(texts) == 0 {
		return result
	}

	inputs, tokens := c.prepare(texts)

	for _, batch := range c.split(tokens) {
		batchTokens := 0
		for _, n := range tokens[batch.start:batch.end] {
			batchTokens += n
		}

		vectors, attempts, err := c.embedWithRetry(ctx, inputs[batch.start:batch.end], batchTokens)
		result.Attempts += attempts

		switch {
		case err == nil:
			result.Vectors = append(result.Vectors, vectors...)

		case core.KindOf(err) == core.KindProviderRejected && batch.end-batch.start == 1:
			c.reject(&result, batch.start, tokens[batch.start], err)

		case core.KindOf(err) == core.KindProviderRejected:
			if !c.isolate(ctx, inputs, tokens, batch, &result) {
				return result
			}

		default:
			result.Err = &BatchError{Kind: core.KindOf(err), Attempts: attempts, Err: err}
			return result
		}
	}
	return result
}

// EmbedQuery embeds a single text as a one-item batch.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	result := c.EmbedBatch(ctx, []string{text})
	if err := result.AsError(); err != nil {
		return nil, err
	}
	if len(result.Rejected) > 0 {
		return nil, fmt.Errorf("%w: query text", core.ErrProviderRejected)
	}
	return result.Vectors[0], nil
}

// isolate re-embeds a rejected sub-batch one item at a time so only the
// offending inputs are dropped. It returns false if a non-rejection error
// ended the batch; result.Err is set in that case.
func (c *Client) isolate(ctx context.Context, inputs []string, tokens []int, s span, result *Result) bool {
	c.logger.Debug("sub-batch rejected, isolating items", "size", s.end-s.start)
	for i := s.start; i < s.end; i++ {
		vectors, attempts, err := c.embedWithRetry(ctx, inputs[i:i+1], tokens[i])
		result.Attempts += attempts

		switch {
		case err == nil:
			result.Vectors = append(result.Vectors, vectors[0])
		case core.KindOf(err) == core.KindProviderRejected:
			c.reject(result, i, tokens[i], err)
		default:
			result.Err = &BatchError{Kind: core.KindOf(err), Attempts: attempts, Err: err}
			return false
		}
	}
	return true
}

func (c *Client) reject(result *Result, index, tokens int, err error) {
	c.logger.Warn("provider rejected input, skipping", "index", index, "tokens", tokens, "err", err)
	result.Vectors = append(result.Vectors, nil)
	result.Rejected = append(result.Rejected, index)
}

// prepare truncates every input and counts its tokens.
func (c *Client) prepare(texts []string) ([]string, []int) {
	inputs := make([]string, len(texts))
	tokens := make([]int, len(texts))
	for i, text := range texts {
		truncated, cut := Truncate(text, c.config.MaxInputTokens, c.config.TruncateStep, c.counter)
		if cut {
			metrics.EmbeddingTruncationsTotal.Inc()
			c.logger.Debug("truncated input", "index", i, "max_tokens", c.config.MaxInputTokens)
		}
		inputs[i] = truncated
		tokens[i] = c.counter.CountTokens(truncated)
	}
	return inputs, tokens
}

type span struct {
	start, end int
}

// split groups consecutive inputs into sub-batches bounded by MaxBatchSize
// and by the budget's token burst. Every span holds at least one input.
func (c *Client) split(tokens []int) []span {
	limit := c.budget.TokenBurst()

	var spans []span
	start, sum := 0, 0
	for i, n := range tokens {
		size := i - start
		if size > 0 && (size >= c.config.MaxBatchSize || (limit > 0 && sum+n > limit)) {
			spans = append(spans, span{start, i})
			start, sum = i, 0
		}
		sum += n
	}
	return append(spans, span{start, len(tokens)})
}

// embedWithRetry calls the provider with exponential backoff on transient
// failures. Every returned error is classified by core.KindOf.
func (c *Client) embedWithRetry(ctx context.Context, inputs []string, tokens int) ([][]float32, int, error) {
	for attempt := 1; ; attempt++ {
		if err := c.budget.Wait(ctx, tokens); err != nil {
			return nil, attempt - 1, err
		}

		start := time.Now()
		vectors, err := c.embedder.EmbedTexts(ctx, inputs)
		metrics.EmbeddingRequestDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			err = checkVectors(vectors, len(inputs))
		}

		if err == nil {
			metrics.EmbeddingRequestsTotal.WithLabelValues("ok").Inc()
			metrics.EmbeddingTokensTotal.Add(float64(tokens))
			if attempt > 1 {
				c.logger.Debug("embedding succeeded after retry", "attempt", attempt)
			}
			normalized := make([][]float32, len(vectors))
			for i, v := range vectors {
				normalized[i] = core.NormalizeVector(v)
			}
			return normalized, attempt, nil
		}

		kind := core.KindOf(err)
		if kind == core.KindUnknown {
			err = fmt.Errorf("%w: %w", core.ErrProviderUnavailable, err)
			kind = core.KindProviderUnavailable
		}
		metrics.EmbeddingRequestsTotal.WithLabelValues(kind.String()).Inc()

		if kind != core.KindProviderUnavailable || errors.Is(err, ai.ErrAccessDenied) || attempt >= c.config.MaxAttempts {
			return nil, attempt, err
		}

		if errors.Is(err, ai.ErrRateLimited) && c.config.RateLimitPause > 0 {
			c.budget.Pause(c.config.RateLimitPause)
		}

		delay := c.config.BaseDelay << (attempt - 1)
		metrics.EmbeddingRetriesTotal.Inc()
		c.logger.Debug("embedding failed, will retry",
			"attempt", attempt, "maxAttempts", c.config.MaxAttempts, "delay", delay, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, attempt, ctx.Err()
		case <-timer.C:
		}
	}
}

// checkVectors rejects malformed provider output. A count mismatch is
// transient; a non-finite or empty vector means the input cannot be embedded.
func checkVectors(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("%w: expected %d vectors, received %d", core.ErrProviderUnavailable, want, len(vectors))
	}
	for i, v := range vectors {
		if err := core.ValidateVector(v); err != nil {
			return fmt.Errorf("%w: vector %d: %w", core.ErrProviderRejected, i, err)
		}
	}
	return nil
}
