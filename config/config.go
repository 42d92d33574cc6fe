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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/poiesic/papertrail/ai"
	"github.com/poiesic/papertrail/embedding"
	"gopkg.in/yaml.v3"
)

// Config is the papertrail configuration file.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Provider  ProviderConfig  `yaml:"provider"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Backfill  BackfillConfig  `yaml:"backfill"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// StoreConfig holds the Badger store location.
type StoreConfig struct {
	Path     string        `yaml:"path"`
	InMemory bool          `yaml:"in_memory"`
	ClaimTTL time.Duration `yaml:"claim_ttl"` // lease on chunks handed out for embedding
}

// ProviderConfig holds the OpenAI-compatible endpoints.
type ProviderConfig struct {
	EmbeddingHost       string  `yaml:"embedding_host"`
	GenerationHost      string  `yaml:"generation_host"`
	APIKey              string  `yaml:"api_key"`
	EmbeddingModel      string  `yaml:"embedding_model"`
	EmbeddingDimensions int     `yaml:"embedding_dimensions"`
	GenerationModel     string  `yaml:"generation_model"`
	Temperature         float64 `yaml:"temperature"`
}

// EmbeddingConfig holds batching, truncation, retry and rate-limit settings.
type EmbeddingConfig struct {
	MaxBatchSize   int           `yaml:"max_batch_size"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxInputTokens int           `yaml:"max_input_tokens"`
	TruncateStep   int           `yaml:"truncate_step"`
	Tokenizer      string        `yaml:"tokenizer"` // tiktoken (default) or words
	Encoding       string        `yaml:"encoding"`
	RateLimitPause time.Duration `yaml:"rate_limit_pause"`

	RequestsPerMinute float64 `yaml:"requests_per_minute"` // 0 = unlimited
	TokensPerMinute   float64 `yaml:"tokens_per_minute"`   // 0 = unlimited
	RequestBurst      int     `yaml:"request_burst"`
	TokenBurst        int     `yaml:"token_burst"`
}

// IngestionConfig holds pipeline settings.
type IngestionConfig struct {
	ChunkWords     int `yaml:"chunk_words"`
	Workers        int `yaml:"workers"`
	EmbedBatchSize int `yaml:"embed_batch_size"`
}

// BackfillConfig holds settings of the pending-embedding backfill.
type BackfillConfig struct {
	BatchSize int           `yaml:"batch_size"`
	Delay     time.Duration `yaml:"delay"`
}

// RetrievalConfig holds query defaults.
type RetrievalConfig struct {
	TopK            int `yaml:"top_k"`
	MaxPerDocument  int `yaml:"max_per_document"` // 0 = no cap
	MaxContextWords int `yaml:"max_context_words"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig holds the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables /metrics
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. ${VAR} and ${VAR:-default}
// are replaced with environment values before parsing. An empty path
// returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	data = expandEnvVars(data)

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Store.Path == "" && !c.Store.InMemory {
		c.Store.Path = "./papertrail_db"
	}
	if c.Store.ClaimTTL <= 0 {
		c.Store.ClaimTTL = 5 * time.Minute
	}

	if c.Provider.EmbeddingHost == "" {
		c.Provider.EmbeddingHost = ai.DefaultHost
	}
	if c.Provider.GenerationHost == "" {
		c.Provider.GenerationHost = c.Provider.EmbeddingHost
	}
	if c.Provider.EmbeddingModel == "" {
		c.Provider.EmbeddingModel = ai.DefaultEmbeddingModel
		if c.Provider.EmbeddingDimensions == 0 {
			c.Provider.EmbeddingDimensions = ai.DefaultEmbeddingDimensions
		}
	}
	if c.Provider.GenerationModel == "" {
		c.Provider.GenerationModel = ai.DefaultGenerationModel
	}

	d := embedding.DefaultConfig()
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = d.MaxBatchSize
	}
	if c.Embedding.MaxAttempts <= 0 {
		c.Embedding.MaxAttempts = d.MaxAttempts
	}
	if c.Embedding.BaseDelay <= 0 {
		c.Embedding.BaseDelay = d.BaseDelay
	}
	if c.Embedding.MaxInputTokens <= 0 {
		c.Embedding.MaxInputTokens = d.MaxInputTokens
	}
	if c.Embedding.TruncateStep <= 0 {
		c.Embedding.TruncateStep = d.TruncateStep
	}
	if c.Embedding.Tokenizer == "" {
		c.Embedding.Tokenizer = "tiktoken"
	}
	if c.Embedding.Encoding == "" {
		c.Embedding.Encoding = embedding.DefaultEncoding
	}
	if c.Embedding.RateLimitPause <= 0 {
		c.Embedding.RateLimitPause = d.RateLimitPause
	}
	// One maximal input must fit a single burst.
	if c.Embedding.TokenBurst <= 0 && c.Embedding.TokensPerMinute > 0 {
		c.Embedding.TokenBurst = max(int(c.Embedding.TokensPerMinute/60), c.Embedding.MaxInputTokens)
	}

	if c.Ingestion.ChunkWords <= 0 {
		c.Ingestion.ChunkWords = 1000
	}
	if c.Ingestion.Workers <= 0 {
		c.Ingestion.Workers = 4
	}
	if c.Ingestion.EmbedBatchSize <= 0 {
		c.Ingestion.EmbedBatchSize = c.Embedding.MaxBatchSize
	}

	if c.Backfill.BatchSize <= 0 {
		c.Backfill.BatchSize = 500
	}
	if c.Backfill.Delay < 0 {
		c.Backfill.Delay = 0
	}

	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 20
	}
	if c.Retrieval.MaxContextWords <= 0 {
		c.Retrieval.MaxContextWords = 30000
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	var errs []error
	if !c.Store.InMemory && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required unless store.in_memory is set"))
	}
	if c.Provider.EmbeddingDimensions < 0 {
		errs = append(errs, fmt.Errorf("provider.embedding_dimensions cannot be negative, got %d", c.Provider.EmbeddingDimensions))
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, fmt.Errorf("provider.temperature must be between 0 and 2, got %g", c.Provider.Temperature))
	}
	switch c.Embedding.Tokenizer {
	case "tiktoken", "words":
	default:
		errs = append(errs, fmt.Errorf("embedding.tokenizer must be \"tiktoken\" or \"words\", got %q", c.Embedding.Tokenizer))
	}
	if c.Embedding.RequestsPerMinute < 0 || c.Embedding.TokensPerMinute < 0 {
		errs = append(errs, errors.New("embedding rate limits cannot be negative"))
	}
	if c.Embedding.TokenBurst > 0 && c.Embedding.TokenBurst < c.Embedding.MaxInputTokens {
		errs = append(errs, fmt.Errorf("embedding.token_burst (%d) must be at least max_input_tokens (%d)",
			c.Embedding.TokenBurst, c.Embedding.MaxInputTokens))
	}
	if c.Retrieval.MaxPerDocument < 0 {
		errs = append(errs, fmt.Errorf("retrieval.max_per_document cannot be negative, got %d", c.Retrieval.MaxPerDocument))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// AIConfig returns the provider settings as an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Provider.EmbeddingHost),
		ai.WithGenerationHost(c.Provider.GenerationHost),
		ai.WithAPIKey(c.Provider.APIKey),
		ai.WithEmbeddingModel(c.Provider.EmbeddingModel),
		ai.WithEmbeddingDimensions(c.Provider.EmbeddingDimensions),
		ai.WithGenerationModel(c.Provider.GenerationModel),
		ai.WithTemperature(c.Provider.Temperature),
	)
}

// ClientConfig returns the embedding client settings.
func (c *Config) ClientConfig() embedding.Config {
	return embedding.Config{
		MaxBatchSize:   c.Embedding.MaxBatchSize,
		MaxAttempts:    c.Embedding.MaxAttempts,
		BaseDelay:      c.Embedding.BaseDelay,
		MaxInputTokens: c.Embedding.MaxInputTokens,
		TruncateStep:   c.Embedding.TruncateStep,
		RateLimitPause: c.Embedding.RateLimitPause,
	}
}

// BudgetConfig returns the shared rate budget settings.
func (c *Config) BudgetConfig() embedding.BudgetConfig {
	return embedding.BudgetConfig{
		RequestsPerMinute: c.Embedding.RequestsPerMinute,
		TokensPerMinute:   c.Embedding.TokensPerMinute,
		RequestBurst:      c.Embedding.RequestBurst,
		TokenBurst:        c.Embedding.TokenBurst,
	}
}

// TokenCounter builds the configured token counter.
func (c *Config) TokenCounter() (embedding.TokenCounter, error) {
	if c.Embedding.Tokenizer == "words" {
		return embedding.WordCounter{}, nil
	}
	counter, err := embedding.NewTiktokenCounter(c.Embedding.Encoding)
	if err != nil {
		return nil, err
	}
	return counter, nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
