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

// Package ai provides abstractions for the model services papertrail depends on.
//
// The core pipeline never talks to a model API directly. It depends on the
// interfaces defined here:
//
//   - Embedder: turns text into dense vectors
//   - Generator: turns a question plus retrieved passages into an answer
//   - AIProvider: aggregates both for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: OpenAI and OpenAI-compatible APIs (go-openai for embeddings,
//     langchaingo for chat generation)
//   - ai/mock: test doubles for unit testing without external services
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, ...) return
// INTERFACE types so callers cannot couple themselves to one implementation.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Test constructors (mock.NewMockEmbedder, mock.NewMockGenerator) return
// CONCRETE types so tests can inject behavior and assert on call counts.
//
//	mockEmbed := mock.NewMockEmbedder()
//	mockEmbed.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) { ... }
//	count := mockEmbed.CallCount()
//
// # Errors
//
// Embedder implementations classify failures with the core taxonomy:
// core.ErrProviderUnavailable for transient failures that are worth
// retrying, core.ErrProviderRejected for inputs the provider will never
// accept. Callers test with errors.Is.
package ai
