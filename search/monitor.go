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
	"log/slog"
	"time"

	"github.com/poiesic/papertrail/core"
)

// RetrievalMonitor observes the stages of a retrieval.
type RetrievalMonitor interface {
	Start(query string)
	AfterQueryEmbedding(dimensions int, elapsed time.Duration)
	AfterSimilaritySearch(hits int, elapsed time.Duration)
	Finish(results []*core.ScoredChunk)
}

// noopMonitor is a no-op implementation of RetrievalMonitor
type noopMonitor struct{}

var _ RetrievalMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                               {}
func (n *noopMonitor) AfterQueryEmbedding(_ int, _ time.Duration)   {}
func (n *noopMonitor) AfterSimilaritySearch(_ int, _ time.Duration) {}
func (n *noopMonitor) Finish(_ []*core.ScoredChunk)                 {}

// LogMonitor reports each stage at debug level.
type LogMonitor struct {
	Logger *slog.Logger
}

var _ RetrievalMonitor = (*LogMonitor)(nil)

func (m *LogMonitor) Start(query string) {
	m.Logger.Debug("retrieval started", "query", query)
}

func (m *LogMonitor) AfterQueryEmbedding(dimensions int, elapsed time.Duration) {
	m.Logger.Debug("query embedded", "dimensions", dimensions, "elapsed", elapsed)
}

func (m *LogMonitor) AfterSimilaritySearch(hits int, elapsed time.Duration) {
	m.Logger.Debug("similarity search done", "hits", hits, "elapsed", elapsed)
}

func (m *LogMonitor) Finish(results []*core.ScoredChunk) {
	if len(results) == 0 {
		m.Logger.Debug("retrieval finished without results")
		return
	}
	m.Logger.Debug("retrieval finished", "results", len(results), "best", results[0].Score)
}
