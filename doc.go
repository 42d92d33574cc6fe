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

// Package papertrail answers questions about a corpus of research papers
// with retrieval-augmented generation.
//
// Documents are split into word-bounded chunks, embedded through an
// OpenAI-compatible provider and stored in BadgerDB. At question time the
// most similar chunks are retrieved, assembled into context and handed to a
// chat model.
//
// Engine is the entry point:
//
//	engine, err := papertrail.Open(cfg)
//	if err != nil { ... }
//	defer engine.Close()
//
//	pipeline, _ := engine.NewIngestionPipeline()
//	defer pipeline.Release()
//	report, err := pipeline.Run(ctx, ingestion.NewJSONLSource(feed))
//
//	answerer, _ := engine.NewAnswerer()
//	answer, err := answerer.Answer(ctx, "Which cathode coatings reduce capacity fade?")
package papertrail
