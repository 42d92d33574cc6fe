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

// Package search answers questions from the ingested corpus.
//
// A Retriever embeds a query through the embedding client and asks the store
// for the most similar chunks. Similarity is cosine over unit vectors, so
// identical texts score 1. Results are ranked by score descending with ties
// broken by document key then chunk index, and an optional per-document cap
// keeps one long paper from filling the whole result list.
//
// BuildContext turns ranked chunks into generator passages under a word
// budget, and Answerer ties retrieval and generation together:
//
//	retriever, _ := search.NewRetriever(store, embeddingClient)
//	answerer, _ := search.NewAnswerer(retriever, provider.Generator(), search.AnswerConfig{})
//	answer, err := answerer.Answer(ctx, "What causes capacity fade in NMC cathodes?")
//
// A store failure is returned as an error; retrieval never reports an empty
// result set in its place.
package search
