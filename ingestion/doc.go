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

// Package ingestion drives documents from a Source into the store.
//
// Each document moves through PENDING, CHUNKING, EMBEDDING and ends PERSISTED
// or FAILED; the state, including the last stage that completed, is saved in
// the StateRepository at every transition. Documents run concurrently on an
// ants worker pool and fail independently: the Report lists every failure
// and the run goes on. Only a store outage stops a run.
//
// Re-running is cheap. Unchanged documents keep their stored chunks and only
// chunks still missing a vector are embedded, so Resume after a provider
// outage picks up exactly where the embedding stage stopped.
package ingestion
