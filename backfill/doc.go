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

// Package backfill embeds stored chunks that are still missing a vector.
//
// The backlog is consumed as a lazy, restartable sequence: an Iterator pulls
// one batch at a time through FetchChunksMissingEmbedding, leasing the chunks
// it hands out so concurrent backfills and pipeline runs never embed the
// same chunk twice. After each batch the Backfiller saves the cursor in the
// checkpoint repository; a restarted backfill continues from there instead of
// rescanning the store.
//
// Truncation, batching, rate limiting and retries all belong to the
// embedding client passed in.
package backfill
