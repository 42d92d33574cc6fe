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

package ingestion

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/papertrail/core"
)

// Failure is a document that ended the run FAILED.
type Failure struct {
	DocumentKey string
	// Stage is the stage that was running when the document failed.
	Stage         core.Stage
	LastCompleted core.Stage
	Kind          core.ErrorKind
	Err           error
}

// Report aggregates the outcome of one Run or Resume.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Documents      int
	Persisted      int
	Partial        int // Persisted with rejected chunks; included in Persisted
	Failed         int
	Rechunked      int
	ChunksEmbedded int
	ChunksRejected int

	Failures []Failure

	mu sync.Mutex
}

func newReport(runID string) *Report {
	return &Report{RunID: runID, StartedAt: time.Now().UTC()}
}

func (r *Report) addPersisted(j *job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Documents++
	r.Persisted++
	if len(j.rejected) > 0 {
		r.Partial++
	}
	r.count(j)
}

func (r *Report) addFailure(j *job, f Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Documents++
	r.Failed++
	r.Failures = append(r.Failures, f)
	r.count(j)
}

func (r *Report) count(j *job) {
	if j.rechunk {
		r.Rechunked++
	}
	r.ChunksEmbedded += j.embedded
	r.ChunksRejected += len(j.rejected)
}

func (r *Report) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now().UTC()
	slices.SortFunc(r.Failures, func(a, b Failure) int {
		switch {
		case a.DocumentKey < b.DocumentKey:
			return -1
		case a.DocumentKey > b.DocumentKey:
			return 1
		}
		return 0
	})
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// HasFailures reports whether any document ended FAILED.
func (r *Report) HasFailures() bool {
	return r.Failed > 0
}

func (r *Report) String() string {
	return fmt.Sprintf("run %s: %d documents, %d persisted (%d partial), %d failed, %d chunks embedded, %d rejected in %s",
		r.RunID, r.Documents, r.Persisted, r.Partial, r.Failed, r.ChunksEmbedded, r.ChunksRejected, r.Duration().Round(time.Millisecond))
}
