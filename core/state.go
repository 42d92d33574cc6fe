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

package core

import "time"

// Stage is a step of the per-document ingestion state machine.
type Stage int

const (
	// StagePending means the document has been seen but no work has finished.
	StagePending Stage = iota
	// StageChunking means chunks are being produced and stored.
	StageChunking
	// StageEmbedding means stored chunks are being embedded.
	StageEmbedding
	// StagePersisted is terminal success.
	StagePersisted
	// StageFailed is terminal failure; see DocumentState.LastCompleted.
	StageFailed
)

var stageNames = map[Stage]string{
	StagePending:   "PENDING",
	StageChunking:  "CHUNKING",
	StageEmbedding: "EMBEDDING",
	StagePersisted: "PERSISTED",
	StageFailed:    "FAILED",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transition happens within a run.
func (s Stage) Terminal() bool {
	return s == StagePersisted || s == StageFailed
}

// DocumentState tracks one document's progress through the pipeline.
type DocumentState struct {
	DocumentKey   string
	RunID         string
	Stage         Stage
	LastCompleted Stage // Last stage that finished; StagePending if none did
	Partial       bool  // Persisted, but some chunks were rejected by the provider
	Rejected      []int // Indices of chunks the provider rejected
	Error         string
	Attempts      int
	UpdatedAt     time.Time
}

// Checkpoint stores the resume position of a long-running processor.
type Checkpoint struct {
	ProcessorType string
	Cursor        ChunkRef
	Processed     int
	UpdatedAt     time.Time
}
