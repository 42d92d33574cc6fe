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
	"context"

	"github.com/poiesic/papertrail/core"
)

// job is one document moving through the pipeline. doc is nil when the job
// comes from Resume and the content already lives in the store.
type job struct {
	key      string
	doc      *core.Document
	chunks   int
	rechunk  bool
	embedded int
	rejected []int
}

// processor runs one stage of the per-document state machine.
type processor interface {
	// stage is the state the document is in while the processor runs.
	stage() core.Stage

	// process does the stage's work for j, recording its results on j.
	process(ctx context.Context, j *job) error
}
