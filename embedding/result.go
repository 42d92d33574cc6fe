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

package embedding

import (
	"errors"
	"fmt"

	"github.com/poiesic/papertrail/core"
)

// Result is the outcome of EmbedBatch.
//
// On success Err is nil and Vectors has one entry per input; entries listed
// in Rejected are nil. On failure Vectors holds the completed prefix of the
// input, so a caller can persist those and resume from len(Vectors).
type Result struct {
	Vectors  [][]float32
	Rejected []int
	Attempts int
	Err      *BatchError
}

// OK reports whether every sub-batch completed.
func (r Result) OK() bool {
	return r.Err == nil
}

// AsError returns Err as an error value, nil on success.
func (r Result) AsError() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

// BatchError describes why a batch stopped.
type BatchError struct {
	Kind     core.ErrorKind
	Attempts int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("embedding batch failed (%s) after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind, so errors.Is works even when
// Err was not wrapped with it.
func (e *BatchError) Is(target error) bool {
	sentinel := e.Kind.Sentinel()
	return sentinel != nil && errors.Is(sentinel, target)
}
