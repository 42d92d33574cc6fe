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

import (
	"fmt"
	"math"
	"time"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Key must not be empty
//   - AcquiredAt must not be in the future
//
// Empty content is valid and yields a document without chunks.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Key == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyKey)
	}

	if !IsValidTimestamp(doc.AcquiredAt) {
		return fmt.Errorf("%w: acquisition time cannot be in the future", ErrInvalidDocument)
	}

	return nil
}

// ValidateVector checks that v is non-empty and every component is finite.
func ValidateVector(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidVector)
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is %v", ErrInvalidVector, i, x)
		}
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
// Zero timestamps are considered valid.
// Allows a small tolerance (1 second) for clock skew.
func IsValidTimestamp(t time.Time) bool {
	if t.IsZero() {
		return true
	}
	return !t.After(time.Now().Add(time.Second))
}
