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

package mock

import (
	"context"
	"fmt"
	"sync"
)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, question string, contexts []string) (string, error)

	mu           sync.Mutex
	callCount    int
	lastContexts []string
}

// NewMockGenerator creates a mock generator with default echo behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate records the passages and returns a canned answer.
func (m *MockGenerator) Generate(ctx context.Context, question string, contexts []string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastContexts = append([]string(nil), contexts...)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, question, contexts)
	}
	return fmt.Sprintf("answer to %q from %d passages", question, len(contexts)), nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastContexts returns the passages given to the most recent call.
func (m *MockGenerator) LastContexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastContexts
}

// Reset clears the call count and custom function.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastContexts = nil
	m.GenerateFunc = nil
}
