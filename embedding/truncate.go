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
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tokenizer used by OpenAI embedding models.
const DefaultEncoding = "cl100k_base"

// TokenCounter measures text in provider tokens.
type TokenCounter interface {
	CountTokens(text string) int
}

// WordCounter approximates tokens by counting whitespace-separated words.
type WordCounter struct{}

func (WordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

// TiktokenCounter counts tokens with a BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding. The BPE ranks are fetched
// and cached by tiktoken-go on first use.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) CountTokens(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Truncate shortens text until counter reports at most maxTokens.
// Trailing words are dropped step at a time, then one at a time; the first
// word is always kept. Text that already fits is returned unchanged.
func Truncate(text string, maxTokens, step int, counter TokenCounter) (string, bool) {
	if maxTokens <= 0 || counter.CountTokens(text) <= maxTokens {
		return text, false
	}
	if step <= 0 {
		step = 1
	}

	words := strings.Fields(text)
	for len(words) > step {
		words = words[:len(words)-step]
		if counter.CountTokens(strings.Join(words, " ")) <= maxTokens {
			return strings.Join(words, " "), true
		}
	}
	for len(words) > 1 {
		words = words[:len(words)-1]
		if counter.CountTokens(strings.Join(words, " ")) <= maxTokens {
			break
		}
	}
	return strings.Join(words, " "), true
}
