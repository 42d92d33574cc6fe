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

package search

import (
	"fmt"
	"strings"

	"github.com/poiesic/papertrail/core"
)

// DefaultMaxContextWords bounds the words handed to the generator.
const DefaultMaxContextWords = 30000

// FormatPassage renders one retrieved chunk for the generator.
func FormatPassage(result *core.ScoredChunk) string {
	return fmt.Sprintf("Title of the paper: %s, Authors of the paper: %s, Content of the paper: %s",
		result.Title, strings.Join(result.Authors, ", "), result.Chunk.Text)
}

// BuildContext formats results in rank order and stops at the first passage
// that would bring the total to maxWords or more. maxWords <= 0 uses
// DefaultMaxContextWords.
func BuildContext(results []*core.ScoredChunk, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultMaxContextWords
	}

	var passages []string
	words := 0
	for _, result := range results {
		passage := FormatPassage(result)
		n := len(strings.Fields(passage))
		if words+n >= maxWords {
			break
		}
		passages = append(passages, passage)
		words += n
	}
	return passages
}
