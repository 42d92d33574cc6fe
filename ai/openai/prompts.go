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

package openai

import "strings"

const systemPrompt = "You are a helpful assistant named the Virtual Factory Platform. " +
	"You are designed to help users answer any questions they may have regarding lithium-ion batteries and related topics. " +
	"Provide the most accurate and helpful response you can."

// buildUserPrompt wraps each passage in triple quotes ahead of the question.
func buildUserPrompt(question string, contexts []string) string {
	var sb strings.Builder
	sb.WriteString(`Relevant Documents: """`)
	sb.WriteString(strings.Join(contexts, `"""`))
	sb.WriteString(`"""`)
	sb.WriteString(" \n\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}
