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
	"cmp"
	"container/heap"
	"slices"
)

// Rank orders candidates by score descending, breaking ties by
// (document key, chunk index) ascending, then keeps at most topK of them.
// When maxPerDocument is positive, a greedy pass drops any candidate whose
// document already contributed maxPerDocument higher-ranked results; the
// relative order of retained candidates is unchanged. The candidates slice
// is sorted in place.
func Rank(candidates []*ScoredChunk, topK, maxPerDocument int) []*ScoredChunk {
	if topK <= 0 || len(candidates) == 0 {
		return nil
	}

	slices.SortFunc(candidates, compareRank)

	results := make([]*ScoredChunk, 0, min(topK, len(candidates)))
	perDocument := make(map[string]int)
	for _, candidate := range candidates {
		if len(results) == topK {
			break
		}
		key := candidate.Chunk.DocumentKey
		if maxPerDocument > 0 && perDocument[key] >= maxPerDocument {
			continue
		}
		perDocument[key]++
		results = append(results, candidate)
	}
	return results
}

// compareRank orders a before b when a ranks higher.
func compareRank(a, b *ScoredChunk) int {
	return compareKeys(rankKey{a.Score, a.Chunk.Ref()}, rankKey{b.Score, b.Chunk.Ref()})
}

type rankKey struct {
	score float32
	ref   ChunkRef
}

func compareKeys(a, b rankKey) int {
	if c := cmp.Compare(b.score, a.score); c != 0 {
		return c
	}
	return a.ref.Compare(b.ref)
}

// TopK collects the same results as Rank from a stream of candidates while
// holding at most topK of them. With a per-document cap it also remembers
// the scores of each document's best maxPerDocument chunks.
type TopK struct {
	topK           int
	maxPerDocument int
	heap           rankHeap
	held           map[ChunkRef]*rankItem
	perDocument    map[string][]rankKey // best first, at most maxPerDocument
}

// NewTopK creates a collector. A non-positive maxPerDocument disables the cap.
func NewTopK(topK, maxPerDocument int) *TopK {
	return &TopK{
		topK:           topK,
		maxPerDocument: maxPerDocument,
		held:           make(map[ChunkRef]*rankItem),
		perDocument:    make(map[string][]rankKey),
	}
}

// Add offers a candidate. It reports whether the candidate is currently held.
func (t *TopK) Add(candidate *ScoredChunk) bool {
	if t.topK <= 0 {
		return false
	}
	key := rankKey{candidate.Score, candidate.Chunk.Ref()}

	if t.maxPerDocument > 0 {
		best := t.perDocument[key.ref.DocumentKey]
		if len(best) == t.maxPerDocument {
			worst := best[len(best)-1]
			if compareKeys(key, worst) >= 0 {
				return false
			}
			best = best[:len(best)-1]
			// The displaced chunk no longer qualifies at all; dropping it
			// frees the slot for key, which ranks higher.
			if item, ok := t.held[worst.ref]; ok {
				heap.Remove(&t.heap, item.index)
				delete(t.held, worst.ref)
			}
		}
		i, _ := slices.BinarySearchFunc(best, key, compareKeys)
		t.perDocument[key.ref.DocumentKey] = slices.Insert(best, i, key)
	}

	if t.heap.Len() == t.topK {
		if compareKeys(key, t.heap[0].key) >= 0 {
			return false
		}
		evicted := heap.Pop(&t.heap).(*rankItem)
		delete(t.held, evicted.key.ref)
	}
	item := &rankItem{key: key, chunk: candidate}
	heap.Push(&t.heap, item)
	t.held[key.ref] = item
	return true
}

// Results returns the held candidates, best first.
func (t *TopK) Results() []*ScoredChunk {
	results := make([]*ScoredChunk, len(t.heap))
	for i, item := range t.heap {
		results[i] = item.chunk
	}
	slices.SortFunc(results, compareRank)
	return results
}

type rankItem struct {
	key   rankKey
	chunk *ScoredChunk
	index int
}

// rankHeap keeps the lowest-ranked held candidate at the root.
type rankHeap []*rankItem

func (h rankHeap) Len() int           { return len(h) }
func (h rankHeap) Less(i, j int) bool { return compareKeys(h[i].key, h[j].key) > 0 }
func (h rankHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *rankHeap) Push(x any) {
	item := x.(*rankItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *rankHeap) Pop() any {
	old := *h
	item := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	return item
}
