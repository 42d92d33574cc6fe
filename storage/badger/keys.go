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

package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/papertrail/core"
)

// Key prefixes for different data types. Document ids are big-endian so
// that keys of one document are contiguous and chunk keys sort by index.
const (
	documentPrefix = "doc:"
	chunkPrefix    = "chk:"
	pendingPrefix  = "pend:"
	statePrefix    = "state:"
	dimensionKey   = "meta:dim"
)

const (
	idSize    = 8
	indexSize = 4
)

// makeDocumentKey generates a key for a document header.
// Format: doc:<id>
func makeDocumentKey(id core.ID) []byte {
	return appendID([]byte(documentPrefix), id)
}

// makeChunkKey generates a key for a chunk.
// Format: chk:<id><index>
func makeChunkKey(id core.ID, index int) []byte {
	return appendIndex(makeChunkPrefix(id), index)
}

// makeChunkPrefix generates the prefix shared by every chunk of a document.
func makeChunkPrefix(id core.ID) []byte {
	return appendID([]byte(chunkPrefix), id)
}

// makePendingKey generates the marker key of a chunk without a vector.
// Format: pend:<id><index>
func makePendingKey(id core.ID, index int) []byte {
	return appendIndex(makePendingPrefix(id), index)
}

// makePendingPrefix generates the prefix shared by a document's pending markers.
func makePendingPrefix(id core.ID) []byte {
	return appendID([]byte(pendingPrefix), id)
}

// makeStateKey generates a key for a document's pipeline state.
func makeStateKey(id core.ID) []byte {
	return appendID([]byte(statePrefix), id)
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return []byte(fmt.Sprintf("%s:chkpt", processorType))
}

// parseIndexedKey extracts the document id and chunk index from a chunk or
// pending key with the given prefix.
func parseIndexedKey(key []byte, prefix string) (core.ID, int, bool) {
	if len(key) != len(prefix)+idSize+indexSize {
		return 0, 0, false
	}
	rest := key[len(prefix):]
	id := core.ID(binary.BigEndian.Uint64(rest[:idSize]))
	index := int(binary.BigEndian.Uint32(rest[idSize:]))
	return id, index, true
}

func appendID(buf []byte, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

func appendIndex(buf []byte, index int) []byte {
	return binary.BigEndian.AppendUint32(buf, uint32(index))
}
