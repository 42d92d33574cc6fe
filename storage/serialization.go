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

package storage

import (
	"fmt"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/papertrail/core"
)

// formatVersion prefixes every encoded record.
const formatVersion = 1

// MarshalDocumentRecord serializes a DocumentRecord to bytes.
func MarshalDocumentRecord(doc *core.DocumentRecord) []byte {
	w := newWriter()
	w.string(doc.Key)
	w.string(doc.Title)
	w.strings(doc.Authors)
	w.time(doc.AcquiredAt)
	w.uint64(uint64(doc.ContentHash))
	w.int(doc.ChunkCount)
	w.time(doc.IngestedAt)
	return w.buf
}

// UnmarshalDocumentRecord deserializes a DocumentRecord from bytes.
func UnmarshalDocumentRecord(data []byte) (*core.DocumentRecord, error) {
	r := newReader(data)
	doc := &core.DocumentRecord{
		Key:         r.string(),
		Title:       r.string(),
		Authors:     r.strings(),
		AcquiredAt:  r.time(),
		ContentHash: core.ID(r.uint64()),
		ChunkCount:  r.int(),
		IngestedAt:  r.time(),
	}
	if err := r.done("document"); err != nil {
		return nil, err
	}
	return doc, nil
}

// MarshalChunk serializes a Chunk, including its vector if present.
func MarshalChunk(chunk *core.Chunk) []byte {
	w := newWriter()
	w.string(chunk.DocumentKey)
	w.int(chunk.Index)
	w.string(chunk.Text)
	w.vector(chunk.Vector)
	return w.buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	r := newReader(data)
	chunk := &core.Chunk{
		DocumentKey: r.string(),
		Index:       r.int(),
		Text:        r.string(),
		Vector:      r.vector(),
	}
	if err := r.done("chunk"); err != nil {
		return nil, err
	}
	return chunk, nil
}

// MarshalDocumentState serializes a DocumentState to bytes.
func MarshalDocumentState(state *core.DocumentState) []byte {
	w := newWriter()
	w.string(state.DocumentKey)
	w.string(state.RunID)
	w.int(int(state.Stage))
	w.int(int(state.LastCompleted))
	w.bool(state.Partial)
	w.ints(state.Rejected)
	w.string(state.Error)
	w.int(state.Attempts)
	w.time(state.UpdatedAt)
	return w.buf
}

// UnmarshalDocumentState deserializes a DocumentState from bytes.
func UnmarshalDocumentState(data []byte) (*core.DocumentState, error) {
	r := newReader(data)
	state := &core.DocumentState{
		DocumentKey:   r.string(),
		RunID:         r.string(),
		Stage:         core.Stage(r.int()),
		LastCompleted: core.Stage(r.int()),
		Partial:       r.bool(),
		Rejected:      r.ints(),
		Error:         r.string(),
		Attempts:      r.int(),
		UpdatedAt:     r.time(),
	}
	if err := r.done("document state"); err != nil {
		return nil, err
	}
	return state, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	w := newWriter()
	w.string(checkpoint.ProcessorType)
	w.string(checkpoint.Cursor.DocumentKey)
	w.int(checkpoint.Cursor.Index)
	w.int(checkpoint.Processed)
	w.time(checkpoint.UpdatedAt)
	return w.buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	r := newReader(data)
	checkpoint := &core.Checkpoint{
		ProcessorType: r.string(),
		Cursor: core.ChunkRef{
			DocumentKey: r.string(),
			Index:       r.int(),
		},
		Processed: r.int(),
		UpdatedAt: r.time(),
	}
	if err := r.done("checkpoint"); err != nil {
		return nil, err
	}
	return checkpoint, nil
}

// MarshalDimension serializes the store's vector dimension.
func MarshalDimension(dim int) []byte {
	w := newWriter()
	w.int(dim)
	return w.buf
}

// UnmarshalDimension deserializes the store's vector dimension.
func UnmarshalDimension(data []byte) (int, error) {
	r := newReader(data)
	dim := r.int()
	if err := r.done("dimension"); err != nil {
		return 0, err
	}
	return dim, nil
}

// writer appends mus-encoded fields to a growing buffer.
type writer struct {
	buf []byte
}

func newWriter() *writer {
	return &writer{buf: []byte{formatVersion}}
}

// next extends the buffer by size bytes and returns the new tail.
func (w *writer) next(size int) []byte {
	n := len(w.buf)
	w.buf = slices.Grow(w.buf, size)[:n+size]
	return w.buf[n:]
}

func (w *writer) int(v int) {
	varint.Int.Marshal(v, w.next(varint.Int.Size(v)))
}

func (w *writer) uint64(v uint64) {
	varint.Uint64.Marshal(v, w.next(varint.Uint64.Size(v)))
}

func (w *writer) int64(v int64) {
	varint.Int64.Marshal(v, w.next(varint.Int64.Size(v)))
}

func (w *writer) bool(v bool) {
	ord.Bool.Marshal(v, w.next(ord.Bool.Size(v)))
}

func (w *writer) string(v string) {
	ord.String.Marshal(v, w.next(ord.String.Size(v)))
}

func (w *writer) strings(v []string) {
	w.int(len(v))
	for _, s := range v {
		w.string(s)
	}
}

func (w *writer) ints(v []int) {
	w.int(len(v))
	for _, i := range v {
		w.int(i)
	}
}

// vector writes -1 for a nil vector so pending chunks round-trip as nil.
func (w *writer) vector(v []float32) {
	if v == nil {
		w.int(-1)
		return
	}
	w.int(len(v))
	for _, f := range v {
		raw.Float32.Marshal(f, w.next(raw.Float32.Size(f)))
	}
}

// time stores microseconds since the epoch behind a presence flag, so the
// zero time survives a round trip.
func (w *writer) time(t time.Time) {
	w.bool(!t.IsZero())
	if !t.IsZero() {
		w.int64(t.UnixMicro())
	}
}

// reader consumes fields written by writer. The first error sticks and
// later reads return zero values.
type reader struct {
	buf []byte
	n   int
	err error
}

func newReader(data []byte) *reader {
	r := &reader{buf: data}
	switch {
	case len(data) == 0:
		r.err = ErrTruncatedData
	case data[0] != formatVersion:
		r.err = fmt.Errorf("unsupported format version %d", data[0])
	default:
		r.n = 1
	}
	return r
}

func (r *reader) advance(n int, err error) {
	r.n += n
	r.err = err
}

func (r *reader) int() int {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(r.buf[r.n:])
	r.advance(n, err)
	return v
}

func (r *reader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.buf[r.n:])
	r.advance(n, err)
	return v
}

func (r *reader) int64() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.buf[r.n:])
	r.advance(n, err)
	return v
}

func (r *reader) bool() bool {
	if r.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(r.buf[r.n:])
	r.advance(n, err)
	return v
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.buf[r.n:])
	r.advance(n, err)
	return v
}

// length reads a collection size and checks it against the bytes left, so
// corrupt input cannot trigger a huge allocation.
func (r *reader) length(minElemSize int) int {
	l := r.int()
	if r.err == nil && l > (len(r.buf)-r.n)/max(minElemSize, 1) {
		r.err = ErrTruncatedData
	}
	return l
}

func (r *reader) strings() []string {
	l := r.length(1)
	if r.err != nil || l <= 0 {
		return nil
	}
	out := make([]string, l)
	for i := range out {
		out[i] = r.string()
	}
	return out
}

func (r *reader) ints() []int {
	l := r.length(1)
	if r.err != nil || l <= 0 {
		return nil
	}
	out := make([]int, l)
	for i := range out {
		out[i] = r.int()
	}
	return out
}

func (r *reader) vector() []float32 {
	l := r.length(4)
	if r.err != nil || l < 0 {
		return nil
	}
	out := make([]float32, l)
	for i := range out {
		if r.err != nil {
			return nil
		}
		v, n, err := raw.Float32.Unmarshal(r.buf[r.n:])
		r.advance(n, err)
		out[i] = v
	}
	return out
}

func (r *reader) time() time.Time {
	if !r.bool() {
		return time.Time{}
	}
	us := r.int64()
	if r.err != nil {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

// done reports the first decoding error, wrapped in ErrSerializationFailed.
func (r *reader) done(what string) error {
	if r.err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, what, r.err)
	}
	return nil
}
