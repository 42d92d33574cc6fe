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
	"context"
	"errors"
)

// Failure taxonomy shared by every component.
var (
	// ErrProviderUnavailable is a transient provider failure (rate limit,
	// network, 5xx). Retried with backoff, then surfaced per document.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrProviderRejected is a permanent provider refusal of an input
	// (malformed or oversize). Never retried.
	ErrProviderRejected = errors.New("embedding provider rejected input")

	// ErrNotFound indicates a referenced document or chunk does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable indicates the persistence layer cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyKey indicates the document key is empty.
	ErrEmptyKey = errors.New("document key cannot be empty")

	// ErrInvalidVector indicates a vector is empty or contains NaN/Inf values.
	ErrInvalidVector = errors.New("invalid vector")
)

// ErrorKind classifies an error into the failure taxonomy.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindProviderUnavailable
	KindProviderRejected
	KindNotFound
	KindStoreUnavailable
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindProviderUnavailable:
		return "provider_unavailable"
	case KindProviderRejected:
		return "provider_rejected"
	case KindNotFound:
		return "not_found"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindCanceled:
		return "canceled"
	}
	return "unknown"
}

// Sentinel returns the taxonomy error for k, or nil for KindUnknown.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindProviderUnavailable:
		return ErrProviderUnavailable
	case KindProviderRejected:
		return ErrProviderRejected
	case KindNotFound:
		return ErrNotFound
	case KindStoreUnavailable:
		return ErrStoreUnavailable
	case KindCanceled:
		return context.Canceled
	}
	return nil
}

// KindOf maps err onto the taxonomy.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrProviderRejected):
		return KindProviderRejected
	case errors.Is(err, ErrProviderUnavailable):
		return KindProviderUnavailable
	}
	return KindUnknown
}
