package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     &Document{Key: "http://example.com/a", Content: "text", AcquiredAt: time.Now().Add(-time.Hour)},
			wantErr: nil,
		},
		{
			name:    "empty content is valid",
			doc:     &Document{Key: "k"},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "missing key",
			doc:     &Document{Content: "text"},
			wantErr: ErrEmptyKey,
		},
		{
			name:    "future acquisition time",
			doc:     &Document{Key: "k", AcquiredAt: time.Now().Add(time.Hour)},
			wantErr: ErrInvalidDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateVector(t *testing.T) {
	assert.NoError(t, ValidateVector([]float32{0.1, 0.2}))
	assert.ErrorIs(t, ValidateVector(nil), ErrInvalidVector)
	assert.ErrorIs(t, ValidateVector([]float32{1, float32(math.NaN())}), ErrInvalidVector)
	assert.ErrorIs(t, ValidateVector([]float32{float32(math.Inf(1))}), ErrInvalidVector)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindUnknown},
		{errors.New("boom"), KindUnknown},
		{fmt.Errorf("embed: %w", ErrProviderUnavailable), KindProviderUnavailable},
		{fmt.Errorf("embed: %w", ErrProviderRejected), KindProviderRejected},
		{fmt.Errorf("chunk 3: %w", ErrNotFound), KindNotFound},
		{fmt.Errorf("%w: disk gone", ErrStoreUnavailable), KindStoreUnavailable},
		{context.Canceled, KindCanceled},
		{fmt.Errorf("wait: %w", context.DeadlineExceeded), KindCanceled},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "error %v", tt.err)
	}
}

func TestErrorKind_Sentinel(t *testing.T) {
	for _, kind := range []ErrorKind{KindProviderUnavailable, KindProviderRejected, KindNotFound, KindStoreUnavailable} {
		assert.Equal(t, kind, KindOf(kind.Sentinel()), kind.String())
	}
	assert.Nil(t, KindUnknown.Sentinel())
}

func TestIsValidTimestamp(t *testing.T) {
	assert.True(t, IsValidTimestamp(time.Time{}))
	assert.True(t, IsValidTimestamp(time.Now()))
	assert.False(t, IsValidTimestamp(time.Now().Add(time.Minute)))
}
