package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/papertrail/ai"
	"github.com/poiesic/papertrail/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) *Embedder {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := ai.NewConfig(ai.WithHost(server.URL), ai.WithAPIKey("test"), ai.WithEmbeddingDimensions(3))
	embedder, err := newEmbedder(cfg)
	require.NoError(t, err)
	return embedder
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"test_error"}}`))
}

func TestEmbedTexts_OrdersByIndex(t *testing.T) {
	var received []string
	embedder := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received = req.Input

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"m","data":[
			{"object":"embedding","index":1,"embedding":[0,1,0]},
			{"object":"embedding","index":0,"embedding":[1,0,0]}
		],"usage":{"prompt_tokens":4,"total_tokens":4}}`))
	})

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"first\nline", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1, 0}, vectors[1])
	assert.Equal(t, []string{"first line", "second"}, received)
}

func TestEmbedTexts_Empty(t *testing.T) {
	embedder := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	vectors, err := embedder.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedTexts_CountMismatch(t *testing.T) {
	embedder := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,0,0]}]}`))
	})
	_, err := embedder.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
}

func TestEmbedTexts_ErrorClassification(t *testing.T) {
	tests := []struct {
		status       int
		want         error
		rateLimited  bool
		accessDenied bool
	}{
		{http.StatusTooManyRequests, core.ErrProviderUnavailable, true, false},
		{http.StatusInternalServerError, core.ErrProviderUnavailable, false, false},
		{http.StatusServiceUnavailable, core.ErrProviderUnavailable, false, false},
		{http.StatusBadRequest, core.ErrProviderRejected, false, false},
		{http.StatusUnauthorized, core.ErrProviderUnavailable, false, true},
		{http.StatusForbidden, core.ErrProviderUnavailable, false, true},
		{http.StatusNotFound, core.ErrProviderUnavailable, false, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			embedder := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tt.status)
			})
			_, err := embedder.EmbedTexts(context.Background(), []string{"x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.rateLimited, errors.Is(err, ai.ErrRateLimited))
			assert.Equal(t, tt.accessDenied, errors.Is(err, ai.ErrAccessDenied))
			if tt.accessDenied {
				assert.NotErrorIs(t, err, core.ErrProviderRejected)
			}
		})
	}
}

func TestClassifyError_ContextPassesThrough(t *testing.T) {
	err := classifyError(context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, core.ErrProviderUnavailable)
}

func TestClassifyError_TransportFailure(t *testing.T) {
	err := classifyError(errors.New("dial tcp: connection refused"))
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
}
