package badger

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// angle returns the unit vector at theta radians; its cosine similarity to
// (1, 0) is cos(theta).
func angle(theta float64) []float32 {
	return []float32{float32(math.Cos(theta)), float32(math.Sin(theta))}
}

func storeVectors(t *testing.T, repos *Repositories, key string, vectors ...[]float32) {
	t.Helper()
	chunks := testChunks(key, numbered(key, len(vectors))...)
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}
	require.NoError(t, repos.Chunks.UpsertDocumentChunks(context.Background(), testRecord(key), chunks))
}

func TestSimilaritySearch_IdenticalVectorFirst(t *testing.T) {
	repos := newTestRepos(t)
	storeVectors(t, repos, "far", angle(1.2), angle(0.9))
	storeVectors(t, repos, "match", angle(0.5), []float32{0.8, 0.1})

	results, err := repos.Chunks.SimilaritySearch(context.Background(), []float32{8, 1}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "match", results[0].Chunk.DocumentKey)
	assert.Equal(t, 1, results[0].Chunk.Index)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "Title of match", results[0].Title)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSimilaritySearch_MaxPerDocument(t *testing.T) {
	repos := newTestRepos(t)
	storeVectors(t, repos, "A", angle(0.01), angle(0.02), angle(0.03), angle(0.04), angle(0.05))
	storeVectors(t, repos, "B", angle(0.30), angle(0.20), angle(0.10))

	results, err := repos.Chunks.SimilaritySearch(context.Background(), []float32{1, 0}, 10, 2)
	require.NoError(t, err)

	var got []core.ChunkRef
	for _, r := range results {
		got = append(got, r.Chunk.Ref())
	}
	assert.Equal(t, []core.ChunkRef{
		{DocumentKey: "A", Index: 0},
		{DocumentKey: "A", Index: 1},
		{DocumentKey: "B", Index: 2},
		{DocumentKey: "B", Index: 1},
	}, got)
}

func TestSimilaritySearch_TiesOrderedByKeyThenIndex(t *testing.T) {
	repos := newTestRepos(t)
	storeVectors(t, repos, "beta", angle(0.3), angle(0.3))
	storeVectors(t, repos, "alpha", angle(0.3))

	results, err := repos.Chunks.SimilaritySearch(context.Background(), []float32{1, 0}, 3, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, core.ChunkRef{DocumentKey: "alpha", Index: 0}, results[0].Chunk.Ref())
	assert.Equal(t, core.ChunkRef{DocumentKey: "beta", Index: 0}, results[1].Chunk.Ref())
	assert.Equal(t, core.ChunkRef{DocumentKey: "beta", Index: 1}, results[2].Chunk.Ref())
}

func TestSimilaritySearch_SkipsPendingAndNeverPads(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	require.NoError(t, repos.Chunks.UpsertDocumentChunks(ctx, testRecord("doc"), testChunks("doc", "a", "b", "c")))
	require.NoError(t, repos.Chunks.SetEmbedding(ctx, core.ChunkRef{DocumentKey: "doc", Index: 2}, []float32{1, 0}))

	results, err := repos.Chunks.SimilaritySearch(ctx, []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Chunk.Index)
}

func TestSimilaritySearch_EmptyStore(t *testing.T) {
	repos := newTestRepos(t)
	results, err := repos.Chunks.SimilaritySearch(context.Background(), []float32{1, 0}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSimilaritySearch_InvalidQueries(t *testing.T) {
	repos := newTestRepos(t)
	storeVectors(t, repos, "doc", angle(0))
	ctx := context.Background()

	_, err := repos.Chunks.SimilaritySearch(ctx, []float32{1, 0}, 0, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = repos.Chunks.SimilaritySearch(ctx, []float32{1, 0}, 5, -1)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = repos.Chunks.SimilaritySearch(ctx, []float32{1, 0, 0}, 5, 0)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	_, err = repos.Chunks.SimilaritySearch(ctx, nil, 5, 0)
	assert.ErrorIs(t, err, core.ErrInvalidVector)
}
