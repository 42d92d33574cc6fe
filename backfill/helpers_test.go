package backfill

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/papertrail/ai/mock"
	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/embedding"
	"github.com/poiesic/papertrail/storage/badger"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *badger.Repositories {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

// seed stores a document with n chunks that have no vectors yet.
func seed(t *testing.T, repos *badger.Repositories, key string, n int) {
	t.Helper()
	doc := &core.Document{Key: key, Title: "Title of " + key, Authors: []string{"Rosalind Franklin"}}
	chunks := make([]core.Chunk, n)
	for i := range chunks {
		chunks[i] = core.Chunk{DocumentKey: key, Index: i, Text: fmt.Sprintf("%s chunk %d", key, i)}
	}
	require.NoError(t, repos.Chunks.UpsertDocumentChunks(context.Background(), core.NewDocumentRecord(doc, n), chunks))
}

func newClient(t *testing.T, embedder *mock.MockEmbedder) *embedding.Client {
	t.Helper()
	client, err := embedding.NewClient(embedder, embedding.Unlimited(), embedding.WithConfig(embedding.Config{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
	}))
	require.NoError(t, err)
	return client
}

func pendingCount(t *testing.T, repos *badger.Repositories) int {
	t.Helper()
	n, err := repos.Chunks.CountChunksMissingEmbedding(context.Background())
	require.NoError(t, err)
	return n
}
