package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/papertrail/ai/mock"
	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/embedding"
	"github.com/poiesic/papertrail/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = mock.DefaultDimensions

type fixture struct {
	repos     *badger.Repositories
	embedder  *mock.MockEmbedder
	retriever *Retriever
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	embedder := mock.NewMockEmbedder(testDim)
	client, err := embedding.NewClient(embedder, embedding.Unlimited())
	require.NoError(t, err)

	retriever, err := NewRetriever(repos.Chunks, client)
	require.NoError(t, err)
	return &fixture{repos: repos, embedder: embedder, retriever: retriever}
}

// store writes one document whose chunk vectors are the mock embeddings of
// the given texts.
func (f *fixture) store(t *testing.T, key string, texts ...string) {
	t.Helper()
	doc := &core.Document{
		Key:     key,
		Title:   "Title of " + key,
		Authors: []string{"Ada Lovelace", "Alan Turing"},
		Content: strings.Join(texts, " "),
	}
	chunks := make([]core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.Chunk{
			DocumentKey: key,
			Index:       i,
			Text:        text,
			Vector:      mock.DeterministicVector(text, testDim),
		}
	}
	require.NoError(t, f.repos.Chunks.UpsertDocumentChunks(context.Background(), core.NewDocumentRecord(doc, len(chunks)), chunks))
}

type failingStore struct{ err error }

func (s failingStore) SimilaritySearch(context.Context, []float32, int, int) ([]*core.ScoredChunk, error) {
	return nil, s.err
}

type queryFunc func(ctx context.Context, text string) ([]float32, error)

func (f queryFunc) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

func TestNewRetriever_RequiresCollaborators(t *testing.T) {
	embed := queryFunc(func(context.Context, string) ([]float32, error) { return nil, nil })

	_, err := NewRetriever(nil, embed)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewRetriever(failingStore{}, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestRetrieve_IdenticalTextRanksFirst(t *testing.T) {
	f := newFixture(t)
	f.store(t, "paper-1", "solid electrolyte interphase growth", "thermal runaway in pouch cells")
	f.store(t, "paper-2", "lithium plating at low temperature", "capacity fade in NMC cathodes")

	results, err := f.retriever.Retrieve(context.Background(), "capacity fade in NMC cathodes", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, core.ChunkRef{DocumentKey: "paper-2", Index: 1}, results[0].Chunk.Ref())
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.Equal(t, "Title of paper-2", results[0].Title)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Equal(t, 1, f.embedder.CallCount(), "query embedded as a single batch")
}

func TestRetrieve_TopKAndDefault(t *testing.T) {
	f := newFixture(t)
	texts := make([]string, 30)
	for i := range texts {
		texts[i] = fmt.Sprintf("passage number %d", i)
	}
	f.store(t, "long", texts...)

	results, err := f.retriever.Retrieve(context.Background(), "passage", 3, 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = f.retriever.Retrieve(context.Background(), "passage", 0, 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
}

func TestRetrieve_MaxPerDocument(t *testing.T) {
	f := newFixture(t)
	f.store(t, "A", "a0", "a1", "a2", "a3", "a4")
	f.store(t, "B", "b0", "b1", "b2")

	results, err := f.retriever.Retrieve(context.Background(), "query", 10, 2)
	require.NoError(t, err)

	perDoc := map[string]int{}
	for _, r := range results {
		perDoc[r.Chunk.DocumentKey]++
	}
	assert.Equal(t, 2, perDoc["A"])
	assert.Equal(t, 2, perDoc["B"])
	assert.Len(t, results, 4)
}

func TestRetrieve_FewerThanTopK(t *testing.T) {
	f := newFixture(t)
	f.store(t, "only", "one chunk")

	results, err := f.retriever.Retrieve(context.Background(), "query", 5, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotNil(t, results[0])
}

func TestRetrieve_EmptyStore(t *testing.T) {
	f := newFixture(t)

	results, err := f.retriever.Retrieve(context.Background(), "query", 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_StoreFailureIsError(t *testing.T) {
	embed := queryFunc(func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	})
	retriever, err := NewRetriever(failingStore{err: fmt.Errorf("%w: disk gone", core.ErrStoreUnavailable)}, embed)
	require.NoError(t, err)

	results, err := retriever.Retrieve(context.Background(), "query", 5, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.Nil(t, results)
}

func TestRetrieve_EmbedFailure(t *testing.T) {
	embed := queryFunc(func(context.Context, string) ([]float32, error) {
		return nil, core.ErrProviderUnavailable
	})
	retriever, err := NewRetriever(failingStore{}, embed)
	require.NoError(t, err)

	_, err = retriever.Retrieve(context.Background(), "query", 5, 0)
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.retriever.Retrieve(context.Background(), "   ", 5, 0)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, f.embedder.CallCount())
}

type recordingMonitor struct {
	events []string
}

func (m *recordingMonitor) Start(string) { m.events = append(m.events, "start") }
func (m *recordingMonitor) AfterQueryEmbedding(int, time.Duration) {
	m.events = append(m.events, "embedded")
}
func (m *recordingMonitor) AfterSimilaritySearch(int, time.Duration) {
	m.events = append(m.events, "searched")
}
func (m *recordingMonitor) Finish([]*core.ScoredChunk) { m.events = append(m.events, "finish") }

func TestRetrieveWithMonitor_StageOrder(t *testing.T) {
	f := newFixture(t)
	f.store(t, "doc", "text")

	monitor := &recordingMonitor{}
	_, err := f.retriever.RetrieveWithMonitor(context.Background(), "text", 1, 0, monitor)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "embedded", "searched", "finish"}, monitor.events)
}

func TestRetrieve_ProviderErrorKeepsKind(t *testing.T) {
	f := newFixture(t)
	f.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, fmt.Errorf("%w: bad request", core.ErrProviderRejected)
	}

	_, err := f.retriever.Retrieve(context.Background(), "query", 5, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrProviderRejected))
}
