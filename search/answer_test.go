package search

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/papertrail/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnswerer_RequiresCollaborators(t *testing.T) {
	f := newFixture(t)

	_, err := NewAnswerer(nil, mock.NewMockGenerator(), AnswerConfig{})
	assert.ErrorIs(t, err, ErrRetrieverRequired)

	_, err = NewAnswerer(f.retriever, nil, AnswerConfig{})
	assert.ErrorIs(t, err, ErrGeneratorRequired)
}

func TestAnswer(t *testing.T) {
	f := newFixture(t)
	f.store(t, "paper-1", "separator coatings", "electrolyte additives")
	f.store(t, "paper-2", "cathode cracking")

	generator := mock.NewMockGenerator()
	answerer, err := NewAnswerer(f.retriever, generator, AnswerConfig{TopK: 2})
	require.NoError(t, err)

	answer, err := answerer.Answer(context.Background(), "  electrolyte additives ")
	require.NoError(t, err)

	assert.Equal(t, "electrolyte additives", answer.Question)
	assert.Equal(t, `answer to "electrolyte additives" from 2 passages`, answer.Text)
	assert.Equal(t, 2, answer.Passages)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "paper-1", answer.Sources[0].Chunk.DocumentKey)
	assert.Equal(t, 1, answer.Sources[0].Chunk.Index)

	contexts := generator.LastContexts()
	require.Len(t, contexts, 2)
	assert.Equal(t, FormatPassage(answer.Sources[0]), contexts[0])
}

func TestAnswer_SourcesLimitedToContext(t *testing.T) {
	f := newFixture(t)
	f.store(t, "doc", "one", "two", "three")

	generator := mock.NewMockGenerator()
	// Each passage is 20 words here, so 41 words admits two.
	answerer, err := NewAnswerer(f.retriever, generator, AnswerConfig{MaxContextWords: 41})
	require.NoError(t, err)

	answer, err := answerer.Answer(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, 2, answer.Passages)
	assert.Len(t, answer.Sources, 2)
}

func TestAnswer_GeneratorError(t *testing.T) {
	f := newFixture(t)
	f.store(t, "doc", "text")

	boom := errors.New("model offline")
	generator := mock.NewMockGenerator()
	generator.GenerateFunc = func(context.Context, string, []string) (string, error) {
		return "", boom
	}
	answerer, err := NewAnswerer(f.retriever, generator, AnswerConfig{})
	require.NoError(t, err)

	_, err = answerer.Answer(context.Background(), "text")
	assert.ErrorIs(t, err, boom)
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	f := newFixture(t)
	answerer, err := NewAnswerer(f.retriever, mock.NewMockGenerator(), AnswerConfig{})
	require.NoError(t, err)

	_, err = answerer.Answer(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}
