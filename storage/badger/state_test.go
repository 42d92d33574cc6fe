package badger

import (
	"context"
	"testing"

	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRepository_SaveAndGet(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	state := &core.DocumentState{
		DocumentKey:   "doc",
		RunID:         "run-1",
		Stage:         core.StageFailed,
		LastCompleted: core.StageChunking,
		Error:         "provider unavailable",
		Attempts:      1,
	}
	require.NoError(t, repos.States.SaveState(ctx, state))
	assert.False(t, state.UpdatedAt.IsZero())

	got, err := repos.States.GetState(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, core.StageFailed, got.Stage)
	assert.Equal(t, core.StageChunking, got.LastCompleted)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "provider unavailable", got.Error)

	_, err = repos.States.GetState(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, repos.States.SaveState(ctx, &core.DocumentState{}), core.ErrEmptyKey)
}

func TestStateRepository_ListStates(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	for key, stage := range map[string]core.Stage{
		"c": core.StageFailed,
		"a": core.StageFailed,
		"b": core.StagePersisted,
		"d": core.StageEmbedding,
	} {
		require.NoError(t, repos.States.SaveState(ctx, &core.DocumentState{DocumentKey: key, Stage: stage}))
	}

	failed, err := repos.States.ListStates(ctx, core.StageFailed)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, "a", failed[0].DocumentKey)
	assert.Equal(t, "c", failed[1].DocumentKey)

	unfinished, err := repos.States.ListStates(ctx, core.StageFailed, core.StageEmbedding)
	require.NoError(t, err)
	assert.Len(t, unfinished, 3)

	all, err := repos.States.ListStates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
