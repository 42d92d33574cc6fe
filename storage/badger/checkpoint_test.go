package badger

import (
	"context"
	"testing"

	"github.com/poiesic/papertrail/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRepository(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	missing, err := repos.Checkpoints.LoadCheckpoint(ctx, "backfill")
	require.NoError(t, err)
	assert.Nil(t, missing)

	checkpoint := &core.Checkpoint{
		ProcessorType: "backfill",
		Cursor:        core.ChunkRef{DocumentKey: "doc", Index: 12},
		Processed:     500,
	}
	require.NoError(t, repos.Checkpoints.SaveCheckpoint(ctx, checkpoint))

	loaded, err := repos.Checkpoints.LoadCheckpoint(ctx, "backfill")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, checkpoint.Cursor, loaded.Cursor)
	assert.Equal(t, 500, loaded.Processed)
	assert.False(t, loaded.UpdatedAt.IsZero())

	require.NoError(t, repos.Checkpoints.DeleteCheckpoint(ctx, "backfill"))
	loaded, err = repos.Checkpoints.LoadCheckpoint(ctx, "backfill")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
