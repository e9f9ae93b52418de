package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
	"github.com/ozdirect/pricesync/test/helpers"
)

func TestChunkLifecycle(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSyncChunkRepository(db, nil)
	ctx := context.Background()

	chunk := &syncdomain.Chunk{RunID: "run-1", ChunkIdx: 0, SkuCodes: []string{"A", "B"}}
	require.NoError(t, repo.UpsertPending(ctx, chunk))
	require.NoError(t, repo.MarkRunning(ctx, "run-1", 0))

	stats := syncdomain.ChunkStats{
		RequestedTotal:  2,
		ReturnedTotal:   1,
		MissingCount:    1,
		MissingExamples: []string{"B"},
	}
	require.NoError(t, repo.MarkSucceeded(ctx, "run-1", 0, stats))

	chunks, err := repo.ForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	got := chunks[0]
	assert.Equal(t, syncdomain.ChunkStatusSucceeded, got.Status)
	assert.Equal(t, []string{"A", "B"}, got.SkuCodes)
	assert.Equal(t, 2, got.SkuCount)
	assert.Equal(t, 1, got.Stats.MissingCount)
	assert.Equal(t, []string{"B"}, got.Stats.MissingExamples)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.FinishedAt)
}

func TestUpsertPending_DoesNotResetFinishedChunks(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSyncChunkRepository(db, nil)
	ctx := context.Background()

	chunk := &syncdomain.Chunk{RunID: "run-1", ChunkIdx: 0, SkuCodes: []string{"A"}}
	require.NoError(t, repo.UpsertPending(ctx, chunk))
	require.NoError(t, repo.MarkSucceeded(ctx, "run-1", 0, syncdomain.ChunkStats{RequestedTotal: 1, ReturnedTotal: 1}))

	// Re-streaming the run hits the same manifest rows.
	require.NoError(t, repo.UpsertPending(ctx, chunk))

	chunks, err := repo.ForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, syncdomain.ChunkStatusSucceeded, chunks[0].Status)
}

func TestUnfinished(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSyncChunkRepository(db, nil)
	ctx := context.Background()

	for idx := 0; idx < 3; idx++ {
		chunk := &syncdomain.Chunk{RunID: "run-1", ChunkIdx: idx, SkuCodes: []string{"A"}}
		require.NoError(t, repo.UpsertPending(ctx, chunk))
	}
	require.NoError(t, repo.MarkSucceeded(ctx, "run-1", 0, syncdomain.ChunkStats{}))
	require.NoError(t, repo.MarkFailed(ctx, "run-1", 2, syncdomain.ChunkStats{FailedSkusCount: 1}, "supplier timeout"))

	unfinished, err := repo.Unfinished(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, unfinished, 2)
	assert.Equal(t, 1, unfinished[0].ChunkIdx)
	assert.Equal(t, syncdomain.ChunkStatusPending, unfinished[0].Status)
	assert.Equal(t, 2, unfinished[1].ChunkIdx)
	assert.Equal(t, syncdomain.ChunkStatusFailed, unfinished[1].Status)
	assert.Equal(t, "supplier timeout", unfinished[1].LastError)
}
