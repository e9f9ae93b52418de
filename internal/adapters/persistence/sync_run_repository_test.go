package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	"github.com/ozdirect/pricesync/internal/domain/shared"
	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
	"github.com/ozdirect/pricesync/test/helpers"
)

func runFixture(id string) *syncdomain.Run {
	return &syncdomain.Run{
		ID:            id,
		Status:        syncdomain.RunStatusRunning,
		RunType:       syncdomain.RunTypeManual,
		ShopifyBulkID: "gid://shopify/BulkOperation/" + id,
		StartedAt:     time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
	}
}

func TestSyncRunCreateAndFind(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSyncRunRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, runFixture("run-1")))

	got, err := repo.FindByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.RunStatusRunning, got.Status)

	byBulk, err := repo.FindByBulkID(ctx, "gid://shopify/BulkOperation/run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", byBulk.ID)

	_, err = repo.FindByID(ctx, "missing")
	require.Error(t, err)
	var nf *shared.RunNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestSyncRunFindActive(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSyncRunRepository(db)
	ctx := context.Background()

	active, err := repo.FindActive(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	require.NoError(t, repo.Create(ctx, runFixture("run-1")))
	active, err = repo.FindActive(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "run-1", active.ID)

	// Finishing the run leaves no active one behind.
	finished := time.Date(2026, 8, 24, 11, 0, 0, 0, time.UTC)
	active.Status = syncdomain.RunStatusCompleted
	active.TotalShopifySkus = 120
	active.ChangeCount = 7
	active.FinishedAt = &finished
	require.NoError(t, repo.Update(ctx, active))

	none, err := repo.FindActive(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	got, err := repo.FindByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.RunStatusCompleted, got.Status)
	assert.Equal(t, 120, got.TotalShopifySkus)
	assert.Equal(t, 7, got.ChangeCount)
}
