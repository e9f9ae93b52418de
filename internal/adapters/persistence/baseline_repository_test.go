package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	"github.com/ozdirect/pricesync/test/helpers"
)

func TestBaselineUpsertAndLoad(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormBaselineRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, nil, "AU", map[string]map[string]string{
		"SKU-1": {"SKU": "SKU-1", "Price": "44.87"},
	}))
	require.NoError(t, repo.Upsert(ctx, nil, "NZ", map[string]map[string]string{
		"SKU-1": {"SKU": "SKU-1", "Price": "90.28"},
	}))

	au, err := repo.LoadBySkus(ctx, "AU", []string{"SKU-1", "SKU-2"})
	require.NoError(t, err)
	require.Len(t, au, 1, "countries do not leak into each other and unknown SKUs are absent")
	assert.Equal(t, "44.87", au["SKU-1"]["Price"])

	// Applying again overwrites the stored row.
	require.NoError(t, repo.Upsert(ctx, nil, "AU", map[string]map[string]string{
		"SKU-1": {"SKU": "SKU-1", "Price": "46.10", "RRP": "59.95"},
	}))
	au, err = repo.LoadBySkus(ctx, "AU", []string{"SKU-1"})
	require.NoError(t, err)
	assert.Equal(t, "46.10", au["SKU-1"]["Price"])
	assert.Equal(t, "59.95", au["SKU-1"]["RRP"])
}
