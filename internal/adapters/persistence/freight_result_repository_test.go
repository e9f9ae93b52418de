package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	"github.com/ozdirect/pricesync/internal/domain/catalog"
	"github.com/ozdirect/pricesync/internal/domain/shared"
	"github.com/ozdirect/pricesync/test/helpers"
)

func TestUpdateChangedPrices_CreatesRowAndRaisesFlags(t *testing.T) {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))
	repo := persistence.NewGormFreightResultRepository(db, clock)
	ctx := context.Background()

	changes := map[string]catalog.ResultChanges{
		"SKU-1": {
			catalog.ColSellingPrice: dp("25"),
			catalog.ColKoganAuPrice: dp("44.87"),
			catalog.ColShippingType: "1",
			catalog.ColRemoteCheck:  false,
		},
	}
	n, err := repo.UpdateChangedPrices(ctx, changes, map[string]string{"SKU-1": "h1"}, catalog.SourceFullSync, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := repo.QueryExistingResultsMap(ctx, []string{"SKU-1"})
	require.NoError(t, err)
	row := rows["SKU-1"]
	require.NotNil(t, row)
	require.NotNil(t, row.Outputs.SellingPrice)
	assert.True(t, row.Outputs.SellingPrice.Equal(*dp("25")))
	assert.Equal(t, "1", row.Outputs.ShippingType)
	assert.Equal(t, "h1", row.AttrsHashLastCalc)
	// selling_price feeds both country templates
	assert.True(t, row.KoganDirtyAu)
	assert.True(t, row.KoganDirtyNz)
	assert.Equal(t, catalog.SourceFullSync, row.LastChangedSource)
	assert.Equal(t, "run-1", row.LastChangedRunID)
	require.NotNil(t, row.LastChangedAt)
}

func TestUpdateChangedPrices_EmptyChangeSetAdvancesHashOnly(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormFreightResultRepository(db, nil)
	ctx := context.Background()

	n, err := repo.UpdateChangedPrices(ctx,
		map[string]catalog.ResultChanges{"SKU-1": {}},
		map[string]string{"SKU-1": "h2"},
		catalog.SourceFullSync, "run-2")
	require.NoError(t, err)
	assert.Zero(t, n, "a hash-only advance is not a price change")

	rows, err := repo.QueryExistingResultsMap(ctx, []string{"SKU-1"})
	require.NoError(t, err)
	row := rows["SKU-1"]
	require.NotNil(t, row)
	assert.Equal(t, "h2", row.AttrsHashLastCalc)
	assert.False(t, row.KoganDirtyAu)
	assert.False(t, row.KoganDirtyNz)
	assert.Nil(t, row.LastChangedAt)
}

func TestUpdateChangedPrices_PreservesDisjointColumns(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormFreightResultRepository(db, nil)
	ctx := context.Background()

	_, err := repo.UpdateChangedPrices(ctx,
		map[string]catalog.ResultChanges{"SKU-1": {
			catalog.ColSellingPrice: dp("25"),
			catalog.ColKoganAuPrice: dp("44.87"),
		}},
		map[string]string{"SKU-1": "h1"}, catalog.SourceFullSync, "run-1")
	require.NoError(t, err)
	require.NoError(t, repo.ClearKoganDirtyFlags(ctx, nil, catalog.CountryAU, []string{"SKU-1"}))
	require.NoError(t, repo.ClearKoganDirtyFlags(ctx, nil, catalog.CountryNZ, []string{"SKU-1"}))

	// Touch only the NZ price; AU columns and the AU flag stay put.
	_, err = repo.UpdateChangedPrices(ctx,
		map[string]catalog.ResultChanges{"SKU-1": {
			catalog.ColKoganNzPrice: dp("90.28"),
		}},
		map[string]string{"SKU-1": "h2"}, catalog.SourcePriceReset, "run-2")
	require.NoError(t, err)

	rows, err := repo.QueryExistingResultsMap(ctx, []string{"SKU-1"})
	require.NoError(t, err)
	row := rows["SKU-1"]
	require.NotNil(t, row.Outputs.SellingPrice)
	assert.True(t, row.Outputs.SellingPrice.Equal(*dp("25")), "untouched columns keep their values")
	require.NotNil(t, row.Outputs.KoganAuPrice)
	assert.True(t, row.Outputs.KoganAuPrice.Equal(*dp("44.87")))
	require.NotNil(t, row.Outputs.KoganNzPrice)
	assert.True(t, row.Outputs.KoganNzPrice.Equal(*dp("90.28")))
	assert.False(t, row.KoganDirtyAu)
	assert.True(t, row.KoganDirtyNz)
	assert.Equal(t, catalog.SourcePriceReset, row.LastChangedSource)
}

func TestIterChangedSkus_BatchesAndCountryScope(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormFreightResultRepository(db, nil)
	ctx := context.Background()

	changes := map[string]catalog.ResultChanges{
		"SKU-A": {catalog.ColKoganAuPrice: dp("10")},
		"SKU-B": {catalog.ColKoganAuPrice: dp("11")},
		"SKU-C": {catalog.ColKoganAuPrice: dp("12")},
		"SKU-D": {catalog.ColKoganNzPrice: dp("13")},
	}
	hashes := map[string]string{"SKU-A": "h", "SKU-B": "h", "SKU-C": "h", "SKU-D": "h"}
	_, err := repo.UpdateChangedPrices(ctx, changes, hashes, catalog.SourceFullSync, "run-1")
	require.NoError(t, err)

	var batches [][]string
	err = repo.IterChangedSkus(ctx, catalog.CountryAU, 2, func(results []*catalog.FreightResult) error {
		var skus []string
		for _, res := range results {
			skus = append(skus, res.Sku)
		}
		batches = append(batches, skus)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"SKU-A", "SKU-B"}, {"SKU-C"}}, batches)

	n, err := repo.CountDirty(ctx, catalog.CountryNZ)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the NZ-priced SKU is dirty for NZ")
}

func TestClearKoganDirtyFlags(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormFreightResultRepository(db, nil)
	ctx := context.Background()

	changes := map[string]catalog.ResultChanges{
		"SKU-A": {catalog.ColKoganAuPrice: dp("10")},
		"SKU-B": {catalog.ColKoganAuPrice: dp("11")},
	}
	hashes := map[string]string{"SKU-A": "h", "SKU-B": "h"}
	_, err := repo.UpdateChangedPrices(ctx, changes, hashes, catalog.SourceFullSync, "run-1")
	require.NoError(t, err)

	require.NoError(t, repo.ClearKoganDirtyFlags(ctx, nil, catalog.CountryAU, []string{"SKU-A"}))

	n, err := repo.CountDirty(ctx, catalog.CountryAU)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
