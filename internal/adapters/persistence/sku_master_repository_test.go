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

func TestBulkUpsertOnlyIfChanged(t *testing.T) {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))
	repo := persistence.NewGormSkuMasterRepository(db, clock)
	ctx := context.Background()

	written, err := repo.BulkUpsertOnlyIfChanged(ctx, nil, []*catalog.Master{masterFixture("SKU-1")})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	loaded, err := repo.LoadExistingBySkus(ctx, []string{"SKU-1"})
	require.NoError(t, err)
	require.Contains(t, loaded, "SKU-1")
	require.NotNil(t, loaded["SKU-1"].LastChangedAt)
	firstStamp := *loaded["SKU-1"].LastChangedAt

	// An identical row is a no-op with no timestamp bump.
	clock.Advance(time.Hour)
	written, err = repo.BulkUpsertOnlyIfChanged(ctx, nil, []*catalog.Master{masterFixture("SKU-1")})
	require.NoError(t, err)
	assert.Zero(t, written)

	loaded, err = repo.LoadExistingBySkus(ctx, []string{"SKU-1"})
	require.NoError(t, err)
	assert.True(t, firstStamp.Equal(*loaded["SKU-1"].LastChangedAt))

	// A changed attribute writes and refreshes last_changed_at.
	next := masterFixture("SKU-1")
	next.Price = dp("33.50")
	next.AttrsHashCurrent = "hash-SKU-1-v2"
	written, err = repo.BulkUpsertOnlyIfChanged(ctx, nil, []*catalog.Master{next})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	loaded, err = repo.LoadExistingBySkus(ctx, []string{"SKU-1"})
	require.NoError(t, err)
	require.NotNil(t, loaded["SKU-1"].Price)
	assert.True(t, loaded["SKU-1"].Price.Equal(*dp("33.50")))
	assert.Equal(t, "hash-SKU-1-v2", loaded["SKU-1"].AttrsHashCurrent)
	assert.True(t, loaded["SKU-1"].LastChangedAt.After(firstStamp))
}

func TestBulkUpsert_HashOnlyChangeStillWrites(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSkuMasterRepository(db, nil)
	ctx := context.Background()

	_, err := repo.BulkUpsertOnlyIfChanged(ctx, nil, []*catalog.Master{masterFixture("SKU-1")})
	require.NoError(t, err)

	next := masterFixture("SKU-1")
	next.AttrsHashCurrent = "recomputed"
	written, err := repo.BulkUpsertOnlyIfChanged(ctx, nil, []*catalog.Master{next})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	loaded, err := repo.LoadExistingBySkus(ctx, []string{"SKU-1"})
	require.NoError(t, err)
	assert.Equal(t, "recomputed", loaded["SKU-1"].AttrsHashCurrent)
}

func TestLoadExistingBySkus_UnknownSkusAbsent(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSkuMasterRepository(db, nil)
	ctx := context.Background()

	_, err := repo.BulkUpsertOnlyIfChanged(ctx, nil, []*catalog.Master{masterFixture("SKU-1")})
	require.NoError(t, err)

	loaded, err := repo.LoadExistingBySkus(ctx, []string{"SKU-1", "NOPE"})
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
	assert.NotContains(t, loaded, "NOPE")
}

func TestLoadVariantIDsBySkus(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSkuMasterRepository(db, nil)
	ctx := context.Background()

	m := masterFixture("SKU-1")
	m.ShopifyVariantID = "gid://shopify/ProductVariant/11"
	_, err := repo.BulkUpsertOnlyIfChanged(ctx, nil, []*catalog.Master{m})
	require.NoError(t, err)

	ids, err := repo.LoadVariantIDsBySkus(ctx, []string{"SKU-1"})
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/ProductVariant/11", ids["SKU-1"])
}

func TestAllSkusNeedingCalc(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSkuMasterRepository(db, nil)
	ctx := context.Background()

	_, err := repo.BulkUpsertOnlyIfChanged(ctx, nil, []*catalog.Master{
		masterFixture("SKU-A"),
		masterFixture("SKU-B"),
		masterFixture("SKU-C"),
	})
	require.NoError(t, err)

	// A is up to date, B is stale, C has no result row at all.
	require.NoError(t, db.Create(&persistence.FreightResultModel{
		Sku: "SKU-A", AttrsHashLastCalc: "hash-SKU-A",
	}).Error)
	require.NoError(t, db.Create(&persistence.FreightResultModel{
		Sku: "SKU-B", AttrsHashLastCalc: "stale",
	}).Error)

	skus, err := repo.AllSkusNeedingCalc(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"SKU-B", "SKU-C"}, skus)
}

func TestSkusWithExpiringSpecial(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSkuMasterRepository(db, nil)
	ctx := context.Background()
	cutoff := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	expiredA := masterFixture("SKU-A")
	expiredA.SpecialPriceEndDate = tptr(cutoff.AddDate(0, 0, -1))
	expiredB := masterFixture("SKU-B")
	expiredB.SpecialPriceEndDate = tptr(cutoff)
	future := masterFixture("SKU-C")
	future.SpecialPriceEndDate = tptr(cutoff.AddDate(0, 0, 7))
	noFallback := masterFixture("SKU-D")
	noFallback.Price = nil
	noFallback.SpecialPriceEndDate = tptr(cutoff.AddDate(0, 0, -1))

	_, err := repo.BulkUpsertOnlyIfChanged(ctx, nil, []*catalog.Master{expiredA, expiredB, future, noFallback})
	require.NoError(t, err)

	var batches [][]string
	err = repo.SkusWithExpiringSpecial(ctx, cutoff, 1, func(skus []string) error {
		batches = append(batches, skus)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"SKU-A"}, {"SKU-B"}}, batches)
}

func tptr(t time.Time) *time.Time { return &t }
