package persistence_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	"github.com/ozdirect/pricesync/internal/domain/pricing"
	"github.com/ozdirect/pricesync/test/helpers"
)

func TestCalculatorConfigLoad_SeedsDefaults(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormCalculatorConfigRepository(db)
	ctx := context.Background()

	cfg, err := repo.Load(ctx)
	require.NoError(t, err)
	defaults := pricing.DefaultConfig()
	assert.True(t, cfg.AdjustThreshold.Equal(defaults.AdjustThreshold))
	assert.True(t, cfg.KoganAuNormalLowDenom.Equal(defaults.KoganAuNormalLowDenom))
	assert.True(t, cfg.WeightCalcDivisor.Equal(defaults.WeightCalcDivisor))

	// Seeding is one-shot; a second load reads the stored row.
	again, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, again.AdjustThreshold.Equal(cfg.AdjustThreshold))
}

func TestCalculatorConfigSaveAndLoad(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormCalculatorConfigRepository(db)
	ctx := context.Background()

	cfg, err := repo.Load(ctx)
	require.NoError(t, err)
	cfg.AdjustThreshold = decimal.NewFromInt(150)
	cfg.K1Threshold = decimal.NewFromInt(60)
	require.NoError(t, repo.Save(ctx, cfg))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.AdjustThreshold.Equal(decimal.NewFromInt(150)))
	assert.True(t, got.K1Threshold.Equal(decimal.NewFromInt(60)))
}
