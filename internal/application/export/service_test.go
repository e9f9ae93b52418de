package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	"github.com/ozdirect/pricesync/internal/domain/catalog"
	exportdomain "github.com/ozdirect/pricesync/internal/domain/export"
	"github.com/ozdirect/pricesync/internal/domain/pricing"
	"github.com/ozdirect/pricesync/internal/domain/shared"
	"github.com/ozdirect/pricesync/internal/infrastructure/config"
	"github.com/ozdirect/pricesync/test/helpers"
)

type exportEnv struct {
	db      *gorm.DB
	svc     *Service
	masters *persistence.GormSkuMasterRepository
	results *persistence.GormFreightResultRepository
}

func newExportEnv(t *testing.T) *exportEnv {
	t.Helper()
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))
	masters := persistence.NewGormSkuMasterRepository(db, clock)
	results := persistence.NewGormFreightResultRepository(db, clock)
	svc := NewService(
		db,
		persistence.NewGormExportJobRepository(db),
		masters,
		results,
		persistence.NewGormBaselineRepository(db),
		&config.ExportConfig{BatchSize: 100},
		clock,
		zap.NewNop(),
	)
	return &exportEnv{db: db, svc: svc, masters: masters, results: results}
}

func (e *exportEnv) seedDirtySku(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	m := &catalog.Master{
		Sku:      "SKU-1",
		Price:    dp("30"),
		Weight:   dp("2"),
		RRP:      dp("59.95"),
		Brand:    "Acme",
		EAN:      "9300000000001",
		StockQty: intp(12),
		Freight: pricing.FreightRates{
			ACT: dp("10"),
		},
		AttrsHashCurrent: "h1",
	}
	_, err := e.masters.BulkUpsertOnlyIfChanged(ctx, nil, []*catalog.Master{m})
	require.NoError(t, err)

	// AU-only output change so NZ stays clean.
	_, err = e.results.UpdateChangedPrices(ctx,
		map[string]catalog.ResultChanges{"SKU-1": {
			catalog.ColKoganAuPrice: dp("44.87"),
			catalog.ColKoganK1Price: dp("39.87"),
			catalog.ColWeight:       dp("2"),
		}},
		map[string]string{"SKU-1": "h1"},
		catalog.SourceFullSync, "run-1")
	require.NoError(t, err)
}

func TestCreateExportJob(t *testing.T) {
	env := newExportEnv(t)
	env.seedDirtySku(t)
	ctx := context.Background()

	job, err := env.svc.CreateExportJob(ctx, catalog.CountryAU, "cli")
	require.NoError(t, err)
	assert.Equal(t, exportdomain.StatusExported, job.Status)
	assert.Equal(t, 1, job.RowCount)
	assert.Equal(t, "cli", job.CreatedBy)
	assert.Regexp(t, `^AU_20260824T100000_[0-9a-f]{6}$`, job.ID)
	assert.Regexp(t, `^diff_AU_20260824T100000_[0-9a-f]{6}\.csv$`, job.FileName)

	records, err := csv.NewReader(bytes.NewReader(job.CsvBlob)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, TemplateColumns(catalog.CountryAU), records[0])
	row := records[1]
	assert.Equal(t, "SKU-1", row[0])
	assert.Equal(t, "44.87", row[1], "AU Price is the Kogan AU price")
	assert.Equal(t, "59.95", row[2])
	assert.Equal(t, "39.87", row[3])
	assert.Empty(t, row[4], "Handling Days is never computed")
	assert.Equal(t, "9300000000001", row[5])

	// The round trip survives storage.
	stored, err := env.svc.GetExportJobFile(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.CsvBlob, stored.CsvBlob)
}

func TestCreateExportJob_NoDirtySkus(t *testing.T) {
	env := newExportEnv(t)
	env.seedDirtySku(t)

	// The seeded change touches only AU columns.
	_, err := env.svc.CreateExportJob(context.Background(), catalog.CountryNZ, "cli")
	require.Error(t, err)
	var noDirty *shared.NoDirtySkuError
	assert.ErrorAs(t, err, &noDirty)
	assert.Equal(t, catalog.CountryNZ, noDirty.Country)
}

func TestCreateExportJob_UnknownCountry(t *testing.T) {
	env := newExportEnv(t)
	_, err := env.svc.CreateExportJob(context.Background(), "UK", "cli")
	assert.Error(t, err)
}

func TestApplyExportJob(t *testing.T) {
	env := newExportEnv(t)
	env.seedDirtySku(t)
	ctx := context.Background()

	job, err := env.svc.CreateExportJob(ctx, catalog.CountryAU, "cli")
	require.NoError(t, err)

	require.NoError(t, env.svc.ApplyExportJob(ctx, job.ID, "ops"))

	applied, err := env.svc.GetExportJobFile(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, exportdomain.StatusApplied, applied.Status)
	assert.Equal(t, "ops", applied.AppliedBy)
	require.NotNil(t, applied.AppliedAt)

	baselines := persistence.NewGormBaselineRepository(env.db)
	rows, err := baselines.LoadBySkus(ctx, catalog.CountryAU, []string{"SKU-1"})
	require.NoError(t, err)
	assert.Equal(t, "44.87", rows["SKU-1"]["Price"])
	assert.Equal(t, "59.95", rows["SKU-1"]["RRP"])

	dirty, err := env.results.CountDirty(ctx, catalog.CountryAU)
	require.NoError(t, err)
	assert.Zero(t, dirty)

	// Applied baselines leave nothing to export.
	_, err = env.svc.CreateExportJob(ctx, catalog.CountryAU, "cli")
	var noDirty *shared.NoDirtySkuError
	assert.ErrorAs(t, err, &noDirty)
}

func TestApplyExportJob_OnlyFromExported(t *testing.T) {
	env := newExportEnv(t)
	env.seedDirtySku(t)
	ctx := context.Background()

	job, err := env.svc.CreateExportJob(ctx, catalog.CountryAU, "cli")
	require.NoError(t, err)
	require.NoError(t, env.svc.ApplyExportJob(ctx, job.ID, "ops"))

	err = env.svc.ApplyExportJob(ctx, job.ID, "ops")
	require.Error(t, err)
	var notApplicable *shared.ExportJobNotApplicableError
	assert.ErrorAs(t, err, &notApplicable)
	assert.Equal(t, exportdomain.StatusApplied, notApplicable.Status)
}

func TestCreateExportJob_SubCentDriftDoesNotReExport(t *testing.T) {
	env := newExportEnv(t)
	env.seedDirtySku(t)
	ctx := context.Background()

	job, err := env.svc.CreateExportJob(ctx, catalog.CountryAU, "cli")
	require.NoError(t, err)
	require.NoError(t, env.svc.ApplyExportJob(ctx, job.ID, "ops"))

	// Re-dirty the SKU with a price shift below the export tolerance.
	_, err = env.results.UpdateChangedPrices(ctx,
		map[string]catalog.ResultChanges{"SKU-1": {
			catalog.ColKoganAuPrice: dp("44.872"),
		}},
		map[string]string{"SKU-1": "h2"},
		catalog.SourcePriceReset, "run-2")
	require.NoError(t, err)

	_, err = env.svc.CreateExportJob(ctx, catalog.CountryAU, "cli")
	var noDirty *shared.NoDirtySkuError
	assert.ErrorAs(t, err, &noDirty, "a diff below tolerance yields no exportable rows")
}
