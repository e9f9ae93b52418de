package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	"github.com/ozdirect/pricesync/internal/domain/export"
	"github.com/ozdirect/pricesync/internal/domain/shared"
	"github.com/ozdirect/pricesync/test/helpers"
)

func exportJobFixture() (*export.Job, []*export.JobSku) {
	job := &export.Job{
		ID:        "AU_20260824T100000_a1b2c3",
		Country:   "AU",
		Status:    export.StatusExported,
		FileName:  "diff_AU_20260824T100000_a1b2c3.csv",
		RowCount:  2,
		CsvBlob:   []byte("SKU,Price\nSKU-A,44.87\nSKU-B,12.00\n"),
		CreatedBy: "cli",
		CreatedAt: time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
	}
	skus := []*export.JobSku{
		{JobID: job.ID, SkuCode: "SKU-B", Payload: map[string]string{"SKU": "SKU-B", "Price": "12.00"}, ChangedColumns: []string{"Price"}},
		{JobID: job.ID, SkuCode: "SKU-A", Payload: map[string]string{"SKU": "SKU-A", "Price": "44.87"}, ChangedColumns: []string{"Price"}},
	}
	return job, skus
}

func TestExportJobCreateAndLoad(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormExportJobRepository(db)
	ctx := context.Background()

	job, skus := exportJobFixture()
	require.NoError(t, repo.Create(ctx, job, skus))

	got, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Country, got.Country)
	assert.Equal(t, export.StatusExported, got.Status)
	assert.Equal(t, job.FileName, got.FileName)
	assert.Equal(t, 2, got.RowCount)
	assert.Equal(t, job.CsvBlob, got.CsvBlob)

	rows, err := repo.SkusForJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "SKU-A", rows[0].SkuCode, "rows come back ordered by SKU")
	assert.Equal(t, map[string]string{"SKU": "SKU-A", "Price": "44.87"}, rows[0].Payload)
	assert.Equal(t, []string{"Price"}, rows[0].ChangedColumns)
}

func TestExportJobFindByID_NotFound(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormExportJobRepository(db)

	_, err := repo.FindByID(context.Background(), "missing")
	require.Error(t, err)
	var nf *shared.ExportJobNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestExportJobUpdateStatus(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormExportJobRepository(db)
	ctx := context.Background()

	job, skus := exportJobFixture()
	require.NoError(t, repo.Create(ctx, job, skus))

	applied := time.Date(2026, 8, 24, 11, 0, 0, 0, time.UTC)
	job.Status = export.StatusApplied
	job.AppliedBy = "ops"
	job.AppliedAt = &applied
	require.NoError(t, repo.UpdateStatus(ctx, nil, job))

	got, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, export.StatusApplied, got.Status)
	assert.Equal(t, "ops", got.AppliedBy)
	require.NotNil(t, got.AppliedAt)
	assert.True(t, got.AppliedAt.Equal(applied))
}
