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

func TestCandidateSave_UpsertsOnRunAndSku(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormChangeCandidateRepository(db)
	ctx := context.Background()

	first := &syncdomain.ChangeCandidate{
		RunID:         "run-1",
		SkuCode:       "SKU-1",
		ChangedFields: []string{"price"},
		NewValues:     map[string]interface{}{"price": "30"},
	}
	require.NoError(t, repo.Save(ctx, nil, []*syncdomain.ChangeCandidate{first}))

	// A retried chunk overwrites its earlier rows.
	second := &syncdomain.ChangeCandidate{
		RunID:         "run-1",
		SkuCode:       "SKU-1",
		ChangedFields: []string{"price", "weight"},
		NewValues:     map[string]interface{}{"price": "31", "weight": "2.5"},
	}
	require.NoError(t, repo.Save(ctx, nil, []*syncdomain.ChangeCandidate{second}))

	n, err := repo.CountForRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var got []*syncdomain.ChangeCandidate
	err = repo.ForRun(ctx, "run-1", nil, 100, func(batch []*syncdomain.ChangeCandidate) error {
		got = append(got, batch...)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"price", "weight"}, got[0].ChangedFields)
	assert.Equal(t, "31", got[0].NewValues["price"])
}

func TestCandidateSave_RejectsEmptyChangeSet(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormChangeCandidateRepository(db)

	err := repo.Save(context.Background(), nil, []*syncdomain.ChangeCandidate{{
		RunID:   "run-1",
		SkuCode: "SKU-1",
	}})
	assert.Error(t, err)
}

func TestCandidateForRun_FieldFilterAndPagination(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormChangeCandidateRepository(db)
	ctx := context.Background()

	candidates := []*syncdomain.ChangeCandidate{
		{RunID: "run-1", SkuCode: "SKU-A", ChangedFields: []string{"price"}, NewValues: map[string]interface{}{"price": "30"}},
		{RunID: "run-1", SkuCode: "SKU-B", ChangedFields: []string{"brand"}, NewValues: map[string]interface{}{"brand": "Acme"}},
		{RunID: "run-1", SkuCode: "SKU-C", ChangedFields: []string{"act"}, NewValues: map[string]interface{}{"act": "10"}},
		{RunID: "run-2", SkuCode: "SKU-A", ChangedFields: []string{"price"}, NewValues: map[string]interface{}{"price": "99"}},
	}
	require.NoError(t, repo.Save(ctx, nil, candidates))

	pricingFields := map[string]bool{"price": true, "act": true}
	var skus []string
	err := repo.ForRun(ctx, "run-1", pricingFields, 1, func(batch []*syncdomain.ChangeCandidate) error {
		for _, c := range batch {
			skus = append(skus, c.SkuCode)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"SKU-A", "SKU-C"}, skus, "brand-only candidates are filtered out, other runs are invisible")
}
