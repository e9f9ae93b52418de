package freight

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	"github.com/ozdirect/pricesync/internal/domain/catalog"
	"github.com/ozdirect/pricesync/internal/domain/pricing"
	"github.com/ozdirect/pricesync/internal/domain/shared"
	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
	"github.com/ozdirect/pricesync/internal/infrastructure/config"
	"github.com/ozdirect/pricesync/internal/infrastructure/tasks"
	"github.com/ozdirect/pricesync/test/helpers"
)

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

type calcEnv struct {
	svc        *Service
	clock      *shared.MockClock
	queue      *tasks.Queue
	runs       *persistence.GormFreightCalcRunRepository
	masters    *persistence.GormSkuMasterRepository
	results    *persistence.GormFreightResultRepository
	candidates *persistence.GormChangeCandidateRepository
}

func newCalcEnv(t *testing.T) *calcEnv {
	t.Helper()
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))
	queue := tasks.NewQueue(2, 0, zap.NewNop())
	t.Cleanup(queue.Shutdown)

	env := &calcEnv{
		clock:      clock,
		queue:      queue,
		runs:       persistence.NewGormFreightCalcRunRepository(db),
		masters:    persistence.NewGormSkuMasterRepository(db, clock),
		results:    persistence.NewGormFreightResultRepository(db, clock),
		candidates: persistence.NewGormChangeCandidateRepository(db),
	}
	env.svc = NewService(
		env.runs, env.masters, env.results, env.candidates,
		persistence.NewGormCalculatorConfigRepository(db),
		queue,
		&config.SyncConfig{ChunkSize: 100, CalcBatchSize: 100, Workers: 2, BarrierSplitThreshold: 200, Timezone: "UTC"},
		clock,
		zap.NewNop(),
	)
	return env
}

func (e *calcEnv) seedMaster(t *testing.T, sku string) {
	t.Helper()
	m := &catalog.Master{
		Sku:          sku,
		Price:        dp("30"),
		SpecialPrice: dp("25"),
		Weight:       dp("2"),
		CBM:          dp("0.02"),
		Freight: pricing.FreightRates{
			ACT: dp("10"), NswM: dp("10"), NswR: dp("10"), NtM: dp("10"),
			QldM: dp("10"), QldR: dp("10"), SaM: dp("10"), SaR: dp("10"),
			TasM: dp("10"), TasR: dp("10"), VicM: dp("10"), VicR: dp("10"),
			WaM: dp("10"), Remote: dp("25"), WaR: dp("20"), NZ: dp("40"),
		},
		AttrsHashCurrent: "hash-" + sku,
	}
	_, err := e.masters.BulkUpsertOnlyIfChanged(context.Background(), nil, []*catalog.Master{m})
	require.NoError(t, err)
}

func TestKick_ManualRunWithNoWork(t *testing.T) {
	env := newCalcEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Kick(ctx, syncdomain.CalcTriggerManual, ""))
	env.queue.Wait()

	runID := fmt.Sprintf("fc_%d", env.clock.Now().UnixMilli())
	run, err := env.runs.FindByID(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, syncdomain.CalcStatusNoOp, run.Status)
	assert.Zero(t, run.CandidateCount)
	assert.NotNil(t, run.FinishedAt)
}

func TestKick_ManualScanComputesAndConverges(t *testing.T) {
	env := newCalcEnv(t)
	ctx := context.Background()
	env.seedMaster(t, "SKU-1")

	require.NoError(t, env.svc.Kick(ctx, syncdomain.CalcTriggerManual, ""))
	env.queue.Wait()

	runID := fmt.Sprintf("fc_%d", env.clock.Now().UnixMilli())
	run, err := env.runs.FindByID(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, syncdomain.CalcStatusCompleted, run.Status)
	assert.Equal(t, 1, run.CandidateCount)
	assert.Equal(t, 1, run.ChangedCount)

	rows, err := env.results.QueryExistingResultsMap(ctx, []string{"SKU-1"})
	require.NoError(t, err)
	row := rows["SKU-1"]
	require.NotNil(t, row)
	assert.Equal(t, "hash-SKU-1", row.AttrsHashLastCalc, "the calc hash converges to the master hash")
	require.NotNil(t, row.Outputs.SellingPrice)
	assert.True(t, row.Outputs.SellingPrice.Equal(*dp("25")), "the special price wins while the promotion runs")
	assert.Equal(t, runID, row.LastChangedRunID)

	// A second manual scan finds nothing stale.
	env.clock.Advance(time.Minute)
	require.NoError(t, env.svc.Kick(ctx, syncdomain.CalcTriggerManual, ""))
	env.queue.Wait()

	secondID := fmt.Sprintf("fc_%d", env.clock.Now().UnixMilli())
	second, err := env.runs.FindByID(ctx, secondID)
	require.NoError(t, err)
	assert.Equal(t, syncdomain.CalcStatusNoOp, second.Status)
}

func TestRun_CandidateDrivenFiltersNonPricingFields(t *testing.T) {
	env := newCalcEnv(t)
	ctx := context.Background()
	env.seedMaster(t, "SKU-1")
	env.seedMaster(t, "SKU-2")

	require.NoError(t, env.candidates.Save(ctx, nil, []*syncdomain.ChangeCandidate{
		{RunID: "ps-run", SkuCode: "SKU-1", ChangedFields: []string{"price"}, NewValues: map[string]interface{}{"price": "30"}},
		{RunID: "ps-run", SkuCode: "SKU-2", ChangedFields: []string{"brand"}, NewValues: map[string]interface{}{"brand": "Acme"}},
	}))

	run := &syncdomain.CalcRun{
		ID:           "fc_test",
		Status:       syncdomain.CalcStatusRunning,
		Trigger:      syncdomain.CalcTriggerPostSync,
		ProductRunID: "ps-run",
		StartedAt:    env.clock.Now(),
	}
	require.NoError(t, env.runs.Create(ctx, run))
	require.NoError(t, env.svc.Run(ctx, "fc_test"))

	got, err := env.runs.FindByID(ctx, "fc_test")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.CalcStatusCompleted, got.Status)
	assert.Equal(t, 1, got.CandidateCount, "the brand-only candidate is not a pricing candidate")
	assert.Equal(t, 1, got.ChangedCount)

	rows, err := env.results.QueryExistingResultsMap(ctx, []string{"SKU-1", "SKU-2"})
	require.NoError(t, err)
	assert.Contains(t, rows, "SKU-1")
	assert.NotContains(t, rows, "SKU-2")
}
