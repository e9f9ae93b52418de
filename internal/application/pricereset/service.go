package pricereset

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	"github.com/ozdirect/pricesync/internal/domain/catalog"
	"github.com/ozdirect/pricesync/internal/domain/pricing"
	"github.com/ozdirect/pricesync/internal/domain/shared"
	"github.com/ozdirect/pricesync/internal/infrastructure/config"
)

// Service rolls prices back to their regular values when promotions expire.
// It recomputes every output with the special price removed and writes only
// the columns that moved. No persistent run record; the epoch-ms run id only
// stamps the touched rows.
type Service struct {
	masters *persistence.GormSkuMasterRepository
	results *persistence.GormFreightResultRepository
	cfgRepo *persistence.GormCalculatorConfigRepository
	syncCfg *config.SyncConfig
	clock   shared.Clock
	logger  *zap.Logger
}

// NewService creates the price-rollback orchestrator.
func NewService(
	masters *persistence.GormSkuMasterRepository,
	results *persistence.GormFreightResultRepository,
	cfgRepo *persistence.GormCalculatorConfigRepository,
	syncCfg *config.SyncConfig,
	clock shared.Clock,
	logger *zap.Logger,
) *Service {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Service{
		masters: masters,
		results: results,
		cfgRepo: cfgRepo,
		syncCfg: syncCfg,
		clock:   clock,
		logger:  logger,
	}
}

// Run recomputes every SKU whose promotion ends on or before tomorrow in the
// configured timezone. Returns the number of SKUs whose outputs changed.
func (s *Service) Run(ctx context.Context) (int, error) {
	cfg, err := s.cfgRepo.Load(ctx)
	if err != nil {
		return 0, err
	}

	loc, err := time.LoadLocation(s.syncCfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	now := s.clock.Now().In(loc)
	// End of tomorrow: a promotion ending tomorrow is already in scope.
	cutoff := time.Date(now.Year(), now.Month(), now.Day()+1, 23, 59, 59, 0, loc)

	runID := fmt.Sprintf("pr_%d", s.clock.Now().UnixMilli())
	batchSize := s.syncCfg.CalcBatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	total := 0
	err = s.masters.SkusWithExpiringSpecial(ctx, cutoff, batchSize, func(skus []string) error {
		changed, err := s.resetBatch(ctx, skus, cfg, runID)
		if err != nil {
			return err
		}
		total += changed
		return nil
	})
	if err != nil {
		return total, err
	}

	s.logger.Info("price reset finished",
		zap.String("run_id", runID),
		zap.Int("changed", total))
	return total, nil
}

func (s *Service) resetBatch(ctx context.Context, skus []string, cfg pricing.Config, runID string) (int, error) {
	masters, err := s.masters.LoadExistingBySkus(ctx, skus)
	if err != nil {
		return 0, err
	}
	existing, err := s.results.QueryExistingResultsMap(ctx, skus)
	if err != nil {
		return 0, err
	}

	changes := make(map[string]catalog.ResultChanges, len(skus))
	hashes := make(map[string]string, len(skus))
	for _, sku := range skus {
		m, ok := masters[sku]
		if !ok {
			continue
		}
		inputs := m.PricingInputs()
		inputs.SpecialPrice = nil
		outputs := pricing.ComputeAll(inputs, cfg)
		diff := catalog.DiffOutputs(existing[sku], outputs)
		if len(diff) == 0 {
			continue
		}
		changes[sku] = diff
		hashes[sku] = m.AttrsHashCurrent
	}
	if len(changes) == 0 {
		return 0, nil
	}

	return s.results.UpdateChangedPrices(ctx, changes, hashes, catalog.SourcePriceReset, runID)
}
