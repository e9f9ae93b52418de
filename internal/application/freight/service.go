package freight

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	"github.com/ozdirect/pricesync/internal/domain/catalog"
	"github.com/ozdirect/pricesync/internal/domain/pricing"
	"github.com/ozdirect/pricesync/internal/domain/shared"
	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
	"github.com/ozdirect/pricesync/internal/infrastructure/config"
	"github.com/ozdirect/pricesync/internal/infrastructure/tasks"
)

// Service runs freight calculations: it picks the SKUs whose pricing inputs
// changed, recomputes every output, and writes only the columns that
// actually moved.
type Service struct {
	runs       *persistence.GormFreightCalcRunRepository
	masters    *persistence.GormSkuMasterRepository
	results    *persistence.GormFreightResultRepository
	candidates *persistence.GormChangeCandidateRepository
	cfgRepo    *persistence.GormCalculatorConfigRepository
	queue      *tasks.Queue
	syncCfg    *config.SyncConfig
	clock      shared.Clock
	logger     *zap.Logger
}

// NewService creates the freight calculation orchestrator.
func NewService(
	runs *persistence.GormFreightCalcRunRepository,
	masters *persistence.GormSkuMasterRepository,
	results *persistence.GormFreightResultRepository,
	candidates *persistence.GormChangeCandidateRepository,
	cfgRepo *persistence.GormCalculatorConfigRepository,
	queue *tasks.Queue,
	syncCfg *config.SyncConfig,
	clock shared.Clock,
	logger *zap.Logger,
) *Service {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Service{
		runs:       runs,
		masters:    masters,
		results:    results,
		candidates: candidates,
		cfgRepo:    cfgRepo,
		queue:      queue,
		syncCfg:    syncCfg,
		clock:      clock,
		logger:     logger,
	}
}

// Kick inserts the run record and enqueues the calculation phase. The run id
// is the epoch-millisecond timestamp, which also stamps every row the run
// touches.
func (s *Service) Kick(ctx context.Context, trigger, productRunID string) error {
	run := &syncdomain.CalcRun{
		ID:           fmt.Sprintf("fc_%d", s.clock.Now().UnixMilli()),
		Status:       syncdomain.CalcStatusRunning,
		Trigger:      trigger,
		ProductRunID: productRunID,
		StartedAt:    s.clock.Now(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return err
	}
	s.queue.Enqueue("freight_calc", "fc:"+run.ID, func(ctx context.Context) error {
		return s.Run(ctx, run.ID)
	})
	return nil
}

// Run executes one calculation pass. Candidates come from the product run's
// change candidates filtered to pricing-relevant fields, or, for manual
// runs, from a hash-mismatch scan over the whole master store.
func (s *Service) Run(ctx context.Context, runID string) error {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("freight calc run %s not found", runID)
	}

	if err := s.execute(ctx, run); err != nil {
		run.Status = syncdomain.CalcStatusFailed
		run.Message = truncateMsg(err.Error())
		now := s.clock.Now()
		run.FinishedAt = &now
		if updateErr := s.runs.Update(ctx, run); updateErr != nil {
			s.logger.Error("failed to persist calc run failure", zap.Error(updateErr))
		}
		return err
	}
	return nil
}

func (s *Service) execute(ctx context.Context, run *syncdomain.CalcRun) error {
	cfg, err := s.cfgRepo.Load(ctx)
	if err != nil {
		return err
	}

	batchSize := s.syncCfg.CalcBatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	candidateCount := 0
	changedCount := 0
	process := func(skus []string) error {
		candidateCount += len(skus)
		changed, err := s.calculateBatch(ctx, skus, cfg, run)
		if err != nil {
			return err
		}
		changedCount += changed
		return nil
	}

	if run.ProductRunID != "" {
		mask := catalog.PricingRelevantFields()
		err = s.candidates.ForRun(ctx, run.ProductRunID, mask, batchSize, func(batch []*syncdomain.ChangeCandidate) error {
			skus := make([]string, len(batch))
			for i, c := range batch {
				skus[i] = c.SkuCode
			}
			return process(skus)
		})
	} else {
		var skus []string
		skus, err = s.masters.AllSkusNeedingCalc(ctx)
		if err == nil {
			for start := 0; start < len(skus); start += batchSize {
				end := start + batchSize
				if end > len(skus) {
					end = len(skus)
				}
				if err = process(skus[start:end]); err != nil {
					break
				}
			}
		}
	}
	if err != nil {
		return err
	}

	run.CandidateCount = candidateCount
	run.ChangedCount = changedCount
	if candidateCount == 0 {
		run.Status = syncdomain.CalcStatusNoOp
		run.Message = "no candidates"
	} else {
		run.Status = syncdomain.CalcStatusCompleted
	}
	now := s.clock.Now()
	run.FinishedAt = &now
	if err := s.runs.Update(ctx, run); err != nil {
		return err
	}

	s.logger.Info("freight calc run finished",
		zap.String("run_id", run.ID),
		zap.String("status", run.Status),
		zap.Int("candidates", candidateCount),
		zap.Int("changed", changedCount))
	return nil
}

// calculateBatch recomputes one batch and persists only the changed columns.
// Every touched SKU's calc hash advances to its current attribute hash so it
// is not re-selected by later manual scans.
func (s *Service) calculateBatch(ctx context.Context, skus []string, cfg pricing.Config, run *syncdomain.CalcRun) (int, error) {
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
		outputs := pricing.ComputeAll(m.PricingInputs(), cfg)
		changes[sku] = catalog.DiffOutputs(existing[sku], outputs)
		hashes[sku] = m.AttrsHashCurrent
	}

	return s.results.UpdateChangedPrices(ctx, changes, hashes, catalog.SourceFullSync, run.ID)
}

func truncateMsg(msg string) string {
	if len(msg) > 500 {
		return msg[:500]
	}
	return msg
}
