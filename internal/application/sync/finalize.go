package sync

import (
	"context"

	"go.uber.org/zap"

	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
)

// finalize aggregates the chunk manifest into the run record, decides the
// terminal status, surfaces health alerts and triggers the post-sync freight
// calculation. Safe to call more than once: a terminal run is left alone.
func (s *Service) finalize(ctx context.Context, runID string) error {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.Terminal() {
		return nil
	}

	manifest, err := s.chunks.ForRun(ctx, runID)
	if err != nil {
		return err
	}

	// Every chunk must be terminal before the run can be. A deduped
	// re-dispatch or the webhook racing the poll can request finalization
	// while the surviving chunk task is still working; that task's barrier
	// finalizes again once it finishes.
	open := 0
	for _, c := range manifest {
		if c.Status == syncdomain.ChunkStatusPending || c.Status == syncdomain.ChunkStatusRunning {
			open++
		}
	}
	if open > 0 {
		s.logger.Info("finalize deferred, chunks still open",
			zap.String("run_id", runID),
			zap.Int("open_chunks", open))
		return nil
	}

	var agg syncdomain.ChunkStats
	failedChunks := 0
	for _, c := range manifest {
		agg.Merge(c.Stats)
		if c.Status == syncdomain.ChunkStatusFailed {
			failedChunks++
		}
	}

	changeCount, err := s.candidates.CountForRun(ctx, runID)
	if err != nil {
		return err
	}
	run.ChangeCount = int(changeCount)

	gaps := failedChunks > 0 || agg.MissingCount > 0
	if gaps {
		run.Status = syncdomain.RunStatusCompletedWithGaps
	} else {
		run.Status = syncdomain.RunStatusCompleted
	}
	now := s.clock.Now()
	run.FinishedAt = &now
	if err := s.runs.Update(ctx, run); err != nil {
		return err
	}

	s.alertOnHealth(run, agg, failedChunks)

	s.logger.Info("sync run finalized",
		zap.String("run_id", run.ID),
		zap.String("status", run.Status),
		zap.Int("total_skus", run.TotalShopifySkus),
		zap.Int("change_count", run.ChangeCount),
		zap.Int("failed_chunks", failedChunks))

	if s.freight != nil {
		if err := s.freight.Kick(ctx, syncdomain.CalcTriggerPostSync, run.ID); err != nil {
			s.logger.Error("failed to kick freight calculation", zap.Error(err))
		}
	}
	return nil
}

// alertOnHealth logs warn-level alerts when the aggregate supplier health
// crosses the configured thresholds.
func (s *Service) alertOnHealth(run *syncdomain.Run, agg syncdomain.ChunkStats, failedChunks int) {
	if agg.RequestedTotal > 0 {
		ratio := float64(agg.MissingCount) / float64(agg.RequestedTotal)
		if ratio > s.syncCfg.AlertMissingRatio {
			s.logger.Warn("missing SKU ratio above threshold",
				zap.String("run_id", run.ID),
				zap.Float64("ratio", ratio),
				zap.Float64("threshold", s.syncCfg.AlertMissingRatio),
				zap.Int("missing", agg.MissingCount),
				zap.Strings("examples", agg.MissingExamples))
		}
	}
	if agg.FailedBatchesCount > s.syncCfg.AlertFailedBatches {
		s.logger.Warn("failed supplier batches above threshold",
			zap.String("run_id", run.ID),
			zap.Int("failed_batches", agg.FailedBatchesCount),
			zap.Int("threshold", s.syncCfg.AlertFailedBatches))
	}
	if agg.FailedSkusCount > s.syncCfg.AlertFailedSkus {
		s.logger.Warn("failed SKUs above threshold",
			zap.String("run_id", run.ID),
			zap.Int("failed_skus", agg.FailedSkusCount),
			zap.Int("threshold", s.syncCfg.AlertFailedSkus),
			zap.Strings("examples", agg.FailedExamples))
	}
	if failedChunks > 0 {
		s.logger.Warn("run finished with failed chunks",
			zap.String("run_id", run.ID),
			zap.Int("failed_chunks", failedChunks))
	}
}
