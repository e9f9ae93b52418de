package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	"github.com/ozdirect/pricesync/internal/adapters/storefront"
	"github.com/ozdirect/pricesync/internal/adapters/supplier"
	"github.com/ozdirect/pricesync/internal/domain/shared"
	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
	"github.com/ozdirect/pricesync/internal/infrastructure/config"
	"github.com/ozdirect/pricesync/internal/infrastructure/tasks"
)

// FreightKicker starts a freight calculation run after a sync finalizes.
type FreightKicker interface {
	Kick(ctx context.Context, trigger, productRunID string) error
}

// Service orchestrates the full synchronization pipeline: bulk export,
// polling, chunk scheduling, chunk processing and finalization.
type Service struct {
	db         *gorm.DB
	runs       *persistence.GormSyncRunRepository
	chunks     *persistence.GormSyncChunkRepository
	masters    *persistence.GormSkuMasterRepository
	candidates *persistence.GormChangeCandidateRepository
	supplier   *supplier.Client
	storefront *storefront.BulkClient
	queue      *tasks.Queue
	freight    FreightKicker
	syncCfg    *config.SyncConfig
	sfCfg      *config.StorefrontConfig
	clock      shared.Clock
	logger     *zap.Logger
	location   *time.Location
}

// NewService creates the sync orchestrator. The timezone comes from
// SyncConfig and falls back to UTC when it cannot be loaded.
func NewService(
	db *gorm.DB,
	runs *persistence.GormSyncRunRepository,
	chunks *persistence.GormSyncChunkRepository,
	masters *persistence.GormSkuMasterRepository,
	candidates *persistence.GormChangeCandidateRepository,
	supplierClient *supplier.Client,
	storefrontClient *storefront.BulkClient,
	queue *tasks.Queue,
	freight FreightKicker,
	syncCfg *config.SyncConfig,
	sfCfg *config.StorefrontConfig,
	clock shared.Clock,
	logger *zap.Logger,
) *Service {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	loc, err := time.LoadLocation(syncCfg.Timezone)
	if err != nil {
		logger.Warn("failed to load sync timezone, using UTC", zap.String("timezone", syncCfg.Timezone))
		loc = time.UTC
	}
	return &Service{
		db:         db,
		runs:       runs,
		chunks:     chunks,
		masters:    masters,
		candidates: candidates,
		supplier:   supplierClient,
		storefront: storefrontClient,
		queue:      queue,
		freight:    freight,
		syncCfg:    syncCfg,
		sfCfg:      sfCfg,
		clock:      clock,
		logger:     logger,
		location:   loc,
	}
}

// StartFullSync begins a new run, or resumes the running one. Exactly one
// run can be active; a second start while one is running resumes it instead
// of creating a duplicate.
func (s *Service) StartFullSync(ctx context.Context, runType string) (*syncdomain.Run, error) {
	active, err := s.runs.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		s.logger.Info("resuming active sync run", zap.String("run_id", active.ID))
		if err := s.resume(ctx, active); err != nil {
			return nil, err
		}
		return active, nil
	}

	run := &syncdomain.Run{
		ID:        uuid.New().String(),
		Status:    syncdomain.RunStatusRunning,
		RunType:   runType,
		StartedAt: s.clock.Now(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	op, err := s.storefront.StartBulkQuery(ctx)
	if err != nil {
		s.failRun(ctx, run, fmt.Sprintf("bulk start failed: %v", err))
		return nil, err
	}
	run.ShopifyBulkID = op.ID
	if err := s.runs.Update(ctx, run); err != nil {
		return nil, err
	}

	s.enqueuePoll(run)
	return run, nil
}

// resume restarts whatever phase an interrupted run was in.
func (s *Service) resume(ctx context.Context, run *syncdomain.Run) error {
	if run.ShopifyBulkURL == "" {
		s.enqueuePoll(run)
		return nil
	}
	manifest, err := s.chunks.ForRun(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(manifest) == 0 {
		return s.scheduleChunks(ctx, run)
	}
	unfinished, err := s.chunks.Unfinished(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(unfinished) == 0 {
		return s.finalize(ctx, run.ID)
	}
	s.dispatchChunks(run, unfinished, nil)
	return nil
}

func (s *Service) enqueuePoll(run *syncdomain.Run) {
	taskID := fmt.Sprintf("poll:%s", run.ShopifyBulkID)
	s.queue.Enqueue("poll_bulk", taskID, func(ctx context.Context) error {
		return s.pollBulk(ctx, run.ID)
	})
}

func (s *Service) failRun(ctx context.Context, run *syncdomain.Run, reason string) {
	s.logger.Error("sync run failed", zap.String("run_id", run.ID), zap.String("reason", reason))
	run.Status = syncdomain.RunStatusFailed
	now := s.clock.Now()
	run.FinishedAt = &now
	if err := s.runs.Update(ctx, run); err != nil {
		s.logger.Error("failed to persist run failure", zap.Error(err))
	}
}
