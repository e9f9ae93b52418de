package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	scheduledomain "github.com/ozdirect/pricesync/internal/domain/schedule"
	"github.com/ozdirect/pricesync/internal/domain/shared"
	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
	"github.com/ozdirect/pricesync/internal/infrastructure/config"
	"github.com/ozdirect/pricesync/internal/infrastructure/tasks"
)

// SyncStarter begins or resumes a full catalog synchronization.
type SyncStarter interface {
	StartFullSync(ctx context.Context, runType string) (*syncdomain.Run, error)
}

// PriceResetter rolls expiring promotions back to regular prices.
type PriceResetter interface {
	Run(ctx context.Context) (int, error)
}

// Service evaluates the schedule entries on a fixed tick and fires the due
// jobs. The last-run stamp commits in the same transaction that enqueues the
// work so a crash between the two cannot double-fire.
type Service struct {
	db      *gorm.DB
	entries *persistence.GormScheduleRepository
	queue   *tasks.Queue
	sync    SyncStarter
	reset   PriceResetter
	cfg     *config.ScheduleConfig
	clock   shared.Clock
	logger  *zap.Logger
}

// NewService creates the scheduler.
func NewService(
	db *gorm.DB,
	entries *persistence.GormScheduleRepository,
	queue *tasks.Queue,
	sync SyncStarter,
	reset PriceResetter,
	cfg *config.ScheduleConfig,
	clock shared.Clock,
	logger *zap.Logger,
) *Service {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Service{
		db:      db,
		entries: entries,
		queue:   queue,
		sync:    sync,
		reset:   reset,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
	}
}

// Run ticks until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("scheduler tick failed", zap.Error(err))
			}
		}
	}
}

// Tick evaluates every enabled entry once and fires the due ones.
func (s *Service) Tick(ctx context.Context) error {
	entries, err := s.entries.EnabledEntries(ctx)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	for _, entry := range entries {
		loc, err := time.LoadLocation(entry.Timezone)
		if err != nil {
			s.logger.Error("schedule entry has invalid timezone",
				zap.String("job_key", entry.JobKey),
				zap.String("timezone", entry.Timezone))
			continue
		}
		due, err := entry.DueAt(now, s.cfg.TriggerWindow, loc)
		if err != nil {
			s.logger.Error("schedule entry evaluation failed",
				zap.String("job_key", entry.JobKey),
				zap.Error(err))
			continue
		}
		if !due {
			continue
		}
		if err := s.fire(ctx, entry, now); err != nil {
			s.logger.Error("failed to fire scheduled job",
				zap.String("job_key", entry.JobKey),
				zap.Error(err))
		}
	}
	return nil
}

// fire enqueues the entry's job and stamps last_run_at in one transaction.
// The task id carries the target week's stamp so a concurrent tick on
// another host dedupes rather than double-runs.
func (s *Service) fire(ctx context.Context, entry *scheduledomain.Entry, now time.Time) error {
	task, err := s.taskFor(entry.JobKey)
	if err != nil {
		return err
	}
	taskID := entry.JobKey + ":" + now.UTC().Format("20060102")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.entries.MarkFired(ctx, tx, entry.JobKey, now.UTC()); err != nil {
			return err
		}
		if !s.queue.Enqueue(entry.JobKey, taskID, task) {
			s.logger.Info("scheduled job already queued",
				zap.String("job_key", entry.JobKey),
				zap.String("task_id", taskID))
		}
		return nil
	})
}

func (s *Service) taskFor(jobKey string) (tasks.Task, error) {
	switch jobKey {
	case scheduledomain.JobProductFullSync:
		return func(ctx context.Context) error {
			_, err := s.sync.StartFullSync(ctx, syncdomain.RunTypeScheduled)
			return err
		}, nil
	case scheduledomain.JobPriceReset:
		return func(ctx context.Context) error {
			_, err := s.reset.Run(ctx)
			return err
		}, nil
	default:
		return nil, shared.NewValidationError("job_key", "unknown scheduled job "+jobKey)
	}
}
