package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
	"github.com/ozdirect/pricesync/internal/domain/shared"
)

// GormSyncChunkRepository implements the chunk manifest using GORM
type GormSyncChunkRepository struct {
	db    *gorm.DB
	clock shared.Clock
}

// NewGormSyncChunkRepository creates a new GORM sync chunk repository
func NewGormSyncChunkRepository(db *gorm.DB, clock shared.Clock) *GormSyncChunkRepository {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormSyncChunkRepository{db: db, clock: clock}
}

// UpsertPending records a chunk as pending. Re-streaming the same run hits
// the same (run_id, chunk_idx) rows; rows already past pending are left
// untouched so completed work is never reset.
func (r *GormSyncChunkRepository) UpsertPending(ctx context.Context, chunk *syncdomain.Chunk) error {
	codes, err := json.Marshal(chunk.SkuCodes)
	if err != nil {
		return fmt.Errorf("failed to marshal sku codes: %w", err)
	}
	model := SyncChunkModel{
		RunID:        chunk.RunID,
		ChunkIdx:     chunk.ChunkIdx,
		Status:       syncdomain.ChunkStatusPending,
		SkuCodesJSON: string(codes),
		SkuCount:     len(chunk.SkuCodes),
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "chunk_idx"}},
		DoNothing: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}
	return nil
}

// MarkRunning transitions a chunk to running and stamps started_at.
func (r *GormSyncChunkRepository) MarkRunning(ctx context.Context, runID string, chunkIdx int) error {
	now := r.clock.Now()
	err := r.db.WithContext(ctx).Model(&SyncChunkModel{}).
		Where("run_id = ? AND chunk_idx = ?", runID, chunkIdx).
		Updates(map[string]interface{}{
			"status":     syncdomain.ChunkStatusRunning,
			"started_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark chunk running: %w", err)
	}
	return nil
}

// MarkSucceeded finishes a chunk with its stats.
func (r *GormSyncChunkRepository) MarkSucceeded(ctx context.Context, runID string, chunkIdx int, stats syncdomain.ChunkStats) error {
	return r.finish(ctx, runID, chunkIdx, syncdomain.ChunkStatusSucceeded, stats, "")
}

// MarkFailed finishes a chunk as failed, keeping whatever stats accumulated.
func (r *GormSyncChunkRepository) MarkFailed(ctx context.Context, runID string, chunkIdx int, stats syncdomain.ChunkStats, lastError string) error {
	return r.finish(ctx, runID, chunkIdx, syncdomain.ChunkStatusFailed, stats, lastError)
}

func (r *GormSyncChunkRepository) finish(ctx context.Context, runID string, chunkIdx int, status string, stats syncdomain.ChunkStats, lastError string) error {
	missing, _ := json.Marshal(stats.MissingExamples)
	failed, _ := json.Marshal(stats.FailedExamples)
	extra, _ := json.Marshal(stats.ExtraExamples)
	now := r.clock.Now()
	err := r.db.WithContext(ctx).Model(&SyncChunkModel{}).
		Where("run_id = ? AND chunk_idx = ?", runID, chunkIdx).
		Updates(map[string]interface{}{
			"status":               status,
			"requested_total":      stats.RequestedTotal,
			"returned_total":       stats.ReturnedTotal,
			"missing_count":        stats.MissingCount,
			"extra_count":          stats.ExtraCount,
			"failed_batches_count": stats.FailedBatchesCount,
			"failed_skus_count":    stats.FailedSkusCount,
			"missing_examples":     string(missing),
			"failed_examples":      string(failed),
			"extra_examples":       string(extra),
			"last_error":           lastError,
			"finished_at":          now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to finish chunk: %w", err)
	}
	return nil
}

// ForRun loads every chunk of a run ordered by index.
func (r *GormSyncChunkRepository) ForRun(ctx context.Context, runID string) ([]*syncdomain.Chunk, error) {
	var models []SyncChunkModel
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("chunk_idx").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	out := make([]*syncdomain.Chunk, 0, len(models))
	for i := range models {
		c, err := syncChunkToEntity(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Unfinished returns the chunks of a run still pending, running or failed.
// Used by the resume path to re-enqueue only incomplete work.
func (r *GormSyncChunkRepository) Unfinished(ctx context.Context, runID string) ([]*syncdomain.Chunk, error) {
	var models []SyncChunkModel
	err := r.db.WithContext(ctx).
		Where("run_id = ? AND status <> ?", runID, syncdomain.ChunkStatusSucceeded).
		Order("chunk_idx").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load unfinished chunks: %w", err)
	}
	out := make([]*syncdomain.Chunk, 0, len(models))
	for i := range models {
		c, err := syncChunkToEntity(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func syncChunkToEntity(m *SyncChunkModel) (*syncdomain.Chunk, error) {
	var codes []string
	if m.SkuCodesJSON != "" {
		if err := json.Unmarshal([]byte(m.SkuCodesJSON), &codes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sku codes: %w", err)
		}
	}
	stats := syncdomain.ChunkStats{
		RequestedTotal:     m.RequestedTotal,
		ReturnedTotal:      m.ReturnedTotal,
		MissingCount:       m.MissingCount,
		ExtraCount:         m.ExtraCount,
		FailedBatchesCount: m.FailedBatchesCount,
		FailedSkusCount:    m.FailedSkusCount,
	}
	unmarshalExamples(m.MissingExamples, &stats.MissingExamples)
	unmarshalExamples(m.FailedExamples, &stats.FailedExamples)
	unmarshalExamples(m.ExtraExamples, &stats.ExtraExamples)
	return &syncdomain.Chunk{
		RunID:      m.RunID,
		ChunkIdx:   m.ChunkIdx,
		Status:     m.Status,
		SkuCodes:   codes,
		SkuCount:   m.SkuCount,
		Stats:      stats,
		LastError:  m.LastError,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}, nil
}

func unmarshalExamples(raw string, dst *[]string) {
	if raw == "" {
		return
	}
	_ = json.Unmarshal([]byte(raw), dst)
}
