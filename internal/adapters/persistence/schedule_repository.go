package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ozdirect/pricesync/internal/domain/schedule"
)

// GormScheduleRepository implements schedule entry storage using GORM
type GormScheduleRepository struct {
	db *gorm.DB
}

// NewGormScheduleRepository creates a new GORM schedule repository
func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

// EnabledEntries returns every enabled schedule entry.
func (r *GormScheduleRepository) EnabledEntries(ctx context.Context) ([]*schedule.Entry, error) {
	var models []ScheduleEntryModel
	err := r.db.WithContext(ctx).Where("enabled = ?", true).Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule entries: %w", err)
	}
	out := make([]*schedule.Entry, len(models))
	for i := range models {
		out[i] = scheduleEntryToEntity(&models[i])
	}
	return out, nil
}

// FindByKey loads one entry.
func (r *GormScheduleRepository) FindByKey(ctx context.Context, jobKey string) (*schedule.Entry, error) {
	var model ScheduleEntryModel
	err := r.db.WithContext(ctx).Where("job_key = ?", jobKey).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule entry: %w", err)
	}
	return scheduleEntryToEntity(&model), nil
}

// Save upserts an entry.
func (r *GormScheduleRepository) Save(ctx context.Context, e *schedule.Entry) error {
	model := scheduleEntryToModel(e)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("failed to save schedule entry: %w", err)
	}
	return nil
}

// MarkFired stamps last_run_at inside the supplied transaction so the stamp
// commits atomically with the enqueued work.
func (r *GormScheduleRepository) MarkFired(ctx context.Context, tx *gorm.DB, jobKey string, at time.Time) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).Model(&ScheduleEntryModel{}).
		Where("job_key = ?", jobKey).
		Update("last_run_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to mark schedule fired: %w", err)
	}
	return nil
}

func scheduleEntryToModel(e *schedule.Entry) *ScheduleEntryModel {
	return &ScheduleEntryModel{
		JobKey:      e.JobKey,
		Enabled:     e.Enabled,
		DayOfWeek:   e.DayOfWeek,
		Hour:        e.Hour,
		Minute:      e.Minute,
		Every2Weeks: e.Every2Weeks,
		Timezone:    e.Timezone,
		LastRunAt:   e.LastRunAt,
	}
}

func scheduleEntryToEntity(m *ScheduleEntryModel) *schedule.Entry {
	return &schedule.Entry{
		JobKey:      m.JobKey,
		Enabled:     m.Enabled,
		DayOfWeek:   m.DayOfWeek,
		Hour:        m.Hour,
		Minute:      m.Minute,
		Every2Weeks: m.Every2Weeks,
		Timezone:    m.Timezone,
		LastRunAt:   m.LastRunAt,
	}
}
