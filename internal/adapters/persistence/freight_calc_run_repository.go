package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
)

// GormFreightCalcRunRepository implements freight calc run storage using GORM
type GormFreightCalcRunRepository struct {
	db *gorm.DB
}

// NewGormFreightCalcRunRepository creates a new GORM freight calc run repository
func NewGormFreightCalcRunRepository(db *gorm.DB) *GormFreightCalcRunRepository {
	return &GormFreightCalcRunRepository{db: db}
}

// Create persists a new calculation run.
func (r *GormFreightCalcRunRepository) Create(ctx context.Context, run *syncdomain.CalcRun) error {
	model := calcRunToModel(run)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create calc run: %w", err)
	}
	return nil
}

// Update saves the run's mutable fields.
func (r *GormFreightCalcRunRepository) Update(ctx context.Context, run *syncdomain.CalcRun) error {
	model := calcRunToModel(run)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("failed to update calc run: %w", err)
	}
	return nil
}

// FindByID loads one calculation run.
func (r *GormFreightCalcRunRepository) FindByID(ctx context.Context, id string) (*syncdomain.CalcRun, error) {
	var model FreightCalcRunModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calc run: %w", err)
	}
	return calcRunToEntity(&model), nil
}

func calcRunToModel(e *syncdomain.CalcRun) *FreightCalcRunModel {
	return &FreightCalcRunModel{
		ID:             e.ID,
		Status:         e.Status,
		Trigger:        e.Trigger,
		ProductRunID:   e.ProductRunID,
		CandidateCount: e.CandidateCount,
		ChangedCount:   e.ChangedCount,
		Message:        e.Message,
		StartedAt:      e.StartedAt,
		FinishedAt:     e.FinishedAt,
	}
}

func calcRunToEntity(m *FreightCalcRunModel) *syncdomain.CalcRun {
	return &syncdomain.CalcRun{
		ID:             m.ID,
		Status:         m.Status,
		Trigger:        m.Trigger,
		ProductRunID:   m.ProductRunID,
		CandidateCount: m.CandidateCount,
		ChangedCount:   m.ChangedCount,
		Message:        m.Message,
		StartedAt:      m.StartedAt,
		FinishedAt:     m.FinishedAt,
	}
}
