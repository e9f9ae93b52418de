package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
	"github.com/ozdirect/pricesync/internal/domain/shared"
)

// GormSyncRunRepository implements product sync run storage using GORM
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new GORM sync run repository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Create persists a new run.
func (r *GormSyncRunRepository) Create(ctx context.Context, run *syncdomain.Run) error {
	model := syncRunToModel(run)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}
	return nil
}

// FindByID loads one run.
func (r *GormSyncRunRepository) FindByID(ctx context.Context, id string) (*syncdomain.Run, error) {
	var model ProductSyncRunModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		return nil, shared.NewRunNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync run: %w", err)
	}
	return syncRunToEntity(&model), nil
}

// FindByBulkID loads the run that owns a storefront bulk operation id.
func (r *GormSyncRunRepository) FindByBulkID(ctx context.Context, bulkID string) (*syncdomain.Run, error) {
	var model ProductSyncRunModel
	err := r.db.WithContext(ctx).Where("shopify_bulk_id = ?", bulkID).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		return nil, shared.NewRunNotFoundError(bulkID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync run by bulk id: %w", err)
	}
	return syncRunToEntity(&model), nil
}

// FindActive returns the single running run, or nil when every run is
// terminal.
func (r *GormSyncRunRepository) FindActive(ctx context.Context) (*syncdomain.Run, error) {
	var model ProductSyncRunModel
	err := r.db.WithContext(ctx).
		Where("status = ?", syncdomain.RunStatusRunning).
		Order("started_at DESC").
		First(&model).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active sync run: %w", err)
	}
	return syncRunToEntity(&model), nil
}

// Update saves the run's mutable fields.
func (r *GormSyncRunRepository) Update(ctx context.Context, run *syncdomain.Run) error {
	model := syncRunToModel(run)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}
	return nil
}

func syncRunToModel(e *syncdomain.Run) *ProductSyncRunModel {
	return &ProductSyncRunModel{
		ID:                e.ID,
		Status:            e.Status,
		RunType:           e.RunType,
		ShopifyBulkID:     e.ShopifyBulkID,
		ShopifyBulkURL:    e.ShopifyBulkURL,
		TotalShopifySkus:  e.TotalShopifySkus,
		ChangeCount:       e.ChangeCount,
		StartedAt:         e.StartedAt,
		FinishedAt:        e.FinishedAt,
		WebhookReceivedAt: e.WebhookReceivedAt,
	}
}

func syncRunToEntity(m *ProductSyncRunModel) *syncdomain.Run {
	return &syncdomain.Run{
		ID:                m.ID,
		Status:            m.Status,
		RunType:           m.RunType,
		ShopifyBulkID:     m.ShopifyBulkID,
		ShopifyBulkURL:    m.ShopifyBulkURL,
		TotalShopifySkus:  m.TotalShopifySkus,
		ChangeCount:       m.ChangeCount,
		StartedAt:         m.StartedAt,
		FinishedAt:        m.FinishedAt,
		WebhookReceivedAt: m.WebhookReceivedAt,
	}
}
