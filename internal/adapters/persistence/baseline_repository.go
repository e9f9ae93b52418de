package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// GormBaselineRepository stores the per-country template row last applied
// downstream. Export diffs against it; apply overwrites it.
type GormBaselineRepository struct {
	db *gorm.DB
}

// NewGormBaselineRepository creates a new GORM baseline repository
func NewGormBaselineRepository(db *gorm.DB) *GormBaselineRepository {
	return &GormBaselineRepository{db: db}
}

// LoadBySkus returns the baseline rows for a country keyed by SKU. SKUs with
// no baseline are absent from the map.
func (r *GormBaselineRepository) LoadBySkus(ctx context.Context, country string, skus []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(skus))
	for _, batch := range batchStrings(skus, maxBindBatch) {
		var models []KoganBaselineModel
		err := r.db.WithContext(ctx).
			Where("country = ? AND sku IN ?", country, batch).
			Find(&models).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load baselines: %w", err)
		}
		for i := range models {
			var row map[string]string
			if err := json.Unmarshal([]byte(models[i].RowJSON), &row); err != nil {
				return nil, fmt.Errorf("failed to unmarshal baseline %s: %w", models[i].Sku, err)
			}
			out[models[i].Sku] = row
		}
	}
	return out, nil
}

// Upsert overwrites baseline rows inside the supplied transaction.
func (r *GormBaselineRepository) Upsert(ctx context.Context, tx *gorm.DB, country string, rows map[string]map[string]string) error {
	if tx == nil {
		tx = r.db
	}
	for sku, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal baseline %s: %w", sku, err)
		}
		model := KoganBaselineModel{Country: country, Sku: sku, RowJSON: string(raw)}
		if err := tx.WithContext(ctx).Save(&model).Error; err != nil {
			return fmt.Errorf("failed to upsert baseline %s: %w", sku, err)
		}
	}
	return nil
}
