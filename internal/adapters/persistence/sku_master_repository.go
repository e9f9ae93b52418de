package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ozdirect/pricesync/internal/domain/catalog"
	"github.com/ozdirect/pricesync/internal/domain/pricing"
	"github.com/ozdirect/pricesync/internal/domain/shared"
)

// maxBindBatch bounds the parameter count of a single bulk statement.
const maxBindBatch = 1000

// GormSkuMasterRepository implements the master store operations using GORM
type GormSkuMasterRepository struct {
	db    *gorm.DB
	clock shared.Clock
}

// NewGormSkuMasterRepository creates a new GORM SKU master repository.
// A nil clock means RealClock.
func NewGormSkuMasterRepository(db *gorm.DB, clock shared.Clock) *GormSkuMasterRepository {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormSkuMasterRepository{db: db, clock: clock}
}

// LoadExistingBySkus returns the current master rows for the given SKUs,
// keyed by SKU code. Unknown SKUs are simply absent from the map.
func (r *GormSkuMasterRepository) LoadExistingBySkus(ctx context.Context, skus []string) (map[string]*catalog.Master, error) {
	out := make(map[string]*catalog.Master, len(skus))
	for _, batch := range batchStrings(skus, maxBindBatch) {
		var models []SkuMasterModel
		if err := r.db.WithContext(ctx).Where("sku IN ?", batch).Find(&models).Error; err != nil {
			return nil, fmt.Errorf("failed to load masters: %w", err)
		}
		for i := range models {
			m, err := skuMasterToEntity(&models[i])
			if err != nil {
				return nil, fmt.Errorf("failed to convert master %s: %w", models[i].Sku, err)
			}
			out[m.Sku] = m
		}
	}
	return out, nil
}

// LoadVariantIDsBySkus returns the storefront variant id per SKU.
func (r *GormSkuMasterRepository) LoadVariantIDsBySkus(ctx context.Context, skus []string) (map[string]string, error) {
	out := make(map[string]string, len(skus))
	for _, batch := range batchStrings(skus, maxBindBatch) {
		var rows []struct {
			Sku              string
			ShopifyVariantID string
		}
		if err := r.db.WithContext(ctx).Model(&SkuMasterModel{}).
			Select("sku", "shopify_variant_id").
			Where("sku IN ?", batch).
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to load variant ids: %w", err)
		}
		for _, row := range rows {
			out[row.Sku] = row.ShopifyVariantID
		}
	}
	return out, nil
}

// BulkUpsertOnlyIfChanged upserts each row gated on a field-by-field
// equality check against the current row. Unchanged rows are skipped with no
// write and no timestamp bump; changed rows get last_changed_at refreshed.
// Returns the number of rows actually written.
func (r *GormSkuMasterRepository) BulkUpsertOnlyIfChanged(ctx context.Context, tx *gorm.DB, rows []*catalog.Master) (int, error) {
	if tx == nil {
		tx = r.db
	}
	written := 0
	now := r.clock.Now()
	for _, row := range rows {
		var current SkuMasterModel
		err := tx.WithContext(ctx).Where("sku = ?", row.Sku).First(&current).Error
		var pre *catalog.Master
		switch {
		case err == nil:
			pre, err = skuMasterToEntity(&current)
			if err != nil {
				return written, fmt.Errorf("failed to convert master %s: %w", row.Sku, err)
			}
		case err == gorm.ErrRecordNotFound:
			pre = nil
		default:
			return written, fmt.Errorf("failed to read master %s: %w", row.Sku, err)
		}

		changed, _ := catalog.Diff(pre, row)
		if len(changed) == 0 && pre != nil && pre.AttrsHashCurrent == row.AttrsHashCurrent {
			continue
		}

		model, err := skuMasterToModel(row)
		if err != nil {
			return written, fmt.Errorf("failed to convert master %s: %w", row.Sku, err)
		}
		model.LastChangedAt = &now
		if err := tx.WithContext(ctx).Save(model).Error; err != nil {
			return written, fmt.Errorf("failed to upsert master %s: %w", row.Sku, err)
		}
		written++
	}
	return written, nil
}

// AllSkusNeedingCalc returns every SKU whose current attribute hash differs
// from the hash of its last successful calculation, or that has no freight
// result row at all. Used by manual calculation runs.
func (r *GormSkuMasterRepository) AllSkusNeedingCalc(ctx context.Context) ([]string, error) {
	var skus []string
	err := r.db.WithContext(ctx).Model(&SkuMasterModel{}).
		Select("sku_masters.sku").
		Joins("LEFT JOIN freight_results ON freight_results.sku = sku_masters.sku").
		Where("freight_results.sku IS NULL OR freight_results.attrs_hash_last_calc <> sku_masters.attrs_hash_current").
		Order("sku_masters.sku").
		Find(&skus).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query skus needing calc: %w", err)
	}
	return skus, nil
}

// SkusWithExpiringSpecial streams SKUs whose promotion ends on or before the
// cutoff and that have a regular price to fall back to. Batches are bounded.
func (r *GormSkuMasterRepository) SkusWithExpiringSpecial(ctx context.Context, cutoff time.Time, batchSize int, fn func(skus []string) error) error {
	lastSku := ""
	for {
		var skus []string
		err := r.db.WithContext(ctx).Model(&SkuMasterModel{}).
			Select("sku").
			Where("sku > ?", lastSku).
			Where("special_price_end_date IS NOT NULL AND special_price_end_date <= ?", cutoff).
			Where("price IS NOT NULL").
			Order("sku").
			Limit(batchSize).
			Find(&skus).Error
		if err != nil {
			return fmt.Errorf("failed to query expiring specials: %w", err)
		}
		if len(skus) == 0 {
			return nil
		}
		if err := fn(skus); err != nil {
			return err
		}
		lastSku = skus[len(skus)-1]
	}
}

// DB exposes the underlying handle for transaction composition at the
// application layer.
func (r *GormSkuMasterRepository) DB() *gorm.DB {
	return r.db
}

func skuMasterToEntity(m *SkuMasterModel) (*catalog.Master, error) {
	var tags []string
	if m.TagsJSON != "" {
		if err := json.Unmarshal([]byte(m.TagsJSON), &tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	return &catalog.Master{
		Sku:                 m.Sku,
		Price:               fromNull(m.Price),
		SpecialPrice:        fromNull(m.SpecialPrice),
		SpecialPriceEndDate: m.SpecialPriceEndDate,
		Weight:              fromNull(m.Weight),
		CBM:                 fromNull(m.CBM),
		Length:              fromNull(m.Length),
		Width:               fromNull(m.Width),
		Height:              fromNull(m.Height),
		RRP:                 fromNull(m.RRP),
		Brand:               m.Brand,
		EAN:                 m.EAN,
		Supplier:            m.Supplier,
		StockQty:            m.StockQty,
		ShopifyVariantID:    m.ShopifyVariantID,
		Tags:                tags,
		Freight: pricing.FreightRates{
			ACT:    fromNull(m.Act),
			NswM:   fromNull(m.NswM),
			NswR:   fromNull(m.NswR),
			NtM:    fromNull(m.NtM),
			QldM:   fromNull(m.QldM),
			QldR:   fromNull(m.QldR),
			SaM:    fromNull(m.SaM),
			SaR:    fromNull(m.SaR),
			TasM:   fromNull(m.TasM),
			TasR:   fromNull(m.TasR),
			VicM:   fromNull(m.VicM),
			VicR:   fromNull(m.VicR),
			WaM:    fromNull(m.WaM),
			Remote: fromNull(m.Remote),
			WaR:    fromNull(m.WaR),
			NZ:     fromNull(m.Nz),
		},
		AttrsHashCurrent: m.AttrsHashCurrent,
		LastChangedAt:    m.LastChangedAt,
	}, nil
}

func skuMasterToModel(e *catalog.Master) (*SkuMasterModel, error) {
	tagsJSON, err := json.Marshal(e.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	return &SkuMasterModel{
		Sku:                 e.Sku,
		Price:               toNull(e.Price),
		SpecialPrice:        toNull(e.SpecialPrice),
		SpecialPriceEndDate: e.SpecialPriceEndDate,
		Weight:              toNull(e.Weight),
		CBM:                 toNull(e.CBM),
		Length:              toNull(e.Length),
		Width:               toNull(e.Width),
		Height:              toNull(e.Height),
		RRP:                 toNull(e.RRP),
		Brand:               e.Brand,
		EAN:                 e.EAN,
		Supplier:            e.Supplier,
		StockQty:            e.StockQty,
		ShopifyVariantID:    e.ShopifyVariantID,
		TagsJSON:            string(tagsJSON),
		Act:                 toNull(e.Freight.ACT),
		NswM:                toNull(e.Freight.NswM),
		NswR:                toNull(e.Freight.NswR),
		NtM:                 toNull(e.Freight.NtM),
		QldM:                toNull(e.Freight.QldM),
		QldR:                toNull(e.Freight.QldR),
		SaM:                 toNull(e.Freight.SaM),
		SaR:                 toNull(e.Freight.SaR),
		TasM:                toNull(e.Freight.TasM),
		TasR:                toNull(e.Freight.TasR),
		VicM:                toNull(e.Freight.VicM),
		VicR:                toNull(e.Freight.VicR),
		WaM:                 toNull(e.Freight.WaM),
		Remote:              toNull(e.Freight.Remote),
		WaR:                 toNull(e.Freight.WaR),
		Nz:                  toNull(e.Freight.NZ),
		AttrsHashCurrent:    e.AttrsHashCurrent,
		LastChangedAt:       e.LastChangedAt,
	}, nil
}

func fromNull(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}

func toNull(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *v, Valid: true}
}

func batchStrings(items []string, size int) [][]string {
	if size <= 0 {
		size = maxBindBatch
	}
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
