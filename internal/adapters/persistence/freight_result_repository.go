package persistence

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ozdirect/pricesync/internal/domain/catalog"
	"github.com/ozdirect/pricesync/internal/domain/pricing"
	"github.com/ozdirect/pricesync/internal/domain/shared"
)

// GormFreightResultRepository implements freight result storage using GORM
type GormFreightResultRepository struct {
	db    *gorm.DB
	clock shared.Clock
}

// NewGormFreightResultRepository creates a new GORM freight result repository
func NewGormFreightResultRepository(db *gorm.DB, clock shared.Clock) *GormFreightResultRepository {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormFreightResultRepository{db: db, clock: clock}
}

// QueryExistingResultsMap loads current result rows for the given SKUs.
func (r *GormFreightResultRepository) QueryExistingResultsMap(ctx context.Context, skus []string) (map[string]*catalog.FreightResult, error) {
	out := make(map[string]*catalog.FreightResult, len(skus))
	for _, batch := range batchStrings(skus, maxBindBatch) {
		var models []FreightResultModel
		if err := r.db.WithContext(ctx).Where("sku IN ?", batch).Find(&models).Error; err != nil {
			return nil, fmt.Errorf("failed to load freight results: %w", err)
		}
		for i := range models {
			res := freightResultToEntity(&models[i])
			out[res.Sku] = res
		}
	}
	return out, nil
}

// UpdateChangedPrices applies per-SKU column-level changes. For each SKU the
// current row is read under a row lock, only the columns named in the change
// set are overwritten, and the result bookkeeping is updated: the calc hash
// always moves to attrsHash, dirty flags are raised only when a column a
// country template consumes changed, and last_changed_at moves only when at
// least one output column changed. SKUs with empty change sets still advance
// the hash so they are not re-selected by later runs.
func (r *GormFreightResultRepository) UpdateChangedPrices(ctx context.Context, changes map[string]catalog.ResultChanges, attrsHashes map[string]string, source, runID string) (changedSkus int, err error) {
	now := r.clock.Now()
	for sku, cols := range changes {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			read := tx
			// SQLite serializes writers per file; the row lock only exists
			// on postgres.
			if tx.Dialector.Name() != "sqlite" {
				read = tx.Clauses(clause.Locking{Strength: "UPDATE"})
			}
			var model FreightResultModel
			err := read.Where("sku = ?", sku).
				First(&model).Error
			if err == gorm.ErrRecordNotFound {
				model = FreightResultModel{Sku: sku}
			} else if err != nil {
				return fmt.Errorf("failed to lock result %s: %w", sku, err)
			}

			applyResultChanges(&model, cols)
			model.AttrsHashLastCalc = attrsHashes[sku]
			if len(cols) > 0 {
				// A country's flag rises only when a column its export
				// template consumes changed; other output columns never
				// reach a CSV, so flagging them would only queue no-op
				// export rows.
				if touchesCountry(cols, catalog.CountryAU) {
					model.KoganDirtyAu = true
				}
				if touchesCountry(cols, catalog.CountryNZ) {
					model.KoganDirtyNz = true
				}
				model.LastChangedSource = source
				model.LastChangedRunID = runID
				t := now
				model.LastChangedAt = &t
			}
			return tx.Save(&model).Error
		})
		if err != nil {
			return changedSkus, err
		}
		if len(cols) > 0 {
			changedSkus++
		}
	}
	return changedSkus, nil
}

// auColumns are the output columns the AU template consumes.
var auColumns = map[string]bool{
	catalog.ColSellingPrice: true,
	catalog.ColAdjust:       true,
	catalog.ColShippingType: true,
	catalog.ColWeight:       true,
	catalog.ColKoganAuPrice: true,
	catalog.ColKoganK1Price: true,
}

// nzColumns are the output columns the NZ template consumes.
var nzColumns = map[string]bool{
	catalog.ColSellingPrice: true,
	catalog.ColAdjust:       true,
	catalog.ColShippingType: true,
	catalog.ColKoganNzPrice: true,
}

func touchesCountry(cols catalog.ResultChanges, country string) bool {
	set := auColumns
	if country == catalog.CountryNZ {
		set = nzColumns
	}
	for col := range cols {
		if set[col] {
			return true
		}
	}
	return false
}

// IterChangedSkus streams the SKUs currently flagged dirty for a country in
// bounded batches, ordered by SKU.
func (r *GormFreightResultRepository) IterChangedSkus(ctx context.Context, country string, batchSize int, fn func(results []*catalog.FreightResult) error) error {
	col := "kogan_dirty_au"
	if country == catalog.CountryNZ {
		col = "kogan_dirty_nz"
	}
	lastSku := ""
	for {
		var models []FreightResultModel
		err := r.db.WithContext(ctx).
			Where(col+" = ?", true).
			Where("sku > ?", lastSku).
			Order("sku").
			Limit(batchSize).
			Find(&models).Error
		if err != nil {
			return fmt.Errorf("failed to iterate dirty skus: %w", err)
		}
		if len(models) == 0 {
			return nil
		}
		batch := make([]*catalog.FreightResult, len(models))
		for i := range models {
			batch[i] = freightResultToEntity(&models[i])
		}
		if err := fn(batch); err != nil {
			return err
		}
		lastSku = models[len(models)-1].Sku
	}
}

// ClearKoganDirtyFlags drops the country dirty flag for the given SKUs inside
// the supplied transaction.
func (r *GormFreightResultRepository) ClearKoganDirtyFlags(ctx context.Context, tx *gorm.DB, country string, skus []string) error {
	if tx == nil {
		tx = r.db
	}
	col := "kogan_dirty_au"
	if country == catalog.CountryNZ {
		col = "kogan_dirty_nz"
	}
	for _, batch := range batchStrings(skus, maxBindBatch) {
		if err := tx.WithContext(ctx).Model(&FreightResultModel{}).
			Where("sku IN ?", batch).
			Update(col, false).Error; err != nil {
			return fmt.Errorf("failed to clear dirty flags: %w", err)
		}
	}
	return nil
}

// CountDirty returns how many SKUs are flagged dirty for a country.
func (r *GormFreightResultRepository) CountDirty(ctx context.Context, country string) (int64, error) {
	col := "kogan_dirty_au"
	if country == catalog.CountryNZ {
		col = "kogan_dirty_nz"
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&FreightResultModel{}).
		Where(col+" = ?", true).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count dirty skus: %w", err)
	}
	return n, nil
}

// applyResultChanges overwrites exactly the columns named in the change set.
func applyResultChanges(m *FreightResultModel, cols catalog.ResultChanges) {
	for col, v := range cols {
		switch col {
		case catalog.ColRemoteCheck:
			b := v.(bool)
			m.RemoteCheck = &b
		case catalog.ColShippingType:
			m.ShippingType = v.(string)
		default:
			var nd decimal.NullDecimal
			if d, ok := v.(*decimal.Decimal); ok && d != nil {
				nd = decimal.NullDecimal{Decimal: *d, Valid: true}
			}
			setResultColumn(m, col, nd)
		}
	}
}

func setResultColumn(m *FreightResultModel, col string, v decimal.NullDecimal) {
	switch col {
	case catalog.ColSellingPrice:
		m.SellingPrice = v
	case catalog.ColAdjust:
		m.Adjust = v
	case catalog.ColSameShipping:
		m.SameShipping = v
	case catalog.ColShippingAve:
		m.ShippingAve = v
	case catalog.ColShippingAveM:
		m.ShippingAveM = v
	case catalog.ColShippingAveR:
		m.ShippingAveR = v
	case catalog.ColShippingMed:
		m.ShippingMed = v
	case catalog.ColRuralAve:
		m.RuralAve = v
	case catalog.ColWeightedAveS:
		m.WeightedAveS = v
	case catalog.ColShippingMedDif:
		m.ShippingMedDif = v
	case catalog.ColCubicWeight:
		m.CubicWeight = v
	case catalog.ColPriceRatio:
		m.PriceRatio = v
	case catalog.ColWeight:
		m.Weight = v
	case catalog.ColShopifyPrice:
		m.ShopifyPrice = v
	case catalog.ColKoganAuPrice:
		m.KoganAuPrice = v
	case catalog.ColKoganK1Price:
		m.KoganK1Price = v
	case catalog.ColKoganNzPrice:
		m.KoganNzPrice = v
	}
}

func freightResultToEntity(m *FreightResultModel) *catalog.FreightResult {
	remote := false
	if m.RemoteCheck != nil {
		remote = *m.RemoteCheck
	}
	return &catalog.FreightResult{
		Sku: m.Sku,
		Outputs: pricing.Outputs{
			SellingPrice:   fromNull(m.SellingPrice),
			Adjust:         fromNull(m.Adjust),
			SameShipping:   fromNull(m.SameShipping),
			ShippingAve:    fromNull(m.ShippingAve),
			ShippingAveM:   fromNull(m.ShippingAveM),
			ShippingAveR:   fromNull(m.ShippingAveR),
			ShippingMed:    fromNull(m.ShippingMed),
			RemoteCheck:    remote,
			RuralAve:       fromNull(m.RuralAve),
			WeightedAveS:   fromNull(m.WeightedAveS),
			ShippingMedDif: fromNull(m.ShippingMedDif),
			CubicWeight:    fromNull(m.CubicWeight),
			PriceRatio:     fromNull(m.PriceRatio),
			ShippingType:   m.ShippingType,
			Weight:         fromNull(m.Weight),
			ShopifyPrice:   fromNull(m.ShopifyPrice),
			KoganAuPrice:   fromNull(m.KoganAuPrice),
			KoganK1Price:   fromNull(m.KoganK1Price),
			KoganNzPrice:   fromNull(m.KoganNzPrice),
		},
		AttrsHashLastCalc: m.AttrsHashLastCalc,
		KoganDirtyAu:      m.KoganDirtyAu,
		KoganDirtyNz:      m.KoganDirtyNz,
		LastChangedSource: m.LastChangedSource,
		LastChangedRunID:  m.LastChangedRunID,
		LastChangedAt:     m.LastChangedAt,
	}
}
