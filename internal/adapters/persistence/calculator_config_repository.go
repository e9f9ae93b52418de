package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ozdirect/pricesync/internal/domain/pricing"
)

// calculatorConfigID is the fixed id of the single tunables row.
const calculatorConfigID = 1

// GormCalculatorConfigRepository implements calculator tunables storage
// using GORM. The table holds a single row seeded with defaults on first
// access.
type GormCalculatorConfigRepository struct {
	db *gorm.DB
}

// NewGormCalculatorConfigRepository creates a new GORM calculator config repository
func NewGormCalculatorConfigRepository(db *gorm.DB) *GormCalculatorConfigRepository {
	return &GormCalculatorConfigRepository{db: db}
}

// Load returns the current tunables, seeding the defaults when the row does
// not exist yet.
func (r *GormCalculatorConfigRepository) Load(ctx context.Context) (pricing.Config, error) {
	var model FreightCalculatorConfigModel
	err := r.db.WithContext(ctx).Where("id = ?", calculatorConfigID).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		cfg := pricing.DefaultConfig()
		if err := r.Save(ctx, cfg); err != nil {
			return pricing.Config{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return pricing.Config{}, fmt.Errorf("failed to load calculator config: %w", err)
	}
	return calculatorConfigToEntity(&model), nil
}

// Save overwrites the tunables row.
func (r *GormCalculatorConfigRepository) Save(ctx context.Context, cfg pricing.Config) error {
	model := calculatorConfigToModel(cfg)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("failed to save calculator config: %w", err)
	}
	return nil
}

func calculatorConfigToModel(c pricing.Config) *FreightCalculatorConfigModel {
	return &FreightCalculatorConfigModel{
		ID:                        calculatorConfigID,
		AdjustThreshold:           c.AdjustThreshold,
		AdjustRate:                c.AdjustRate,
		Remote1:                   c.Remote1,
		Remote2:                   c.Remote2,
		WaRSentinel:               c.WaRSentinel,
		WeightedAveShippingWeight: c.WeightedAveShippingWeight,
		WeightedAveRuralWeight:    c.WeightedAveRuralWeight,
		CubicFactor:               c.CubicFactor,
		CubicHeadroom:             c.CubicHeadroom,
		PriceRatioLimit:           c.PriceRatioLimit,
		MedDif10:                  c.MedDif10,
		MedDif20:                  c.MedDif20,
		MedDif40:                  c.MedDif40,
		SameShipping10:            c.SameShipping10,
		SameShipping20:            c.SameShipping20,
		SameShipping30:            c.SameShipping30,
		SameShipping50:            c.SameShipping50,
		SameShipping100:           c.SameShipping100,
		ShopifyThreshold:          c.ShopifyThreshold,
		ShopifyConfig1:            c.ShopifyConfig1,
		ShopifyConfig2:            c.ShopifyConfig2,
		KoganAuNormalLowDenom:     c.KoganAuNormalLowDenom,
		KoganAuNormalHighDenom:    c.KoganAuNormalHighDenom,
		KoganAuExtra5Discount:     c.KoganAuExtra5Discount,
		KoganAuVicHalfFactor:      c.KoganAuVicHalfFactor,
		K1Threshold:               c.K1Threshold,
		K1DiscountMultiplier:      c.K1DiscountMultiplier,
		K1OtherwiseMinus:          c.K1OtherwiseMinus,
		KoganNzServiceNo:          c.KoganNzServiceNo,
		KoganNzConfig1:            c.KoganNzConfig1,
		KoganNzConfig2:            c.KoganNzConfig2,
		KoganNzConfig3:            c.KoganNzConfig3,
		WeightCalcDivisor:         c.WeightCalcDivisor,
		WeightToleranceRatio:      c.WeightToleranceRatio,
	}
}

func calculatorConfigToEntity(m *FreightCalculatorConfigModel) pricing.Config {
	return pricing.Config{
		AdjustThreshold:           m.AdjustThreshold,
		AdjustRate:                m.AdjustRate,
		Remote1:                   m.Remote1,
		Remote2:                   m.Remote2,
		WaRSentinel:               m.WaRSentinel,
		WeightedAveShippingWeight: m.WeightedAveShippingWeight,
		WeightedAveRuralWeight:    m.WeightedAveRuralWeight,
		CubicFactor:               m.CubicFactor,
		CubicHeadroom:             m.CubicHeadroom,
		PriceRatioLimit:           m.PriceRatioLimit,
		MedDif10:                  m.MedDif10,
		MedDif20:                  m.MedDif20,
		MedDif40:                  m.MedDif40,
		SameShipping10:            m.SameShipping10,
		SameShipping20:            m.SameShipping20,
		SameShipping30:            m.SameShipping30,
		SameShipping50:            m.SameShipping50,
		SameShipping100:           m.SameShipping100,
		ShopifyThreshold:          m.ShopifyThreshold,
		ShopifyConfig1:            m.ShopifyConfig1,
		ShopifyConfig2:            m.ShopifyConfig2,
		KoganAuNormalLowDenom:     m.KoganAuNormalLowDenom,
		KoganAuNormalHighDenom:    m.KoganAuNormalHighDenom,
		KoganAuExtra5Discount:     m.KoganAuExtra5Discount,
		KoganAuVicHalfFactor:      m.KoganAuVicHalfFactor,
		K1Threshold:               m.K1Threshold,
		K1DiscountMultiplier:      m.K1DiscountMultiplier,
		K1OtherwiseMinus:          m.K1OtherwiseMinus,
		KoganNzServiceNo:          m.KoganNzServiceNo,
		KoganNzConfig1:            m.KoganNzConfig1,
		KoganNzConfig2:            m.KoganNzConfig2,
		KoganNzConfig3:            m.KoganNzConfig3,
		WeightCalcDivisor:         m.WeightCalcDivisor,
		WeightToleranceRatio:      m.WeightToleranceRatio,
	}
}
