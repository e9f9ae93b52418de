package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ozdirect/pricesync/internal/domain/pricing"
)

// Master is the authoritative per-SKU attribute snapshot. Nil pointers mean
// the attribute has never been observed for the SKU.
type Master struct {
	Sku                 string
	Price               *decimal.Decimal
	SpecialPrice        *decimal.Decimal
	SpecialPriceEndDate *time.Time
	Weight              *decimal.Decimal
	CBM                 *decimal.Decimal
	Length              *decimal.Decimal
	Width               *decimal.Decimal
	Height              *decimal.Decimal
	RRP                 *decimal.Decimal
	Brand               string
	EAN                 string
	Supplier            string
	StockQty            *int
	ShopifyVariantID    string
	Tags                []string
	Freight             pricing.FreightRates
	AttrsHashCurrent    string
	LastChangedAt       *time.Time
}

// PricingInputs assembles the calculator inputs from the master snapshot.
func (m *Master) PricingInputs() pricing.Inputs {
	return pricing.Inputs{
		Price:               m.Price,
		SpecialPrice:        m.SpecialPrice,
		SpecialPriceEndDate: m.SpecialPriceEndDate,
		Weight:              m.Weight,
		CBM:                 m.CBM,
		Length:              m.Length,
		Width:               m.Width,
		Height:              m.Height,
		Freight:             m.Freight,
	}
}
