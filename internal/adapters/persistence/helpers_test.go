package persistence_test

import (
	"github.com/shopspring/decimal"

	"github.com/ozdirect/pricesync/internal/domain/catalog"
	"github.com/ozdirect/pricesync/internal/domain/pricing"
)

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func intp(n int) *int { return &n }

func masterFixture(sku string) *catalog.Master {
	return &catalog.Master{
		Sku:          sku,
		Price:        dp("30"),
		SpecialPrice: dp("25"),
		Weight:       dp("2"),
		CBM:          dp("0.02"),
		RRP:          dp("59.95"),
		Brand:        "Acme",
		EAN:          "9300000000001",
		Supplier:     "vendor",
		StockQty:     intp(12),
		Tags:         []string{"pricesync"},
		Freight: pricing.FreightRates{
			ACT:    dp("10"),
			NswM:   dp("11"),
			Remote: dp("25"),
			WaR:    dp("20"),
			NZ:     dp("40"),
		},
		AttrsHashCurrent: "hash-" + sku,
	}
}
