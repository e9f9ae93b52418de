package pricing

import "github.com/shopspring/decimal"

// Config holds the tunable parameters consumed by the calculator.
// The values live in a single database row and are loaded once at the start
// of each calculation run, which keeps a run deterministic.
type Config struct {
	// Low-end selling price uplift
	AdjustThreshold decimal.Decimal
	AdjustRate      decimal.Decimal

	// Remote sentinels. A zone rate equal to one of these means the carrier
	// does not genuinely service the zone.
	Remote1     decimal.Decimal
	Remote2     decimal.Decimal
	WaRSentinel decimal.Decimal

	// Blend weights for the weighted average shipping figure
	WeightedAveShippingWeight decimal.Decimal
	WeightedAveRuralWeight    decimal.Decimal

	// Volumetric weight
	CubicFactor   decimal.Decimal
	CubicHeadroom decimal.Decimal

	// Shipping-type decision table
	PriceRatioLimit decimal.Decimal
	MedDif10        decimal.Decimal
	MedDif20        decimal.Decimal
	MedDif40        decimal.Decimal
	SameShipping10  decimal.Decimal
	SameShipping20  decimal.Decimal
	SameShipping30  decimal.Decimal
	SameShipping50  decimal.Decimal
	SameShipping100 decimal.Decimal

	// Shopify uplift
	ShopifyThreshold decimal.Decimal
	ShopifyConfig1   decimal.Decimal
	ShopifyConfig2   decimal.Decimal

	// Kogan AU pricing
	KoganAuNormalLowDenom  decimal.Decimal
	KoganAuNormalHighDenom decimal.Decimal
	KoganAuExtra5Discount  decimal.Decimal
	KoganAuVicHalfFactor   decimal.Decimal

	// Kogan First (K1) pricing
	K1Threshold          decimal.Decimal
	K1DiscountMultiplier decimal.Decimal
	K1OtherwiseMinus     decimal.Decimal

	// Kogan NZ pricing
	KoganNzServiceNo decimal.Decimal
	KoganNzConfig1   decimal.Decimal
	KoganNzConfig2   decimal.Decimal
	KoganNzConfig3   decimal.Decimal

	// Recomputed weight
	WeightCalcDivisor    decimal.Decimal
	WeightToleranceRatio decimal.Decimal
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic("pricing: bad default decimal " + s)
	}
	return v
}

// DefaultConfig returns the documented default tunables. The single config
// row is seeded from this when absent.
//
// SameShipping10 is 10.1 on purpose: the "10" branch of the decision table
// uses a strict less-than against 10.1, not 10.
func DefaultConfig() Config {
	return Config{
		AdjustThreshold: d("100"),
		AdjustRate:      d("0.04"),

		Remote1:     d("999"),
		Remote2:     d("9999"),
		WaRSentinel: d("9999"),

		WeightedAveShippingWeight: d("0.95"),
		WeightedAveRuralWeight:    d("0.05"),

		CubicFactor:   d("250"),
		CubicHeadroom: d("1"),

		PriceRatioLimit: d("0.25"),
		MedDif10:        d("10"),
		MedDif20:        d("20"),
		MedDif40:        d("40"),
		SameShipping10:  d("10.1"),
		SameShipping20:  d("20"),
		SameShipping30:  d("30"),
		SameShipping50:  d("50"),
		SameShipping100: d("100"),

		ShopifyThreshold: d("100"),
		ShopifyConfig1:   d("1.22"),
		ShopifyConfig2:   d("1.18"),

		KoganAuNormalLowDenom:  d("0.78"),
		KoganAuNormalHighDenom: d("0.82"),
		KoganAuExtra5Discount:  d("1.05"),
		KoganAuVicHalfFactor:   d("0.5"),

		K1Threshold:          d("50"),
		K1DiscountMultiplier: d("0.9"),
		K1OtherwiseMinus:     d("5"),

		KoganNzServiceNo: d("0"),
		KoganNzConfig1:   d("0.1"),
		KoganNzConfig2:   d("0.1"),
		KoganNzConfig3:   d("0.9"),

		WeightCalcDivisor:    d("2.5"),
		WeightToleranceRatio: d("0.2"),
	}
}
