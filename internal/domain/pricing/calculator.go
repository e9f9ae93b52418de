package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ComputeAll derives every pricing output for one SKU. It is a pure function
// of its arguments: no I/O, no clock, no randomness, so identical inputs and
// config always yield identical outputs.
//
// All rounding is half-up to the stated number of places. Monetary values
// never touch binary floating point.
func ComputeAll(in Inputs, cfg Config) Outputs {
	var out Outputs

	out.SellingPrice = sellingPrice(in)
	out.Adjust = adjust(out.SellingPrice, cfg)

	states := in.Freight.StateSet()
	out.SameShipping = sameShipping(states)
	out.ShippingAve = meanRounded(states, 1)
	out.ShippingAveM = meanRounded(in.Freight.MetroSet(), 1)
	out.ShippingAveR = meanRounded(in.Freight.RuralSet(), 1)
	out.ShippingMed = median(states)

	out.RemoteCheck = remoteCheck(in.Freight, cfg)
	out.RuralAve = ruralAve(out.ShippingAve, in.Freight, out.RemoteCheck)
	out.WeightedAveS = weightedAveS(out.ShippingAve, out.RuralAve, out.RemoteCheck, cfg)
	out.ShippingMedDif = shippingMedDif(out.ShippingMed, in.Freight)
	out.CubicWeight = cubicWeight(in.Weight, in.CBM, cfg)
	out.PriceRatio = priceRatio(out.RuralAve, in.Price)

	out.ShippingType = shippingType(out, cfg)
	out.Weight = recomputedWeight(out.ShippingType, in.Weight, out.CubicWeight, out.ShippingMed, cfg)

	out.ShopifyPrice = shopifyPrice(out.SellingPrice, cfg)
	out.KoganAuPrice = koganAuPrice(out, in.Freight, cfg)
	out.KoganK1Price = koganK1Price(out.KoganAuPrice, cfg)
	out.KoganNzPrice = koganNzPrice(out.SellingPrice, in.Freight.NZ, cfg)

	return out
}

// sellingPrice returns special_price when set, otherwise price. The promotion
// expiry is deliberately not inspected here: expiry handling happens upstream
// (attribute hash preprocessing and the price-reset run).
func sellingPrice(in Inputs) *decimal.Decimal {
	if in.SpecialPrice != nil {
		return ptr(*in.SpecialPrice)
	}
	if in.Price != nil {
		return ptr(*in.Price)
	}
	return nil
}

func adjust(selling *decimal.Decimal, cfg Config) *decimal.Decimal {
	if selling == nil || !selling.LessThan(cfg.AdjustThreshold) {
		return nil
	}
	return ptr(selling.Mul(cfg.AdjustRate).Round(2))
}

// sameShipping is the spread of the 12-state freight set. It needs at least
// two present values.
func sameShipping(states []decimal.Decimal) *decimal.Decimal {
	if len(states) < 2 {
		return nil
	}
	min, max := states[0], states[0]
	for _, v := range states[1:] {
		if v.LessThan(min) {
			min = v
		}
		if v.GreaterThan(max) {
			max = v
		}
	}
	return ptr(max.Sub(min))
}

func meanRounded(vals []decimal.Decimal, places int32) *decimal.Decimal {
	if len(vals) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, v := range vals {
		sum = sum.Add(v)
	}
	return ptr(sum.Div(decimal.NewFromInt(int64(len(vals)))).Round(places))
}

func median(vals []decimal.Decimal) *decimal.Decimal {
	if len(vals) == 0 {
		return nil
	}
	sorted := make([]decimal.Decimal, len(vals))
	copy(sorted, vals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return ptr(sorted[mid])
	}
	return ptr(sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2)).Round(2))
}

// remoteCheck is true when the remote rate carries one of the non-service
// sentinels, or WA rural carries its sentinel.
func remoteCheck(f FreightRates, cfg Config) bool {
	if f.Remote != nil && (f.Remote.Equal(cfg.Remote1) || f.Remote.Equal(cfg.Remote2)) {
		return true
	}
	return f.WaR != nil && f.WaR.Equal(cfg.WaRSentinel)
}

func ruralAve(shippingAve *decimal.Decimal, f FreightRates, remote bool) *decimal.Decimal {
	if remote {
		if shippingAve == nil {
			return nil
		}
		return ptr(*shippingAve)
	}
	return meanRounded(present(f.Remote, f.WaR), 1)
}

func weightedAveS(shippingAve, ruralAve *decimal.Decimal, remote bool, cfg Config) *decimal.Decimal {
	if shippingAve == nil {
		return nil
	}
	if remote {
		return ptr(*shippingAve)
	}
	if ruralAve == nil {
		return nil
	}
	blended := shippingAve.Mul(cfg.WeightedAveShippingWeight).Add(ruralAve.Mul(cfg.WeightedAveRuralWeight))
	return ptr(blended.Round(1))
}

func shippingMedDif(med *decimal.Decimal, f FreightRates) *decimal.Decimal {
	if med == nil {
		return nil
	}
	var best *decimal.Decimal
	for _, v := range present(f.Remote, f.WaM) {
		dif := v.Sub(*med)
		if best == nil || dif.GreaterThan(*best) {
			best = ptr(dif)
		}
	}
	return best
}

func cubicWeight(weight, cbm *decimal.Decimal, cfg Config) *decimal.Decimal {
	if weight == nil || cbm == nil {
		return nil
	}
	volumetric := cbm.Mul(cfg.CubicFactor)
	if weight.GreaterThan(volumetric.Sub(cfg.CubicHeadroom)) {
		return nil
	}
	return ptr(volumetric.Round(2))
}

func priceRatio(ruralAve, price *decimal.Decimal) *decimal.Decimal {
	if ruralAve == nil || price == nil || price.IsZero() {
		return nil
	}
	return ptr(ruralAve.DivRound(*price, 4))
}

// shippingType walks the ordered decision table. Comparisons against nil
// intermediates evaluate to false, which matches the missing-input policy:
// an undeterminable branch never fires.
func shippingType(out Outputs, cfg Config) string {
	ruralAve := out.RuralAve
	if ruralAve == nil {
		return ""
	}
	if ruralAve.IsZero() {
		return ShippingTypeZero
	}
	same := out.SameShipping
	if same == nil {
		return ""
	}

	ruralCondition := out.RemoteCheck || lessThan(out.ShippingMedDif, cfg.MedDif40)
	priceRatioCondition := lessThan(out.PriceRatio, cfg.PriceRatioLimit)

	switch {
	case same.IsZero() && ruralCondition:
		return ShippingTypeOne
	case same.LessThan(cfg.SameShipping10) && ruralCondition && lessThan(out.ShippingMedDif, cfg.MedDif10):
		return ShippingTypeTen
	case same.LessThan(cfg.SameShipping20) && ruralCondition && priceRatioCondition && lessThan(out.ShippingMedDif, cfg.MedDif20):
		return ShippingTypeTwenty
	case same.LessThan(cfg.SameShipping30) && ruralCondition && priceRatioCondition:
		return ShippingTypeExtra2
	case same.LessThan(cfg.SameShipping50):
		return ShippingTypeExtra3
	case same.LessThan(cfg.SameShipping100):
		return ShippingTypeExtra4
	default:
		return ShippingTypeExtra5
	}
}

func lessThan(v *decimal.Decimal, limit decimal.Decimal) bool {
	return v != nil && v.LessThan(limit)
}

// recomputedWeight derives the billable weight for extra-heavy shipping
// types from the larger of physical and volumetric weight, falling back to
// a median-derived figure when they disagree beyond the tolerance ratio.
func recomputedWeight(shippingType string, inputWeight, cubic, med *decimal.Decimal, cfg Config) *decimal.Decimal {
	if !IsExtraHeavy(shippingType) {
		return nil
	}

	maxW := decimal.Zero
	if inputWeight != nil {
		maxW = *inputWeight
	}
	if cubic != nil && cubic.GreaterThan(maxW) {
		maxW = *cubic
	}

	var calcW decimal.Decimal
	if med != nil {
		calcW = med.DivRound(cfg.WeightCalcDivisor, 4)
	}

	var result decimal.Decimal
	switch {
	case maxW.IsZero() || med == nil || med.IsZero():
		result = calcW
	default:
		diffRatio := calcW.Sub(maxW).Abs().DivRound(maxW, 6)
		if diffRatio.LessThanOrEqual(cfg.WeightToleranceRatio) {
			result = maxW
		} else {
			result = calcW
		}
	}

	result = result.Round(2)
	if result.IsZero() {
		return nil
	}
	return ptr(result)
}

func shopifyPrice(selling *decimal.Decimal, cfg Config) *decimal.Decimal {
	if selling == nil {
		return nil
	}
	mult := cfg.ShopifyConfig2
	if selling.LessThan(cfg.ShopifyThreshold) {
		mult = cfg.ShopifyConfig1
	}
	return ptr(selling.Mul(mult).Round(2))
}

func koganAuPrice(out Outputs, f FreightRates, cfg Config) *decimal.Decimal {
	selling := out.SellingPrice
	if selling == nil {
		return nil
	}

	switch out.ShippingType {
	case ShippingTypeExtra2:
		if out.WeightedAveS == nil {
			return nil
		}
		return ptr(selling.Add(*out.WeightedAveS).DivRound(cfg.KoganAuNormalHighDenom, 2))

	case ShippingTypeExtra3, ShippingTypeExtra4, ShippingTypeExtra5:
		if f.VicM == nil {
			return nil
		}
		var price decimal.Decimal
		if f.VicM.IsZero() {
			price = selling.DivRound(cfg.KoganAuNormalHighDenom, 2)
		} else {
			price = selling.Add(f.VicM.Mul(cfg.KoganAuVicHalfFactor)).DivRound(cfg.KoganAuNormalHighDenom, 2)
		}
		if out.ShippingType == ShippingTypeExtra5 {
			price = price.DivRound(cfg.KoganAuExtra5Discount, 2)
		}
		return ptr(price)

	default:
		if out.ShippingMed == nil {
			return nil
		}
		denom := cfg.KoganAuNormalHighDenom
		if selling.LessThan(cfg.ShopifyThreshold) {
			denom = cfg.KoganAuNormalLowDenom
		}
		return ptr(selling.Add(*out.ShippingMed).DivRound(denom, 2))
	}
}

func koganK1Price(koganAu *decimal.Decimal, cfg Config) *decimal.Decimal {
	if koganAu == nil {
		return nil
	}
	if koganAu.GreaterThan(cfg.K1Threshold) {
		return ptr(koganAu.Mul(cfg.K1DiscountMultiplier).Round(2))
	}
	return ptr(koganAu.Sub(cfg.K1OtherwiseMinus).Round(2))
}

func koganNzPrice(selling, nz *decimal.Decimal, cfg Config) *decimal.Decimal {
	if selling == nil || nz == nil || nz.Equal(cfg.KoganNzServiceNo) {
		return nil
	}
	denom := decimal.NewFromInt(1).Sub(cfg.KoganNzConfig1).Sub(cfg.KoganNzConfig2)
	if denom.IsZero() || cfg.KoganNzConfig3.IsZero() {
		return nil
	}
	return ptr(selling.Add(*nz).Div(denom).DivRound(cfg.KoganNzConfig3, 2))
}

func ptr(v decimal.Decimal) *decimal.Decimal {
	return &v
}
