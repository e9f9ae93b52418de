package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ozdirect/pricesync/internal/domain/pricing"
)

// Change sources recorded on freight results.
const (
	SourceFullSync   = "full_sync"
	SourcePriceReset = "price_reset"
)

// Countries with downstream templates.
const (
	CountryAU = "AU"
	CountryNZ = "NZ"
)

// FreightResult is the per-SKU row of calculator outputs plus bookkeeping.
// A FreightResult exists iff the corresponding Master exists.
type FreightResult struct {
	Sku               string
	Outputs           pricing.Outputs
	AttrsHashLastCalc string
	KoganDirtyAu      bool
	KoganDirtyNz      bool
	LastChangedSource string
	LastChangedRunID  string
	LastChangedAt     *time.Time
}

// Freight result column names used in changed-column sets. These are the
// keys of the column-level upsert; absent columns preserve prior values.
const (
	ColSellingPrice   = "selling_price"
	ColAdjust         = "adjust"
	ColSameShipping   = "same_shipping"
	ColShippingAve    = "shipping_ave"
	ColShippingAveM   = "shipping_ave_m"
	ColShippingAveR   = "shipping_ave_r"
	ColShippingMed    = "shipping_med"
	ColRemoteCheck    = "remote_check"
	ColRuralAve       = "rural_ave"
	ColWeightedAveS   = "weighted_ave_s"
	ColShippingMedDif = "shipping_med_dif"
	ColCubicWeight    = "cubic_weight"
	ColPriceRatio     = "price_ratio"
	ColShippingType   = "shipping_type"
	ColWeight         = "weight"
	ColShopifyPrice   = "shopify_price"
	ColKoganAuPrice   = "kogan_au_price"
	ColKoganK1Price   = "kogan_k1_price"
	ColKoganNzPrice   = "kogan_nz_price"
)

// ResultChanges is a per-SKU set of changed output columns with their new
// values. Values are *decimal.Decimal, string (shipping_type) or bool
// (remote_check); nil clears nothing because absent columns are preserved.
type ResultChanges map[string]interface{}

// DiffOutputs compares freshly computed outputs against the stored result
// and returns the changed-column set. A nil existing result marks every
// populated output as changed.
func DiffOutputs(existing *FreightResult, next pricing.Outputs) ResultChanges {
	changes := make(ResultChanges)

	var old pricing.Outputs
	if existing != nil {
		old = existing.Outputs
	}

	compareDec(changes, ColSellingPrice, old.SellingPrice, next.SellingPrice)
	compareDec(changes, ColAdjust, old.Adjust, next.Adjust)
	compareDec(changes, ColSameShipping, old.SameShipping, next.SameShipping)
	compareDec(changes, ColShippingAve, old.ShippingAve, next.ShippingAve)
	compareDec(changes, ColShippingAveM, old.ShippingAveM, next.ShippingAveM)
	compareDec(changes, ColShippingAveR, old.ShippingAveR, next.ShippingAveR)
	compareDec(changes, ColShippingMed, old.ShippingMed, next.ShippingMed)
	compareDec(changes, ColRuralAve, old.RuralAve, next.RuralAve)
	compareDec(changes, ColWeightedAveS, old.WeightedAveS, next.WeightedAveS)
	compareDec(changes, ColShippingMedDif, old.ShippingMedDif, next.ShippingMedDif)
	compareDec(changes, ColCubicWeight, old.CubicWeight, next.CubicWeight)
	compareDec(changes, ColPriceRatio, old.PriceRatio, next.PriceRatio)
	compareDec(changes, ColWeight, old.Weight, next.Weight)
	compareDec(changes, ColShopifyPrice, old.ShopifyPrice, next.ShopifyPrice)
	compareDec(changes, ColKoganAuPrice, old.KoganAuPrice, next.KoganAuPrice)
	compareDec(changes, ColKoganK1Price, old.KoganK1Price, next.KoganK1Price)
	compareDec(changes, ColKoganNzPrice, old.KoganNzPrice, next.KoganNzPrice)

	if existing == nil || old.RemoteCheck != next.RemoteCheck {
		changes[ColRemoteCheck] = next.RemoteCheck
	}
	if old.ShippingType != next.ShippingType {
		changes[ColShippingType] = next.ShippingType
	}

	return changes
}

// compareDec records col when the decimal value differs. Both-nil counts as
// equal; nil-vs-value counts as changed.
func compareDec(changes ResultChanges, col string, old, next *decimal.Decimal) {
	if decEqual(old, next) {
		return
	}
	changes[col] = next
}
