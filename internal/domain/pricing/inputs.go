package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// FreightRates holds the 16 zonal freight values fetched from the supplier.
// Nil means the supplier did not report a rate for the zone.
type FreightRates struct {
	ACT    *decimal.Decimal
	NswM   *decimal.Decimal
	NswR   *decimal.Decimal
	NtM    *decimal.Decimal
	QldM   *decimal.Decimal
	QldR   *decimal.Decimal
	SaM    *decimal.Decimal
	SaR    *decimal.Decimal
	TasM   *decimal.Decimal
	TasR   *decimal.Decimal
	VicM   *decimal.Decimal
	VicR   *decimal.Decimal
	WaM    *decimal.Decimal
	Remote *decimal.Decimal
	WaR    *decimal.Decimal
	NZ     *decimal.Decimal
}

// StateSet returns the 12-state freight values used for same_shipping,
// shipping_ave and shipping_med. WA rural, NT metro, remote and NZ are
// excluded. Nil entries are dropped.
func (f FreightRates) StateSet() []decimal.Decimal {
	return present(f.ACT, f.NswM, f.NswR, f.QldM, f.QldR, f.SaM, f.SaR, f.TasM, f.TasR, f.VicM, f.VicR, f.WaM)
}

// MetroSet returns the 8 metro freight values (ACT counts as metro).
func (f FreightRates) MetroSet() []decimal.Decimal {
	return present(f.ACT, f.NswM, f.NtM, f.QldM, f.SaM, f.TasM, f.VicM, f.WaM)
}

// RuralSet returns the 5 rural freight values (WA rural excluded).
func (f FreightRates) RuralSet() []decimal.Decimal {
	return present(f.NswR, f.QldR, f.SaR, f.TasR, f.VicR)
}

func present(vals ...*decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(vals))
	for _, v := range vals {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// Inputs is the full input snapshot for one SKU. Nil pointers mean the value
// is absent; per the missing-input policy an absent input makes the outputs
// that depend on it nil without failing the computation.
type Inputs struct {
	Price               *decimal.Decimal
	SpecialPrice        *decimal.Decimal
	SpecialPriceEndDate *time.Time
	Weight              *decimal.Decimal
	CBM                 *decimal.Decimal
	Length              *decimal.Decimal
	Width               *decimal.Decimal
	Height              *decimal.Decimal
	Freight             FreightRates
}

// Outputs carries every calculator result. Nil means the output could not be
// derived from the given inputs. ShippingType is empty in the same case.
type Outputs struct {
	SellingPrice   *decimal.Decimal
	Adjust         *decimal.Decimal
	SameShipping   *decimal.Decimal
	ShippingAve    *decimal.Decimal
	ShippingAveM   *decimal.Decimal
	ShippingAveR   *decimal.Decimal
	ShippingMed    *decimal.Decimal
	RemoteCheck    bool
	RuralAve       *decimal.Decimal
	WeightedAveS   *decimal.Decimal
	ShippingMedDif *decimal.Decimal
	CubicWeight    *decimal.Decimal
	PriceRatio     *decimal.Decimal
	ShippingType   string
	Weight         *decimal.Decimal
	ShopifyPrice   *decimal.Decimal
	KoganAuPrice   *decimal.Decimal
	KoganK1Price   *decimal.Decimal
	KoganNzPrice   *decimal.Decimal
}

// Shipping type tokens produced by the decision table.
const (
	ShippingTypeZero   = "0"
	ShippingTypeOne    = "1"
	ShippingTypeTen    = "10"
	ShippingTypeTwenty = "20"
	ShippingTypeExtra2 = "extra2"
	ShippingTypeExtra3 = "extra3"
	ShippingTypeExtra4 = "extra4"
	ShippingTypeExtra5 = "extra5"
)

// IsExtraHeavy reports whether the shipping type is one of the buckets that
// carry a recomputed weight (extra3, extra4, extra5).
func IsExtraHeavy(shippingType string) bool {
	switch shippingType {
	case ShippingTypeExtra3, ShippingTypeExtra4, ShippingTypeExtra5:
		return true
	}
	return false
}
