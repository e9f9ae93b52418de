package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TrackedFields is the full field list a sync run diffs against the master
// pre-image. It is a superset of the hash fields: commercial attributes that
// do not influence pricing are still tracked so the storefront stays
// consistent.
var TrackedFields = append(append([]string{}, hashFields...),
	"cbm",
	"rrp",
	"brand",
	"ean",
	"supplier",
	"stock_qty",
	"shopify_variant_id",
	"tags",
)

// Diff compares a normalized snapshot against the pre-image and returns the
// changed-field mask plus the new values for exactly those fields. A nil
// pre-image means the SKU was never seen, so every populated field counts as
// changed.
func Diff(pre, next *Master) (changed map[string]bool, values map[string]interface{}) {
	changed = make(map[string]bool)
	values = make(map[string]interface{})

	record := func(field string, isChanged bool, value interface{}) {
		if isChanged {
			changed[field] = true
			values[field] = value
		}
	}

	var old Master
	if pre != nil {
		old = *pre
	}

	record("price", !decEqual(old.Price, next.Price), decValue(next.Price))
	record("special_price", !decEqual(old.SpecialPrice, next.SpecialPrice), decValue(next.SpecialPrice))
	record("special_price_end_date", !dateEqual(old.SpecialPriceEndDate, next.SpecialPriceEndDate), dateValue(next.SpecialPriceEndDate))
	record("length", !decEqual(old.Length, next.Length), decValue(next.Length))
	record("width", !decEqual(old.Width, next.Width), decValue(next.Width))
	record("height", !decEqual(old.Height, next.Height), decValue(next.Height))
	record("weight", !decEqual(old.Weight, next.Weight), decValue(next.Weight))
	record("rrp", !decEqual(old.RRP, next.RRP), decValue(next.RRP))
	record("brand", strings.TrimSpace(old.Brand) != strings.TrimSpace(next.Brand), next.Brand)
	record("ean", old.EAN != next.EAN, next.EAN)
	record("supplier", old.Supplier != next.Supplier, next.Supplier)
	record("stock_qty", !intEqual(old.StockQty, next.StockQty), intValue(next.StockQty))
	record("shopify_variant_id", old.ShopifyVariantID != next.ShopifyVariantID, next.ShopifyVariantID)
	record("tags", strings.Join(old.Tags, ",") != strings.Join(next.Tags, ","), next.Tags)

	oldRates := freightByField(old.Freight)
	for field, rate := range freightByField(next.Freight) {
		record(field, !decEqual(oldRates[field], rate), decValue(rate))
	}

	// cbm is derived from dimensions but tracked separately in the master
	record("cbm", !decEqual(old.CBM, next.CBM), decValue(next.CBM))

	return changed, values
}

func decEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func decValue(v *decimal.Decimal) interface{} {
	if v == nil {
		return nil
	}
	return v.String()
}

func dateEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func dateValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func intEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intValue(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
