package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ozdirect/pricesync/internal/domain/pricing"
)

// hashFields is the declared, ordered list of pricing-relevant fields the
// attribute hash covers. Changing the order or membership changes every
// fingerprint, which forces a full recalculation on the next manual run.
var hashFields = []string{
	"price",
	"special_price",
	"special_price_end_date",
	"length",
	"width",
	"height",
	"weight",
	"act",
	"nsw_m",
	"nsw_r",
	"nt_m",
	"qld_m",
	"qld_r",
	"sa_m",
	"sa_r",
	"tas_m",
	"tas_r",
	"vic_m",
	"vic_r",
	"wa_m",
	"remote",
	"wa_r",
	"nz",
}

// PricingRelevantFields returns the field names covered by the attribute
// hash. Candidates whose change mask does not intersect this set are skipped
// by the freight calculation run.
func PricingRelevantFields() map[string]bool {
	set := make(map[string]bool, len(hashFields))
	for _, f := range hashFields {
		set[f] = true
	}
	return set
}

// AttrsHash computes the canonical SHA-256 fingerprint of the declared
// pricing-relevant fields.
//
// Preprocessing: a special price whose end date is strictly before today in
// loc is treated as expired, so special_price hashes as equal to price. The
// promotion remains valid on the end date itself.
func AttrsHash(m *Master, today time.Time, loc *time.Location) string {
	special := m.SpecialPrice
	if promoExpired(m.SpecialPriceEndDate, today, loc) {
		special = m.Price
	}

	values := map[string]string{
		"price":                  canonDecimal(m.Price),
		"special_price":          canonDecimal(special),
		"special_price_end_date": canonDate(m.SpecialPriceEndDate, loc),
		"length":                 canonDecimal(m.Length),
		"width":                  canonDecimal(m.Width),
		"height":                 canonDecimal(m.Height),
		"weight":                 canonDecimal(m.Weight),
	}
	for name, rate := range freightByField(m.Freight) {
		values[name] = canonDecimal(rate)
	}

	parts := make([]string, 0, len(hashFields))
	for _, f := range hashFields {
		parts = append(parts, f+"="+values[f])
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func promoExpired(end *time.Time, today time.Time, loc *time.Location) bool {
	if end == nil {
		return false
	}
	endDay := end.In(loc).Format("2006-01-02")
	todayDay := today.In(loc).Format("2006-01-02")
	return endDay < todayDay
}

func freightByField(f pricing.FreightRates) map[string]*decimal.Decimal {
	return map[string]*decimal.Decimal{
		"act":    f.ACT,
		"nsw_m":  f.NswM,
		"nsw_r":  f.NswR,
		"nt_m":   f.NtM,
		"qld_m":  f.QldM,
		"qld_r":  f.QldR,
		"sa_m":   f.SaM,
		"sa_r":   f.SaR,
		"tas_m":  f.TasM,
		"tas_r":  f.TasR,
		"vic_m":  f.VicM,
		"vic_r":  f.VicR,
		"wa_m":   f.WaM,
		"remote": f.Remote,
		"wa_r":   f.WaR,
		"nz":     f.NZ,
	}
}

func canonDecimal(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.StringFixed(2)
}

func canonDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format("2006-01-02")
}
