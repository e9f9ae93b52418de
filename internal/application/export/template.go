package export

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ozdirect/pricesync/internal/domain/catalog"
)

// Template column names shared by both country layouts.
const (
	colSku          = "SKU"
	colPrice        = "Price"
	colRrp          = "RRP"
	colKoganFirst   = "Kogan First Price"
	colHandlingDays = "Handling Days"
	colBarcode      = "Barcode"
	colStock        = "Stock"
	colShipping     = "Shipping"
	colWeight       = "Weight"
	colBrand        = "Brand"
	colTitle        = "Title"
	colDescription  = "Description"
	colSubtitle     = "Subtitle"
	colWhatsInBox   = "What's in the Box"
	colCategory     = "Category"
)

var auColumns = []string{
	colSku, colPrice, colRrp, colKoganFirst, colHandlingDays, colBarcode,
	colStock, colShipping, colWeight, colBrand, colTitle, colDescription,
	colSubtitle, colWhatsInBox, colCategory,
}

var nzColumns = []string{
	colSku, colPrice, colRrp, colKoganFirst, colShipping, colHandlingDays,
}

// TemplateColumns returns the fixed CSV header for a country, nil when the
// country has no template.
func TemplateColumns(country string) []string {
	switch country {
	case catalog.CountryAU:
		return auColumns
	case catalog.CountryNZ:
		return nzColumns
	default:
		return nil
	}
}

type cellKind int

const (
	cellString cellKind = iota
	cellDecimal
	cellNumeric
)

// cell is one candidate template value. An empty value means the attribute is
// unset; content columns the engine never computes (Title, Description, ...)
// have no cell at all and always preserve the baseline.
type cell struct {
	kind  cellKind
	value string
}

var diffEpsilon = decimal.NewFromFloat(0.005)

// buildCandidates maps one SKU's master attributes and calculator outputs to
// the country's template columns.
func buildCandidates(country string, m *catalog.Master, fr *catalog.FreightResult) map[string]cell {
	out := make(map[string]cell, 8)

	out[colRrp] = decCell(m.RRP)
	out[colKoganFirst] = decCell(fr.Outputs.KoganK1Price)
	out[colShipping] = cell{kind: cellString, value: shippingToken(fr.Outputs.ShippingType)}

	switch country {
	case catalog.CountryNZ:
		out[colPrice] = decCell(fr.Outputs.KoganNzPrice)
	default:
		out[colPrice] = decCell(fr.Outputs.KoganAuPrice)
		out[colBarcode] = cell{kind: cellString, value: m.EAN}
		out[colBrand] = cell{kind: cellString, value: m.Brand}
		out[colStock] = intCell(m.StockQty)
		weight := fr.Outputs.Weight
		if weight == nil {
			weight = m.Weight
		}
		out[colWeight] = decCell(weight)
	}
	return out
}

// shippingToken renders the shipping type for the template. Every extra
// bucket becomes the downstream "variable" shipping class; numeric buckets
// pass through.
func shippingToken(shippingType string) string {
	if strings.HasPrefix(shippingType, "extra") {
		return "variable"
	}
	return shippingType
}

func decCell(d *decimal.Decimal) cell {
	if d == nil {
		return cell{kind: cellDecimal}
	}
	return cell{kind: cellDecimal, value: d.StringFixed(2)}
}

func intCell(n *int) cell {
	if n == nil {
		return cell{kind: cellNumeric}
	}
	return cell{kind: cellNumeric, value: decimal.NewFromInt(int64(*n)).String()}
}

// diffRow compares the candidate cells against the baseline row and returns
// the changed column values plus the ordered changed-column names. Columns
// without a candidate cell never diff.
func diffRow(columns []string, candidates map[string]cell, baseline map[string]string) (map[string]string, []string) {
	payload := make(map[string]string)
	var changed []string
	for _, col := range columns {
		if col == colSku {
			continue
		}
		c, ok := candidates[col]
		if !ok {
			continue
		}
		if cellEqual(c, baseline[col]) {
			continue
		}
		payload[col] = c.value
		changed = append(changed, col)
	}
	return payload, changed
}

// cellEqual applies the per-kind tolerance: strings trimmed with "" meaning
// unset, decimals within epsilon, other numerics rounded to 3 places.
func cellEqual(c cell, baseVal string) bool {
	switch c.kind {
	case cellDecimal:
		return decStringsEqual(c.value, baseVal, true)
	case cellNumeric:
		return decStringsEqual(c.value, baseVal, false)
	default:
		return strings.TrimSpace(c.value) == strings.TrimSpace(baseVal)
	}
}

func decStringsEqual(a, b string, epsilon bool) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return a == b
	}
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA != nil || errB != nil {
		return a == b
	}
	if epsilon {
		return da.Sub(db).Abs().LessThan(diffEpsilon)
	}
	return da.Round(3).Equal(db.Round(3))
}
