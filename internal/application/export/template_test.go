package export

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ozdirect/pricesync/internal/domain/catalog"
	"github.com/ozdirect/pricesync/internal/domain/pricing"
)

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func intp(n int) *int { return &n }

func templateFixtures() (*catalog.Master, *catalog.FreightResult) {
	m := &catalog.Master{
		Sku:      "SKU-1",
		Weight:   dp("2"),
		RRP:      dp("59.95"),
		Brand:    "Acme",
		EAN:      "9300000000001",
		StockQty: intp(12),
	}
	fr := &catalog.FreightResult{
		Sku: "SKU-1",
		Outputs: pricing.Outputs{
			ShippingType: "1",
			KoganAuPrice: dp("44.87"),
			KoganK1Price: dp("39.87"),
			KoganNzPrice: dp("90.28"),
		},
	}
	return m, fr
}

func TestTemplateColumns(t *testing.T) {
	au := TemplateColumns(catalog.CountryAU)
	assert.Len(t, au, 15)
	assert.Equal(t, "SKU", au[0])
	assert.Equal(t, "Price", au[1])

	nz := TemplateColumns(catalog.CountryNZ)
	assert.Equal(t, []string{"SKU", "Price", "RRP", "Kogan First Price", "Shipping", "Handling Days"}, nz)

	assert.Nil(t, TemplateColumns("UK"))
}

func TestShippingToken(t *testing.T) {
	assert.Equal(t, "1", shippingToken("1"))
	assert.Equal(t, "10", shippingToken("10"))
	assert.Equal(t, "variable", shippingToken("extra2"))
	assert.Equal(t, "variable", shippingToken("extra5"))
	assert.Equal(t, "", shippingToken(""))
}

func TestBuildCandidates_CountrySpecificPrice(t *testing.T) {
	m, fr := templateFixtures()

	au := buildCandidates(catalog.CountryAU, m, fr)
	assert.Equal(t, "44.87", au[colPrice].value)
	assert.Equal(t, "9300000000001", au[colBarcode].value)
	assert.Equal(t, "12", au[colStock].value)
	assert.Equal(t, "2.00", au[colWeight].value, "weight falls back to the master when the calculator did not recompute it")

	nz := buildCandidates(catalog.CountryNZ, m, fr)
	assert.Equal(t, "90.28", nz[colPrice].value)
	_, hasBarcode := nz[colBarcode]
	assert.False(t, hasBarcode)
}

func TestBuildCandidates_CalculatedWeightWins(t *testing.T) {
	m, fr := templateFixtures()
	fr.Outputs.Weight = dp("24")
	au := buildCandidates(catalog.CountryAU, m, fr)
	assert.Equal(t, "24.00", au[colWeight].value)
}

func TestDiffRow_ContentColumnsPreserveBaseline(t *testing.T) {
	m, fr := templateFixtures()
	candidates := buildCandidates(catalog.CountryAU, m, fr)
	baseline := map[string]string{
		colTitle: "Acme Widget",
		colPrice: "44.87",
	}

	payload, changed := diffRow(auColumns, candidates, baseline)
	assert.NotContains(t, payload, colTitle, "columns without a computed candidate never diff")
	assert.NotContains(t, changed, colPrice, "an unchanged price is not re-exported")
	assert.Contains(t, changed, colRrp)
	assert.Contains(t, changed, colShipping)
}

func TestDiffRow_ChangedColumnsFollowTemplateOrder(t *testing.T) {
	m, fr := templateFixtures()
	candidates := buildCandidates(catalog.CountryAU, m, fr)

	payload, changed := diffRow(auColumns, candidates, nil)
	assert.Equal(t, []string{colPrice, colRrp, colKoganFirst, colBarcode, colStock, colShipping, colWeight, colBrand}, changed)
	assert.Equal(t, "44.87", payload[colPrice])
	assert.Equal(t, "1", payload[colShipping])
}

func TestDecStringsEqual(t *testing.T) {
	// decimals tolerate sub-half-cent drift
	assert.True(t, decStringsEqual("44.87", "44.872", true))
	assert.False(t, decStringsEqual("44.87", "44.88", true))
	// other numerics compare rounded to three places
	assert.True(t, decStringsEqual("12", "12.0001", false))
	assert.False(t, decStringsEqual("12", "12.001", false))
	// unset only equals unset
	assert.True(t, decStringsEqual("", "", true))
	assert.False(t, decStringsEqual("", "0", true))
	// non-numeric baselines fall back to exact match
	assert.False(t, decStringsEqual("12.00", "n/a", true))
}
