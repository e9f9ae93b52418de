package storefront

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Variant is one (sku, variant id) pair pulled from the bulk export stream.
type Variant struct {
	Sku       string
	VariantID string
	Price     string
	Tags      []string
}

// variantLine is the tolerant shape of one JSONL line. Product lines carry
// tags; variant lines carry sku/price and a parent reference.
type variantLine struct {
	ID       string   `json:"id"`
	Typename string   `json:"__typename"`
	Sku      string   `json:"sku"`
	Price    string   `json:"price"`
	Tags     []string `json:"tags"`
	ParentID string   `json:"__parentId"`
}

// StreamVariants reads the bulk export JSONL line by line and calls fn for
// every product variant carrying both a SKU and an id. Malformed lines are
// skipped. Product lines are remembered so variants inherit their parent's
// tags.
func StreamVariants(r io.Reader, fn func(v Variant) error) error {
	scanner := bufio.NewScanner(r)
	// Bulk export lines can be large
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	productTags := make(map[string][]string)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row variantLine
		if err := json.Unmarshal(line, &row); err != nil {
			continue
		}
		if !isVariant(row) {
			if row.ID != "" {
				productTags[row.ID] = row.Tags
			}
			continue
		}
		// A variant needs both a sku and an id to be addressable later.
		if strings.TrimSpace(row.Sku) == "" || row.ID == "" {
			continue
		}
		v := Variant{
			Sku:       strings.TrimSpace(row.Sku),
			VariantID: row.ID,
			Price:     row.Price,
			Tags:      productTags[row.ParentID],
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// isVariant detects variant lines by typename or by the gid path.
func isVariant(row variantLine) bool {
	if row.Typename == "ProductVariant" {
		return true
	}
	return strings.Contains(row.ID, "/ProductVariant/")
}
