package storefront

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"admin_graphql_api_id":"gid://shopify/BulkOperation/1","status":"completed"}`)

	assert.True(t, VerifyWebhookSignature("secret", body, sign("secret", body)))
	assert.False(t, VerifyWebhookSignature("secret", body, sign("other", body)))
	assert.False(t, VerifyWebhookSignature("secret", []byte("tampered"), sign("secret", body)))
	assert.False(t, VerifyWebhookSignature("secret", body, "not-base64-hmac"))
}

func TestStreamVariants(t *testing.T) {
	jsonl := strings.Join([]string{
		`{"id":"gid://shopify/Product/1","__typename":"Product","tags":["pricesync","featured"]}`,
		`{"id":"gid://shopify/ProductVariant/11","__typename":"ProductVariant","sku":"SKU-A","price":"19.99","__parentId":"gid://shopify/Product/1"}`,
		`{"id":"gid://shopify/ProductVariant/12","sku":"SKU-B","price":"5.00","__parentId":"gid://shopify/Product/1"}`,
		`not json at all`,
		`{"id":"gid://shopify/ProductVariant/13","__typename":"ProductVariant","sku":"  ","__parentId":"gid://shopify/Product/1"}`,
		`{"__typename":"ProductVariant","sku":"SKU-NOID","price":"1.00","__parentId":"gid://shopify/Product/1"}`,
		`{"id":"gid://shopify/ProductVariant/14","__typename":"ProductVariant","sku":" SKU-C ","__parentId":"gid://shopify/Product/2"}`,
	}, "\n")

	var got []Variant
	err := StreamVariants(strings.NewReader(jsonl), func(v Variant) error {
		got = append(got, v)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3, "blank-SKU, missing-id and malformed lines are skipped")

	assert.Equal(t, "SKU-A", got[0].Sku)
	assert.Equal(t, "gid://shopify/ProductVariant/11", got[0].VariantID)
	assert.Equal(t, "19.99", got[0].Price)
	assert.Equal(t, []string{"pricesync", "featured"}, got[0].Tags, "tags come from the parent product line")

	assert.Equal(t, "SKU-B", got[1].Sku, "gid path identifies variants without a typename")

	assert.Equal(t, "SKU-C", got[2].Sku, "SKUs are trimmed")
	assert.Nil(t, got[2].Tags, "unknown parent leaves tags empty")
}

func TestStreamVariants_CallbackErrorStopsStream(t *testing.T) {
	jsonl := `{"id":"gid://shopify/ProductVariant/1","__typename":"ProductVariant","sku":"A"}` + "\n" +
		`{"id":"gid://shopify/ProductVariant/2","__typename":"ProductVariant","sku":"B"}`

	calls := 0
	err := StreamVariants(strings.NewReader(jsonl), func(v Variant) error {
		calls++
		return assert.AnError
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestStreamVariants_EmptyStream(t *testing.T) {
	err := StreamVariants(strings.NewReader(""), func(v Variant) error {
		t.Fatal("no variants expected")
		return nil
	})
	assert.NoError(t, err)
}
