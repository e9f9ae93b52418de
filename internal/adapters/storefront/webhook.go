package storefront

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// TopicBulkFinish is the webhook topic announcing a finished bulk operation.
const TopicBulkFinish = "bulk_operations/finish"

// VerifyWebhookSignature checks the base64 HMAC-SHA256 signature the
// storefront sends with every webhook. Comparison is constant-time.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// BulkFinishPayload is the body of a bulk_operations/finish webhook.
type BulkFinishPayload struct {
	AdminGraphqlAPIID string `json:"admin_graphql_api_id"`
	Status            string `json:"status"`
}
