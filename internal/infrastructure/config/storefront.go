package config

import "time"

// StorefrontConfig holds the storefront bulk-operation client configuration
type StorefrontConfig struct {
	// Admin API endpoint
	BaseURL string `mapstructure:"base_url" validate:"required,url"`

	// Access token for the admin API
	AccessToken string `mapstructure:"access_token"`

	// Shared secret for webhook HMAC verification
	WebhookSecret string `mapstructure:"webhook_secret"`

	// Product tag the bulk export filters on (tag:<value> status:active)
	SyncTag string `mapstructure:"sync_tag" validate:"required"`

	// Request timeout
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`

	// Bulk polling
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PollMaxAttempts int           `mapstructure:"poll_max_attempts" validate:"min=1"`

	// Retry configuration for bulk-start throttling
	Retry RetryConfig `mapstructure:"retry"`
}
