package config

import "time"

// SupplierConfig holds supplier API client configuration
type SupplierConfig struct {
	// Base URL for the supplier API
	BaseURL string `mapstructure:"base_url" validate:"required,url"`

	// Credentials exchanged at /auth for a bearer token
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Fallback token TTL when the auth response carries no expiry
	TokenFallbackTTL time.Duration `mapstructure:"token_fallback_ttl"`

	// Request timeout
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`

	// Batch sizes per endpoint. The product endpoint hard limit is 500.
	ProductBatchSize  int `mapstructure:"product_batch_size" validate:"min=1,max=500"`
	ZoneRateBatchSize int `mapstructure:"zone_rate_batch_size" validate:"min=1"`

	// Global quota shared across processes
	RateLimit SupplierRateLimitConfig `mapstructure:"rate_limit"`

	// Per-batch retry configuration
	Retry RetryConfig `mapstructure:"retry"`
}

// SupplierRateLimitConfig holds the shared token bucket parameters
type SupplierRateLimitConfig struct {
	// Requests per minute refilled into the bucket
	RequestsPerMinute int `mapstructure:"requests_per_minute" validate:"min=1"`

	// Burst capacity of the bucket
	Burst int `mapstructure:"burst" validate:"min=1"`

	// Key identifying the (vendor, account) quota in the shared store
	QuotaKey string `mapstructure:"quota_key"`

	// Bounded acquisition attempts before giving up
	MaxAcquireAttempts int `mapstructure:"max_acquire_attempts" validate:"min=1"`
}

// RetryConfig holds retry configuration for failed requests
type RetryConfig struct {
	// Maximum number of retry attempts
	MaxAttempts int `mapstructure:"max_attempts" validate:"min=0"`

	// Base duration for exponential backoff
	BackoffBase time.Duration `mapstructure:"backoff_base"`
}
