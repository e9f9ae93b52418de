package config

import "time"

// SetDefaults sets default values for all configuration fields
func SetDefaults(cfg *Config) {
	// Database defaults
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "pricesync"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "pricesync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Pool.MaxOpen == 0 {
		cfg.Database.Pool.MaxOpen = 25
	}
	if cfg.Database.Pool.MaxIdle == 0 {
		cfg.Database.Pool.MaxIdle = 5
	}
	if cfg.Database.Pool.MaxLifetime == 0 {
		cfg.Database.Pool.MaxLifetime = 5 * time.Minute
	}

	// Redis defaults
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	// Supplier defaults
	if cfg.Supplier.BaseURL == "" {
		cfg.Supplier.BaseURL = "https://api.supplier.example.com"
	}
	if cfg.Supplier.Timeout == 0 {
		cfg.Supplier.Timeout = 30 * time.Second
	}
	if cfg.Supplier.TokenFallbackTTL == 0 {
		cfg.Supplier.TokenFallbackTTL = 50 * time.Minute
	}
	if cfg.Supplier.ProductBatchSize == 0 {
		cfg.Supplier.ProductBatchSize = 250
	}
	if cfg.Supplier.ZoneRateBatchSize == 0 {
		cfg.Supplier.ZoneRateBatchSize = 100
	}
	if cfg.Supplier.RateLimit.RequestsPerMinute == 0 {
		cfg.Supplier.RateLimit.RequestsPerMinute = 60
	}
	if cfg.Supplier.RateLimit.Burst == 0 {
		cfg.Supplier.RateLimit.Burst = 10
	}
	if cfg.Supplier.RateLimit.QuotaKey == "" {
		cfg.Supplier.RateLimit.QuotaKey = "supplier:default"
	}
	if cfg.Supplier.RateLimit.MaxAcquireAttempts == 0 {
		cfg.Supplier.RateLimit.MaxAcquireAttempts = 120
	}
	if cfg.Supplier.Retry.MaxAttempts == 0 {
		cfg.Supplier.Retry.MaxAttempts = 3
	}
	if cfg.Supplier.Retry.BackoffBase == 0 {
		cfg.Supplier.Retry.BackoffBase = 1 * time.Second
	}

	// Storefront defaults
	if cfg.Storefront.BaseURL == "" {
		cfg.Storefront.BaseURL = "https://example.myshopify.com/admin/api"
	}
	if cfg.Storefront.SyncTag == "" {
		cfg.Storefront.SyncTag = "pricesync"
	}
	if cfg.Storefront.Timeout == 0 {
		cfg.Storefront.Timeout = 30 * time.Second
	}
	if cfg.Storefront.PollInterval == 0 {
		cfg.Storefront.PollInterval = 60 * time.Second
	}
	if cfg.Storefront.PollMaxAttempts == 0 {
		cfg.Storefront.PollMaxAttempts = 30
	}
	if cfg.Storefront.Retry.MaxAttempts == 0 {
		cfg.Storefront.Retry.MaxAttempts = 5
	}
	if cfg.Storefront.Retry.BackoffBase == 0 {
		cfg.Storefront.Retry.BackoffBase = 1 * time.Second
	}

	// Sync defaults
	if cfg.Sync.ChunkSize == 0 {
		cfg.Sync.ChunkSize = 5000
	}
	if cfg.Sync.CalcBatchSize == 0 {
		cfg.Sync.CalcBatchSize = 1000
	}
	if cfg.Sync.Workers == 0 {
		cfg.Sync.Workers = 8
	}
	if cfg.Sync.TaskTimeout == 0 {
		cfg.Sync.TaskTimeout = 10 * time.Minute
	}
	if cfg.Sync.BarrierSplitThreshold == 0 {
		cfg.Sync.BarrierSplitThreshold = 100
	}
	if cfg.Sync.Timezone == "" {
		cfg.Sync.Timezone = "Australia/Sydney"
	}
	if cfg.Sync.AlertMissingRatio == 0 {
		cfg.Sync.AlertMissingRatio = 0.02
	}
	if cfg.Sync.AlertFailedBatches == 0 {
		cfg.Sync.AlertFailedBatches = 3
	}
	if cfg.Sync.AlertFailedSkus == 0 {
		cfg.Sync.AlertFailedSkus = 100
	}

	// Export defaults
	if cfg.Export.BatchSize == 0 {
		cfg.Export.BatchSize = 5000
	}

	// Schedule defaults
	if cfg.Schedule.TickInterval == 0 {
		cfg.Schedule.TickInterval = 5 * time.Minute
	}
	if cfg.Schedule.TriggerWindow == 0 {
		cfg.Schedule.TriggerWindow = 10 * time.Minute
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
