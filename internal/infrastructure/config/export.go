package config

// ExportConfig holds export job parameters
type ExportConfig struct {
	// Dirty SKUs fetched per iteration batch (hard cap 5000)
	BatchSize int `mapstructure:"batch_size" validate:"min=1,max=5000"`
}
