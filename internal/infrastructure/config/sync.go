package config

import "time"

// SyncConfig holds full-sync orchestration parameters
type SyncConfig struct {
	// SKUs per chunk streamed out of the bulk export
	ChunkSize int `mapstructure:"chunk_size" validate:"min=1"`

	// SKUs per freight calculation batch
	CalcBatchSize int `mapstructure:"calc_batch_size" validate:"min=1"`

	// Concurrent task workers in the in-process queue
	Workers int `mapstructure:"workers" validate:"min=1"`

	// Soft time limit per queued task; an expired chunk is marked failed
	TaskTimeout time.Duration `mapstructure:"task_timeout"`

	// Fanouts larger than this are split into sub-groups with their own
	// convergence barriers
	BarrierSplitThreshold int `mapstructure:"barrier_split_threshold" validate:"min=1"`

	// Timezone used for promotion expiry and schedule math
	Timezone string `mapstructure:"timezone" validate:"required"`

	// Alert thresholds evaluated at finalize
	AlertMissingRatio  float64 `mapstructure:"alert_missing_ratio"`
	AlertFailedBatches int     `mapstructure:"alert_failed_batches"`
	AlertFailedSkus    int     `mapstructure:"alert_failed_skus"`
}
