package config

// RedisConfig holds the shared-store connection used for the cross-process
// supplier rate limit. When disabled or unreachable, clients degrade to an
// in-process pacer.
type RedisConfig struct {
	// Enable the shared limiter. Off means in-process pacing only.
	Enabled bool `mapstructure:"enabled"`

	// Full connection URL, e.g. redis://localhost:6379/0
	URL string `mapstructure:"url"`

	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}
