package config

import "time"

// ScheduleConfig holds the scheduler tick parameters
type ScheduleConfig struct {
	// How often the tick wakes up and consults the schedule table
	TickInterval time.Duration `mapstructure:"tick_interval"`

	// Width of the trigger window after the scheduled instant
	TriggerWindow time.Duration `mapstructure:"trigger_window"`
}
