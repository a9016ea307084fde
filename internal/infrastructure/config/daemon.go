package config

import "time"

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	// PID file location; guards against a second orchestrator racing
	// on the robot hardware
	PIDFile string `mapstructure:"pid_file"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`

	// Task queue capacity
	QueueCapacity int `mapstructure:"queue_capacity" validate:"min=1"`
}
