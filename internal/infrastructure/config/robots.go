package config

import (
	"net"
	"strconv"
	"time"
)

// RobotConfig holds the connection parameters of one robot link
type RobotConfig struct {
	// Name is the robot identifier, e.g. "robot_a"
	Name string `mapstructure:"name" validate:"required"`

	// Address is the rosbridge endpoint as host:port
	Address string `mapstructure:"address" validate:"required,hostname_port"`

	// Primary marks the robot that executes tasks; exactly one robot
	// should carry it. A failed primary connection is fatal at startup.
	Primary bool `mapstructure:"primary"`

	// RetryInterval is the delay before the first reconnect attempt
	RetryInterval time.Duration `mapstructure:"retry_interval"`

	// MaxRetryAttempts bounds connect attempts; zero means unlimited
	MaxRetryAttempts int `mapstructure:"max_retry_attempts" validate:"min=0"`

	// RequestTimeout is the default per-call reply deadline
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// RateLimit is the maximum outbound requests per second
	RateLimit float64 `mapstructure:"rate_limit" validate:"omitempty,gt=0"`
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
