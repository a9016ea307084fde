package config

import "time"

// ChargingConfig holds the battery monitor configuration
type ChargingConfig struct {
	// Enabled controls whether the battery sweep runs at all
	Enabled bool `mapstructure:"enabled"`

	// Interval between battery sweeps
	Interval time.Duration `mapstructure:"interval"`

	// LowThreshold is the charge fraction below which an idle robot is
	// sent to the charger
	LowThreshold float64 `mapstructure:"low_threshold" validate:"omitempty,gt=0,lt=1"`

	// FullThreshold is the charge fraction at which a charging robot
	// returns to service
	FullThreshold float64 `mapstructure:"full_threshold" validate:"omitempty,gt=0,lte=1"`

	// ChargingPose is the navigation waypoint of the charging dock
	ChargingPose string `mapstructure:"charging_pose"`
}
