package config

import "time"

// SetDefaults sets default values for all configuration fields
func SetDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}

	// Robot defaults: the lab's standard two-robot workcell
	if len(cfg.Robots) == 0 {
		cfg.Robots = []RobotConfig{
			{Name: "robot_a", Address: "192.168.217.100:9091", Primary: true},
			{Name: "robot_b", Address: "192.168.217.80:9090"},
		}
	}
	for i := range cfg.Robots {
		r := &cfg.Robots[i]
		if r.RetryInterval == 0 {
			r.RetryInterval = 5 * time.Second
		}
		if r.RequestTimeout == 0 {
			r.RequestTimeout = 10 * time.Second
		}
		if r.RateLimit == 0 {
			r.RateLimit = 8
		}
	}

	// Database defaults
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "workcell.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "workcell"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "workcell"
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

	// Daemon defaults
	if cfg.Daemon.PIDFile == "" {
		cfg.Daemon.PIDFile = "/tmp/workcell-daemon.pid"
	}
	if cfg.Daemon.ShutdownTimeout == 0 {
		cfg.Daemon.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Daemon.QueueCapacity == 0 {
		cfg.Daemon.QueueCapacity = 100
	}

	// Charging defaults
	if cfg.Charging.Interval == 0 {
		cfg.Charging.Interval = 30 * time.Second
	}
	if cfg.Charging.LowThreshold == 0 {
		cfg.Charging.LowThreshold = 0.30
	}
	if cfg.Charging.FullThreshold == 0 {
		cfg.Charging.FullThreshold = 0.80
	}
	if cfg.Charging.ChargingPose == "" {
		cfg.Charging.ChargingPose = "charging_station"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Logging.ErrorDir == "" {
		cfg.Logging.ErrorDir = "logs"
	}

	// Metrics defaults
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
