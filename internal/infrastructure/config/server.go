package config

import "time"

// ServerConfig holds the HTTP command-ingress configuration
type ServerConfig struct {
	// Host to bind, default 0.0.0.0
	Host string `mapstructure:"host"`

	// Port for the command endpoint
	Port int `mapstructure:"port" validate:"min=1,max=65535"`

	// Read and write deadlines for client connections
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Address returns host:port for http.Server
func (c ServerConfig) Address() string {
	return joinHostPort(c.Host, c.Port)
}
