package server

import (
	"fmt"
	"strings"

	"github.com/kbukum/eventrelay/server/middleware"
)

// Config holds HTTP server configuration.
type Config struct {
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout int    `yaml:"read_timeout" mapstructure:"read_timeout"` // seconds, request headers only
	// WriteTimeout applies to plain endpoints and is off by default; subscriber
	// streams clear it where the response writer allows.
	WriteTimeout int `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout  int `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds

	// EventsPath is the subscriber stream route.
	EventsPath string `yaml:"events_path" mapstructure:"events_path"`

	// ConnectRate caps new subscriber streams per client IP per minute. 0 disables it.
	ConnectRate int `yaml:"connect_rate" mapstructure:"connect_rate" validate:"gte=0"`

	CORS middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.EventsPath == "" {
		c.EventsPath = "/events"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Accept", "Cache-Control", "Last-Event-ID"}
	}
	if c.CORS.MaxAge == 0 {
		c.CORS.MaxAge = 600
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if c.EventsPath != "" && !strings.HasPrefix(c.EventsPath, "/") {
		return fmt.Errorf("server.events_path must start with / (got: %s)", c.EventsPath)
	}
	if c.ConnectRate < 0 {
		return fmt.Errorf("server.connect_rate must be non-negative (got: %d)", c.ConnectRate)
	}
	return nil
}
