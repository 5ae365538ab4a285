package sse

import (
	"fmt"
	"time"
)

// Config controls delivery to subscribers and the shape of their streams.
type Config struct {
	// SendTimeout bounds how long a publish may wait on one subscriber whose
	// queue is full before the subscriber is treated as failed.
	SendTimeout time.Duration `yaml:"send_timeout" mapstructure:"send_timeout" validate:"gt=0"`
	// QueueSize is the per-subscriber buffered queue length.
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size" validate:"gte=1"`
	// KeepAlive is the interval between comment lines on streams.
	// Defaults to 30s; a negative value disables them.
	KeepAlive time.Duration `yaml:"keep_alive" mapstructure:"keep_alive"`
	// MaxLifetime closes a stream after this long. 0 means no limit.
	MaxLifetime time.Duration `yaml:"max_lifetime" mapstructure:"max_lifetime" validate:"gte=0"`
	// Retry is the reconnect hint sent to clients in the "retry:" field. 0 omits it.
	Retry time.Duration `yaml:"retry" mapstructure:"retry" validate:"gte=0"`
	// MaxParallelSends caps concurrent slow-path sends in one publish. 0 means no cap.
	MaxParallelSends int `yaml:"max_parallel_sends" mapstructure:"max_parallel_sends" validate:"gte=0"`
	// MaxSubscribers caps open streams; further requests get 503. 0 means no cap.
	MaxSubscribers int `yaml:"max_subscribers" mapstructure:"max_subscribers" validate:"gte=0"`
}

// DefaultConfig returns the delivery defaults.
func DefaultConfig() Config {
	return Config{
		SendTimeout: 5 * time.Second,
		QueueSize:   256,
		KeepAlive:   30 * time.Second,
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.SendTimeout == 0 {
		c.SendTimeout = def.SendTimeout
	}
	if c.QueueSize == 0 {
		c.QueueSize = def.QueueSize
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = def.KeepAlive
	}
}

// Validate checks the delivery settings.
func (c *Config) Validate() error {
	if c.SendTimeout <= 0 {
		return fmt.Errorf("sse.send_timeout must be positive, got %s", c.SendTimeout)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("sse.queue_size must be at least 1, got %d", c.QueueSize)
	}
	if c.MaxLifetime < 0 || c.Retry < 0 {
		return fmt.Errorf("sse.max_lifetime and sse.retry must not be negative")
	}
	if c.MaxSubscribers < 0 {
		return fmt.Errorf("sse.max_subscribers must not be negative, got %d", c.MaxSubscribers)
	}
	if c.MaxParallelSends < 0 {
		return fmt.Errorf("sse.max_parallel_sends must not be negative, got %d", c.MaxParallelSends)
	}
	return nil
}
