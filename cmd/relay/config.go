package main

import (
	"fmt"

	"github.com/kbukum/eventrelay/config"
	"github.com/kbukum/eventrelay/observability"
	"github.com/kbukum/eventrelay/server"
	"github.com/kbukum/eventrelay/sse"
	"github.com/kbukum/eventrelay/upstream"
	"github.com/kbukum/eventrelay/validation"
	"github.com/kbukum/eventrelay/version"
)

// Config is the relay process configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Upstream      upstream.Config      `yaml:"upstream" mapstructure:"upstream"`
	SSE           sse.Config           `yaml:"sse" mapstructure:"sse"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.GetShortVersion()
	}
	c.ServiceConfig.ApplyDefaults()
	c.Upstream.ApplyDefaults()
	c.SSE.ApplyDefaults()
	c.Server.ApplyDefaults()

	c.Observability.ServiceName = c.Name
	c.Observability.ServiceVersion = c.Version
	c.Observability.Environment = c.Environment
	c.Observability.ApplyDefaults()
}

// Validate runs tag validation and each section's own checks.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	checks := []struct {
		section string
		check   func() error
	}{
		{"upstream", c.Upstream.Validate},
		{"sse", c.SSE.Validate},
		{"server", c.Server.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, ch := range checks {
		if err := ch.check(); err != nil {
			return fmt.Errorf("%s: %w", ch.section, err)
		}
	}
	return nil
}
