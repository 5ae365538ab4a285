package bootstrap

import (
	"github.com/kbukum/eventrelay/config"
)

// Config is the constraint for application configuration types.
// Any struct that embeds config.ServiceConfig satisfies it through the
// promoted methods, provided it does not shadow them incorrectly.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
