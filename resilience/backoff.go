package resilience

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Defaults for the reconnection policy.
const (
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 30 * time.Second
	DefaultMultiplier   = 2.0

	// minDelay is the floor for any computed delay so a policy never busy-loops.
	minDelay = time.Millisecond
)

// ReconnectConfig configures exponential reconnection backoff.
type ReconnectConfig struct {
	// InitialDelay is the delay after the first consecutive failure.
	InitialDelay time.Duration `yaml:"initial_delay" mapstructure:"initial_delay" validate:"gte=0"`
	// MaxDelay caps the delay.
	MaxDelay time.Duration `yaml:"max_delay" mapstructure:"max_delay" validate:"gte=0"`
	// Multiplier is the growth factor between consecutive failures.
	Multiplier float64 `yaml:"multiplier" mapstructure:"multiplier" validate:"gte=0"`
	// MaxAttempts is the number of consecutive failures after which the
	// policy gives up. Zero means unlimited.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=0"`
}

// DefaultReconnectConfig returns the defaults: 1s doubling up to 30s, forever.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Multiplier:   DefaultMultiplier,
	}
}

// ApplyDefaults fills unset fields.
func (c *ReconnectConfig) ApplyDefaults() {
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = DefaultMultiplier
	}
}

// Validate checks the configuration after defaults are applied.
func (c *ReconnectConfig) Validate() error {
	if c.Multiplier < 1 {
		return fmt.Errorf("reconnect.multiplier must be >= 1 (got: %g)", c.Multiplier)
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("reconnect.max_delay (%s) must be >= reconnect.initial_delay (%s)", c.MaxDelay, c.InitialDelay)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must be >= 0 (got: %d)", c.MaxAttempts)
	}
	return nil
}

// ReconnectPolicy decides how long to wait before the next connection attempt.
// It is a pure function of the consecutive failure count: the delay never
// decreases as failures grow and never exceeds MaxDelay.
type ReconnectPolicy struct {
	cfg ReconnectConfig
}

// NewReconnectPolicy creates a policy, applying defaults to unset fields.
// A multiplier below 1 is raised to 1 so delays stay non-decreasing.
func NewReconnectPolicy(cfg ReconnectConfig) *ReconnectPolicy {
	cfg.ApplyDefaults()
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	return &ReconnectPolicy{cfg: cfg}
}

// Config returns the effective configuration.
func (p *ReconnectPolicy) Config() ReconnectConfig { return p.cfg }

// Delay returns the wait before the next attempt after the given number of
// consecutive failures (1 for the first failure).
func (p *ReconnectPolicy) Delay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	// initial * multiplier^(failures-1)
	d := float64(p.cfg.InitialDelay) * math.Pow(p.cfg.Multiplier, float64(failures-1))
	if math.IsInf(d, 0) || math.IsNaN(d) || d > float64(p.cfg.MaxDelay) {
		d = float64(p.cfg.MaxDelay)
	}
	if d < float64(minDelay) {
		d = float64(minDelay)
	}
	return time.Duration(d)
}

// Next reports the delay before the next attempt and whether another attempt
// should be made at all. It returns false only once MaxAttempts consecutive
// failures have happened.
func (p *ReconnectPolicy) Next(failures int) (time.Duration, bool) {
	if p.cfg.MaxAttempts > 0 && failures >= p.cfg.MaxAttempts {
		return 0, false
	}
	return p.Delay(failures), true
}

// Wait blocks for d or until ctx is done, whichever comes first.
func Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
