package upstream

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kbukum/eventrelay/resilience"
	"github.com/kbukum/eventrelay/security"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultMaxMessageSize = 1 << 20
)

// Config describes the single upstream feed.
type Config struct {
	// URL selects the transport by scheme: ws/wss for WebSocket, http/https for SSE.
	URL string `yaml:"url" mapstructure:"url" validate:"required,url"`

	// Headers are sent with every connection attempt (auth tokens, API keys).
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// ConnectTimeout bounds the handshake. Defaults to 10s.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" validate:"gte=0"`

	// ReadTimeout fails a connection that stays silent this long. 0 disables it.
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`

	// MaxMessageSize caps one inbound message in bytes. Defaults to 1 MiB.
	MaxMessageSize int64 `yaml:"max_message_size" mapstructure:"max_message_size" validate:"gte=0"`

	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	Reconnect resilience.ReconnectConfig `yaml:"reconnect" mapstructure:"reconnect"`
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	c.Reconnect.ApplyDefaults()
}

// Validate checks the upstream settings.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("upstream.url is required")
	}
	if _, err := transportFor(c.URL); err != nil {
		return err
	}
	if c.ConnectTimeout < 0 || c.ReadTimeout < 0 {
		return fmt.Errorf("upstream timeouts must not be negative")
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("upstream.%w", err)
	}
	return c.Reconnect.Validate()
}

// Transport names a wire protocol for the upstream feed.
type Transport string

const (
	TransportWebSocket Transport = "websocket"
	TransportSSE       Transport = "sse"
)

func transportFor(raw string) (Transport, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("upstream.url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return TransportWebSocket, nil
	case "http", "https":
		return TransportSSE, nil
	default:
		return "", fmt.Errorf("upstream.url: unsupported scheme %q (want ws, wss, http or https)", u.Scheme)
	}
}

// redact hides credentials in a URL for logs.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}
