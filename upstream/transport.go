package upstream

import (
	"context"
	"net/http"

	"github.com/kbukum/eventrelay/errors"
)

// Conn is one live upstream connection, owned by the session while connected.
type Conn interface {
	// Receive blocks for the next message. It returns an error once the
	// connection is closed or broken, and ctx.Err() when ctx ends.
	Receive(ctx context.Context) ([]byte, error)
	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Dialer opens connections to the configured feed.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
	// Address identifies the feed in logs, with credentials removed.
	Address() string
}

// NewDialer picks the transport from the URL scheme.
func NewDialer(cfg *Config) (Dialer, error) {
	transport, err := transportFor(cfg.URL)
	if err != nil {
		return nil, errors.Validation(err.Error())
	}
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, errors.Validation(err.Error()).WithCause(err)
	}

	switch transport {
	case TransportWebSocket:
		return NewWebSocketDialer(cfg, tlsCfg), nil
	default:
		return NewSSEDialer(cfg, tlsCfg), nil
	}
}

func headerFrom(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}
