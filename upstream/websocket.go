package upstream

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kbukum/eventrelay/errors"
)

// WebSocketDialer connects to a ws:// or wss:// feed. Text and binary
// messages are relayed as-is; control frames are handled by the library.
type WebSocketDialer struct {
	url            string
	address        string
	header         http.Header
	dialer         *websocket.Dialer
	readTimeout    time.Duration
	maxMessageSize int64
}

// NewWebSocketDialer creates a dialer from cfg. tlsCfg may be nil.
func NewWebSocketDialer(cfg *Config, tlsCfg *tls.Config) *WebSocketDialer {
	c := *cfg
	c.ApplyDefaults()
	return &WebSocketDialer{
		url:     c.URL,
		address: redact(c.URL),
		header:  headerFrom(c.Headers),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: c.ConnectTimeout,
			TLSClientConfig:  tlsCfg,
		},
		readTimeout:    c.ReadTimeout,
		maxMessageSize: c.MaxMessageSize,
	}
}

// Address implements Dialer.
func (d *WebSocketDialer) Address() string { return d.address }

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, d.url, d.header.Clone())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w: status %d", err, resp.StatusCode)
		}
		return nil, errors.UpstreamConnect(d.address, err)
	}
	if d.maxMessageSize > 0 {
		conn.SetReadLimit(d.maxMessageSize)
	}
	return &wsConn{conn: conn, readTimeout: d.readTimeout}, nil
}

type wsConn struct {
	conn        *websocket.Conn
	readTimeout time.Duration
	closeOnce   sync.Once
}

// Receive implements Conn.
func (c *wsConn) Receive(ctx context.Context) ([]byte, error) {
	// Expire the read deadline when ctx ends so ReadMessage returns.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		if c.readTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		if typ == websocket.TextMessage || typ == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// Close sends a close frame and releases the connection.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}
