package upstream

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/eventrelay/errors"
)

// SSEDialer connects to an http:// or https:// text/event-stream feed.
// After a reconnect it resumes with the last seen event id in the
// Last-Event-ID header.
type SSEDialer struct {
	url            string
	address        string
	header         http.Header
	client         *http.Client
	readTimeout    time.Duration
	maxMessageSize int

	mu          sync.Mutex
	lastEventID string
}

// NewSSEDialer creates a dialer from cfg. tlsCfg may be nil.
func NewSSEDialer(cfg *Config, tlsCfg *tls.Config) *SSEDialer {
	c := *cfg
	c.ApplyDefaults()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: c.ConnectTimeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = c.ConnectTimeout
	transport.ResponseHeaderTimeout = c.ConnectTimeout
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	return &SSEDialer{
		url:     c.URL,
		address: redact(c.URL),
		header:  headerFrom(c.Headers),
		// No client timeout: the stream lives as long as the connection.
		client:         &http.Client{Transport: transport},
		readTimeout:    c.ReadTimeout,
		maxMessageSize: int(c.MaxMessageSize),
	}
}

// Address implements Dialer.
func (d *SSEDialer) Address() string { return d.address }

// LastEventID returns the id that will be sent on the next connection.
func (d *SSEDialer) LastEventID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastEventID
}

func (d *SSEDialer) setLastEventID(id string) {
	d.mu.Lock()
	d.lastEventID = id
	d.mu.Unlock()
}

// Dial implements Dialer. The request lives until ctx ends or the
// connection is closed.
func (d *SSEDialer) Dial(ctx context.Context) (Conn, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, d.url, http.NoBody)
	if err != nil {
		cancel()
		return nil, errors.UpstreamConnect(d.address, err)
	}
	req.Header = d.header.Clone()
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if id := d.LastEventID(); id != "" {
		req.Header.Set("Last-Event-ID", id)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		cancel()
		return nil, errors.UpstreamConnect(d.address, err)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		cancel()
		return nil, errors.UpstreamConnect(d.address, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		_ = resp.Body.Close()
		cancel()
		return nil, errors.UpstreamConnect(d.address, fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type")))
	}

	conn := &sseConn{dialer: d, body: resp.Body, cancel: cancel}
	var src io.Reader = resp.Body
	if d.readTimeout > 0 {
		// Any bytes, keep-alive comments included, count as activity.
		conn.idle = time.AfterFunc(d.readTimeout, func() {
			conn.timedOut.Store(true)
			_ = resp.Body.Close()
		})
		src = &activityReader{r: resp.Body, timer: conn.idle, d: d.readTimeout}
	}
	conn.reader = newEventReader(src, d.maxMessageSize)
	conn.reader.lastID = d.LastEventID()
	return conn, nil
}

var errReadTimeout = fmt.Errorf("upstream: no data within read timeout")

// activityReader pushes the idle timer back on every successful read.
type activityReader struct {
	r     io.Reader
	timer *time.Timer
	d     time.Duration
}

func (a *activityReader) Read(p []byte) (int, error) {
	n, err := a.r.Read(p)
	if n > 0 {
		a.timer.Reset(a.d)
	}
	return n, err
}

type sseConn struct {
	dialer    *SSEDialer
	body      io.ReadCloser
	reader    *eventReader
	cancel    context.CancelFunc
	idle      *time.Timer
	timedOut  atomic.Bool
	closeOnce sync.Once
}

// Receive implements Conn.
func (c *sseConn) Receive(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { _ = c.body.Close() })
	defer stop()

	ev, err := c.reader.Next()
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case c.timedOut.Load():
			return nil, errReadTimeout
		}
		return nil, err
	}
	if ev.ID != "" {
		c.dialer.setLastEventID(ev.ID)
	}
	return []byte(ev.Data), nil
}

// Close implements Conn.
func (c *sseConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.idle != nil {
			c.idle.Stop()
		}
		c.cancel()
		err = c.body.Close()
	})
	return err
}
