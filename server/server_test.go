package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/eventrelay/component"
	"github.com/kbukum/eventrelay/logger"
	"github.com/kbukum/eventrelay/sse"
)

func newTestServer(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()
	cfg.Host = "127.0.0.1"
	cfg.ApplyDefaults()
	cfg.Port = 0

	s := New(cfg, logger.NewDefault("server-test"))
	gin.SetMode(gin.TestMode)
	s.ApplyMiddleware()
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s, "http://" + s.Addr()
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8080 || cfg.EventsPath != "/events" || cfg.IdleTimeout != 60 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.WriteTimeout != 0 {
		t.Errorf("write timeout should stay off, got %d", cfg.WriteTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"port", Config{Port: 70000}},
		{"read timeout", Config{ReadTimeout: -1}},
		{"events path", Config{EventsPath: "events"}},
		{"connect rate", Config{ConnectRate: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestServer_Endpoints(t *testing.T) {
	s, base := newTestServer(t, Config{})
	var unhealthy atomic.Bool
	s.RegisterDefaultEndpoints(Endpoints{
		ServiceName: "relay",
		Version:     "test",
		Health: func(context.Context) []component.Health {
			status := component.StatusHealthy
			if unhealthy.Load() {
				status = component.StatusUnhealthy
			}
			return []component.Health{{Name: "upstream", Status: status}}
		},
		Ready: func(context.Context) error {
			if unhealthy.Load() {
				return errors.New("upstream stopped")
			}
			return nil
		},
	})

	for _, path := range []string{"/health", "/ready", "/alive", "/info"} {
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d", path, resp.StatusCode)
		}
		if resp.Header.Get("X-Request-Id") == "" {
			t.Errorf("GET %s missing request id", path)
		}
	}

	unhealthy.Store(true)
	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503", path, resp.StatusCode)
		}
	}
}

func TestServer_EventsStream(t *testing.T) {
	sseComp := sse.NewComponent(nil, "/events", nil)
	s, base := newTestServer(t, Config{})
	s.RegisterEvents(sseComp.Handler().Gin())

	resp, err := http.Get(base + "/events")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q", ct)
	}

	lines := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	next := func() string {
		select {
		case l, ok := <-lines:
			if !ok {
				t.Fatal("stream ended")
			}
			return l
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for stream")
		}
		return ""
	}

	// connected frame: event, retry?, data, blank
	var connected sse.ConnectedEvent
	for {
		l := next()
		if strings.HasPrefix(l, "data: ") {
			if err := json.Unmarshal([]byte(strings.TrimPrefix(l, "data: ")), &connected); err != nil {
				t.Fatalf("connected payload: %v", err)
			}
			break
		}
	}
	if connected.SubscriberID == "" {
		t.Fatal("expected subscriber id in connected event")
	}

	deadline := time.Now().Add(2 * time.Second)
	for sseComp.Registry().Count() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	res := sseComp.Engine().Publish(context.Background(), []byte("hello"))
	if res.Delivered != 1 {
		t.Fatalf("Delivered = %d", res.Delivered)
	}
	for {
		if l := next(); l == "data: hello" {
			break
		}
	}

	// Closing subscribers first lets Stop return promptly.
	if err := sseComp.Stop(context.Background()); err != nil {
		t.Fatalf("sse stop: %v", err)
	}
	for range lines {
	}
}

func TestServer_ConnectRate(t *testing.T) {
	s, base := newTestServer(t, Config{ConnectRate: 1})
	s.RegisterEvents(func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 2)
	for range 2 {
		resp, err := http.Get(base + "/events")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	cfg := Config{Host: "127.0.0.1"}
	cfg.ApplyDefaults()
	cfg.Port = 0
	c := NewComponent(New(cfg, nil))

	if c.Name() != "http-server" {
		t.Errorf("Name = %q", c.Name())
	}
	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("before start: %v", h.Status)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := c.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("after start: %v", h.Status)
	}
	if d := c.Describe(); d.Type != "server" || !strings.Contains(d.Details, "/events") {
		t.Errorf("Describe = %+v", d)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestFormatHandlerName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"github.com/kbukum/eventrelay/sse.(*Handler).Gin.func1", "sse.Handler.Gin"},
		{"github.com/kbukum/eventrelay/server/endpoint.Health.func1", "endpoint.Health"},
		{"main.(*api).list-fm", "main.api.list"},
	}
	for _, tt := range tests {
		if got := formatHandlerName(tt.in); got != tt.want {
			t.Errorf("formatHandlerName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestComponent_Routes(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	s := New(cfg, nil)
	s.RegisterDefaultEndpoints(Endpoints{ServiceName: "relay"})
	s.RegisterEvents(func(c *gin.Context) {})

	routes := NewComponent(s).Routes()
	if len(routes) != 5 {
		t.Fatalf("got %d routes", len(routes))
	}
	if routes[0].Path != "/events" {
		t.Errorf("events route should be listed first, got %s", routes[0].Path)
	}
}
