package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/eventrelay/component"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(t *testing.T, h gin.HandlerFunc) (int, map[string]any) {
	t.Helper()
	e := gin.New()
	e.GET("/", h)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return rr.Code, body
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []component.HealthStatus
		wantCode   int
		wantStatus string
	}{
		{"no components", nil, http.StatusOK, "healthy"},
		{"all healthy", []component.HealthStatus{component.StatusHealthy, component.StatusHealthy}, http.StatusOK, "healthy"},
		{"degraded", []component.HealthStatus{component.StatusHealthy, component.StatusDegraded}, http.StatusOK, "degraded"},
		{"unhealthy wins", []component.HealthStatus{component.StatusUnhealthy, component.StatusDegraded}, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := func(context.Context) []component.Health {
				out := make([]component.Health, 0, len(tt.statuses))
				for i, s := range tt.statuses {
					out = append(out, component.Health{Name: string(rune('a' + i)), Status: s})
				}
				return out
			}
			code, body := get(t, Health("relay", "1.0.0", checker))
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if body["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %s", body["status"], tt.wantStatus)
			}
			if body["version"] != "1.0.0" {
				t.Errorf("version = %v", body["version"])
			}
		})
	}
}

func TestReadiness(t *testing.T) {
	code, body := get(t, Readiness("relay", func(context.Context) error { return nil }))
	if code != http.StatusOK || body["status"] != "ready" {
		t.Errorf("ready: %d %v", code, body)
	}

	code, body = get(t, Readiness("relay", func(context.Context) error { return errors.New("upstream connecting") }))
	if code != http.StatusServiceUnavailable || body["status"] != "not_ready" {
		t.Errorf("not ready: %d %v", code, body)
	}
	if body["reason"] != "upstream connecting" {
		t.Errorf("reason = %v", body["reason"])
	}
}

func TestLiveness(t *testing.T) {
	code, body := get(t, Liveness("relay", time.Now().Add(-90*time.Second)))
	if code != http.StatusOK || body["status"] != "alive" {
		t.Errorf("liveness: %d %v", code, body)
	}
	if up, _ := body["uptime_seconds"].(float64); up < 90 {
		t.Errorf("uptime_seconds = %v", body["uptime_seconds"])
	}
}

func TestInfo(t *testing.T) {
	code, body := get(t, Info("relay", func() any { return map[string]int{"subscribers": 3} }))
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if body["service"] != "relay" || body["version"] == nil || body["uptime"] == nil {
		t.Errorf("unexpected body %v", body)
	}
	relay, ok := body["relay"].(map[string]any)
	if !ok || relay["subscribers"] != float64(3) {
		t.Errorf("relay stats = %v", body["relay"])
	}
}
