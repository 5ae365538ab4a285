package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/eventrelay/logger"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "relay"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.ServiceName != "relay" {
			t.Errorf("expected logging service name 'relay', got %q", cfg.Logging.ServiceName)
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug logging in development, got %q", cfg.Logging.Level)
		}
	})

	t.Run("configured level wins over debug", func(t *testing.T) {
		cfg := ServiceConfig{Name: "relay", Logging: logger.Config{Level: "warn"}}
		cfg.ApplyDefaults()
		if cfg.Logging.Level != "warn" {
			t.Errorf("expected 'warn', got %q", cfg.Logging.Level)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "relay", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if !cfg.IsProduction() || cfg.Logging.Level != "info" {
			t.Errorf("unexpected production defaults %+v", cfg)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid production", ServiceConfig{Name: "relay", Environment: "production"}, false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "relay", Environment: "qa"}, true, "config.environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Upstream      struct {
		URL       string `mapstructure:"url"`
		Reconnect struct {
			MaxDelay time.Duration `mapstructure:"max_delay"`
		} `mapstructure:"reconnect"`
	} `mapstructure:"upstream"`
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	yamlContent := `
name: relay
environment: staging
upstream:
  url: wss://feed.example.com/stream
  reconnect:
    max_delay: 45s
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg testConfig
	if err := LoadConfig("relay", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "relay" {
		t.Errorf("expected name 'relay', got %q", cfg.Name)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Upstream.URL != "wss://feed.example.com/stream" {
		t.Errorf("unexpected upstream url %q", cfg.Upstream.URL)
	}
	if cfg.Upstream.Reconnect.MaxDelay != 45*time.Second {
		t.Errorf("expected 45s, got %v", cfg.Upstream.Reconnect.MaxDelay)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("upstream:\n  url: ws://from-file\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("UPSTREAM_URL", "ws://from-env")
	t.Setenv("UPSTREAM_RECONNECT_MAX_DELAY", "7s")

	var cfg testConfig
	if err := LoadConfig("relay", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Upstream.URL != "ws://from-env" {
		t.Errorf("expected env override, got %q", cfg.Upstream.URL)
	}
	if cfg.Upstream.Reconnect.MaxDelay != 7*time.Second {
		t.Errorf("expected 7s, got %v", cfg.Upstream.Reconnect.MaxDelay)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool   { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestResolveWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/relay/config.yml": true,
		"./.env":                 true,
	}}
	files := Resolve("relay", LoaderConfig{FileSystem: fs})
	if files.ConfigFile != "./cmd/relay/config.yml" {
		t.Errorf("expected config file at ./cmd/relay/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected env file ./.env, got %q", files.EnvFile)
	}
}

func TestResolveExplicitPaths(t *testing.T) {
	files := Resolve("relay", LoaderConfig{
		FileSystem: &mockFS{},
		ConfigFile: "/etc/relay.yml",
		EnvFile:    "/etc/relay.env",
	})
	if files.ConfigFile != "/etc/relay.yml" || files.EnvFile != "/etc/relay.env" {
		t.Errorf("expected explicit paths to win, got %+v", files)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	variants := envKeyVariants("UPSTREAM_RECONNECT_MAX_DELAY")
	want := map[string]bool{
		"upstream.reconnect.max_delay": false,
		"upstream.reconnect_max_delay": false,
		"upstream.reconnect.max.delay": false,
	}
	for _, v := range variants {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for k, found := range want {
		if !found {
			t.Errorf("expected variant %q in %v", k, variants)
		}
	}

	if got := envKeyVariants("HOME"); len(got) != 1 || got[0] != "home" {
		t.Errorf("expected single variant for HOME, got %v", got)
	}
}
