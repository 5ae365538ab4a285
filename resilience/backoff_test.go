package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestReconnectPolicy_Delay_Exponential(t *testing.T) {
	p := NewReconnectPolicy(ReconnectConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
	})

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{50, time.Second},
		{5000, time.Second},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("failures=%d", tc.failures), func(t *testing.T) {
			if got := p.Delay(tc.failures); got != tc.want {
				t.Errorf("Delay(%d) = %v, want %v", tc.failures, got, tc.want)
			}
		})
	}
}

func TestReconnectPolicy_Delay_NonDecreasing(t *testing.T) {
	configs := []ReconnectConfig{
		DefaultReconnectConfig(),
		{InitialDelay: time.Millisecond, MaxDelay: time.Hour, Multiplier: 3},
		{InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 1},
		{InitialDelay: 5 * time.Second, MaxDelay: time.Second, Multiplier: 0.5},
	}
	for i, cfg := range configs {
		p := NewReconnectPolicy(cfg)
		prev := time.Duration(0)
		for failures := 1; failures <= 200; failures++ {
			d := p.Delay(failures)
			if d < prev {
				t.Fatalf("config %d: delay decreased at failures=%d: %v < %v", i, failures, d, prev)
			}
			if d <= 0 {
				t.Fatalf("config %d: non-positive delay at failures=%d", i, failures)
			}
			if d > p.Config().MaxDelay {
				t.Fatalf("config %d: delay %v exceeds cap %v", i, d, p.Config().MaxDelay)
			}
			prev = d
		}
	}
}

func TestReconnectPolicy_Defaults(t *testing.T) {
	p := NewReconnectPolicy(ReconnectConfig{})
	cfg := p.Config()
	if cfg.InitialDelay != DefaultInitialDelay {
		t.Errorf("expected initial %v, got %v", DefaultInitialDelay, cfg.InitialDelay)
	}
	if cfg.MaxDelay != DefaultMaxDelay {
		t.Errorf("expected max %v, got %v", DefaultMaxDelay, cfg.MaxDelay)
	}
	if cfg.Multiplier != DefaultMultiplier {
		t.Errorf("expected multiplier %v, got %v", DefaultMultiplier, cfg.Multiplier)
	}
	if cfg.MaxAttempts != 0 {
		t.Errorf("expected unlimited attempts, got %d", cfg.MaxAttempts)
	}
}

func TestReconnectPolicy_Next_MaxAttempts(t *testing.T) {
	p := NewReconnectPolicy(ReconnectConfig{
		InitialDelay: time.Millisecond,
		MaxAttempts:  3,
	})
	for failures := 1; failures < 3; failures++ {
		if _, ok := p.Next(failures); !ok {
			t.Fatalf("expected retry after %d failures", failures)
		}
	}
	if _, ok := p.Next(3); ok {
		t.Error("expected policy to give up after 3 failures")
	}
}

func TestReconnectPolicy_Next_Unlimited(t *testing.T) {
	p := NewReconnectPolicy(DefaultReconnectConfig())
	if _, ok := p.Next(1_000_000); !ok {
		t.Error("expected unlimited policy to keep retrying")
	}
}

func TestReconnectConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ReconnectConfig
		wantErr bool
	}{
		{"defaults", DefaultReconnectConfig(), false},
		{"multiplier below one", ReconnectConfig{InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 0.5}, true},
		{"max below initial", ReconnectConfig{InitialDelay: time.Minute, MaxDelay: time.Second, Multiplier: 2}, true},
		{"negative attempts", ReconnectConfig{InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 2, MaxAttempts: -1}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestWait(t *testing.T) {
	start := time.Now()
	if err := Wait(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("Wait returned early")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
