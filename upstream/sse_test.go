package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/kbukum/eventrelay/errors"
)

func TestSSEDialer_ReceivesAndResumes(t *testing.T) {
	lastIDs := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastIDs <- r.Header.Get("Last-Event-ID")
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		_, _ = fmt.Fprint(w, ": hello\n\nid: 1\ndata: first\n\nevent: update\nid: 2\ndata: line a\ndata: line b\n\n")
	}))
	defer server.Close()

	dialer, err := NewDialer(&Config{URL: server.URL})
	if err != nil {
		t.Fatalf("NewDialer: %v", err)
	}
	sseDialer, ok := dialer.(*SSEDialer)
	if !ok {
		t.Fatalf("expected SSEDialer, got %T", dialer)
	}

	ctx := context.Background()
	conn, err := dialer.Dial(ctx)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if id := <-lastIDs; id != "" {
		t.Errorf("first connect sent Last-Event-ID %q", id)
	}

	first, err := conn.Receive(ctx)
	if err != nil || string(first) != "first" {
		t.Fatalf("first = %q, %v", first, err)
	}
	second, err := conn.Receive(ctx)
	if err != nil || string(second) != "line a\nline b" {
		t.Fatalf("second = %q, %v", second, err)
	}
	if _, err := conn.Receive(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
	_ = conn.Close()

	if sseDialer.LastEventID() != "2" {
		t.Errorf("LastEventID = %q, want 2", sseDialer.LastEventID())
	}

	conn, err = dialer.Dial(ctx)
	if err != nil {
		t.Fatalf("redial: %v", err)
	}
	defer conn.Close()
	if id := <-lastIDs; id != "2" {
		t.Errorf("reconnect sent Last-Event-ID %q, want 2", id)
	}
}

func TestSSEDialer_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}},
		{"content type", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewSSEDialer(&Config{URL: server.URL}, nil).Dial(context.Background())
			if !apperrors.IsCode(err, apperrors.ErrCodeUpstreamConnect) {
				t.Errorf("expected upstream connect error, got %v", err)
			}
		})
	}
}

func TestSSEDialer_ReadTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	conn, err := NewSSEDialer(&Config{URL: server.URL, ReadTimeout: 30 * time.Millisecond}, nil).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Receive(context.Background()); !errors.Is(err, errReadTimeout) {
		t.Errorf("expected read timeout, got %v", err)
	}
}

func TestSSEDialer_ReceiveCanceled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	conn, err := NewSSEDialer(&Config{URL: server.URL}, nil).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := conn.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline, got %v", err)
	}
}
