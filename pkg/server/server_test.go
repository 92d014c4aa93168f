package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/telemetry/health"
	"regles-hq/calcul/pkg/telemetry/metrics"
)

func TestServer_Handler(t *testing.T) {
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "test"}, nil)
	collector.RecordReload(metrics.StatusSuccess)

	checker := health.New(time.Second)
	checker.RegisterCheck("rules", func(ctx context.Context) error { return errors.New("no rules loaded") })

	s := NewServer(&Config{Version: "1.0.0"}, collector.Handler(), checker, nil)
	handler := s.Handler()

	tests := []struct {
		path string
		code int
		body string
	}{
		{"/metrics", http.StatusOK, "test_engine_reloads_total"},
		{"/health", http.StatusOK, `"status":"ok"`},
		{"/ready", http.StatusServiceUnavailable, "no rules loaded"},
		{"/version", http.StatusOK, `"version":"1.0.0"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestServer_WithoutMetrics(t *testing.T) {
	s := NewServer(&Config{}, nil, nil, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics = %d, want 404", rec.Code)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	s := NewServer(&Config{Address: "127.0.0.1:0"}, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for s.Addr() == "" && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Addr() == "" {
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Errorf("GET /health = %d %q", resp.StatusCode, body)
	}

	if err := s.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_ListenError(t *testing.T) {
	s := NewServer(&Config{Address: "invalid-address"}, nil, nil, nil)
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected listen error")
	}
}
