package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{"default timeout", 0, 5 * time.Second},
		{"custom timeout", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)
			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, checker.checkTimeout)
			}
			if len(checker.ListChecks()) != 0 {
				t.Errorf("expected 0 checks, got %v", checker.ListChecks())
			}
		})
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name     string
		checks   map[string]CheckFunc
		status   string
		statuses map[string]string
	}{
		{
			name:   "no checks",
			checks: nil,
			status: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"rules": func(ctx context.Context) error { return nil },
			},
			status:   StatusReady,
			statuses: map[string]string{"rules": StatusOK},
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"rules":  func(ctx context.Context) error { return errors.New("no rules loaded") },
				"config": func(ctx context.Context) error { return nil },
			},
			status:   StatusDegraded,
			statuses: map[string]string{"rules": StatusUnhealthy, "config": StatusOK},
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				"slow": func(ctx context.Context) error {
					<-ctx.Done()
					time.Sleep(10 * time.Millisecond)
					return nil
				},
			},
			status:   StatusDegraded,
			statuses: map[string]string{"slow": StatusUnhealthy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(50 * time.Millisecond)
			for name, check := range tt.checks {
				checker.RegisterCheck(name, check)
			}

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.status {
				t.Errorf("Status = %q, want %q", status.Status, tt.status)
			}
			for name, want := range tt.statuses {
				if got := status.Checks[name].Status; got != want {
					t.Errorf("Checks[%q] = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestCheckReadiness_TimeoutMessage(t *testing.T) {
	checker := New(10 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})

	result := checker.CheckReadiness(context.Background()).Checks["slow"]
	if result.Message != ErrCheckTimeout.Error() {
		t.Errorf("Message = %q, want %q", result.Message, ErrCheckTimeout.Error())
	}
}

func TestHandlers(t *testing.T) {
	checker := New(time.Second)
	failing := true
	checker.RegisterCheck("rules", func(ctx context.Context) error {
		if failing {
			return errors.New("no rules loaded")
		}
		return nil
	})

	mux := http.NewServeMux()
	Register(mux, checker, "1.2.3", "abc123", "2026-10-19")

	get := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	if rec := get(http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("/health = %d", rec.Code)
	}

	rec := get(http.MethodGet, "/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/ready = %d, want 503", rec.Code)
	}
	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Checks["rules"].Message != "no rules loaded" {
		t.Errorf("status = %+v", status)
	}

	failing = false
	if rec := get(http.MethodGet, "/ready"); rec.Code != http.StatusOK {
		t.Errorf("/ready = %d, want 200", rec.Code)
	}

	rec = get(http.MethodGet, "/version")
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("version = %+v", info)
	}

	if rec := get(http.MethodPost, "/health"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health = %d, want 405", rec.Code)
	}
	if rec := get(http.MethodHead, "/health"); rec.Body.Len() != 0 {
		t.Error("HEAD should not write a body")
	}
}

func TestListChecks(t *testing.T) {
	checker := New(0)
	checker.RegisterCheck("rules", nil)
	checker.RegisterCheck("config", nil)
	checker.RegisterCheck("rules", nil)

	if got := checker.ListChecks(); !slices.Equal(got, []string{"config", "rules"}) {
		t.Errorf("ListChecks() = %v", got)
	}
}
