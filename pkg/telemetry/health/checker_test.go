package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckLiveness(t *testing.T) {
	checker := New(0)
	checker.RegisterCheck("storage", func(ctx context.Context) error {
		return errors.New("down")
	})

	status := checker.CheckLiveness(context.Background())
	if status.Status != "ok" {
		t.Errorf("liveness = %s, want ok regardless of component health", status.Status)
	}
}

func TestCheckReadiness(t *testing.T) {
	checker := New(0)
	checker.RegisterCheck("storage", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("anchors", func(ctx context.Context) error { return nil })

	status := checker.CheckReadiness(context.Background())
	if status.Status != "ready" {
		t.Fatalf("status = %s, want ready", status.Status)
	}
	if len(status.Checks) != 2 {
		t.Errorf("checks = %d, want 2", len(status.Checks))
	}
	for name, result := range status.Checks {
		if result.Status != "ok" {
			t.Errorf("check %s = %s, want ok", name, result.Status)
		}
	}
}

func TestCheckReadiness_UnhealthyComponentDegrades(t *testing.T) {
	checker := New(0)
	checker.RegisterCheck("storage", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("anchors", func(ctx context.Context) error {
		return errors.New("anchor log unreachable")
	})

	status := checker.CheckReadiness(context.Background())
	if status.Status != "degraded" {
		t.Fatalf("status = %s, want degraded", status.Status)
	}
	if got := status.Checks["anchors"].Message; got != "anchor log unreachable" {
		t.Errorf("message = %s, want the check error", got)
	}
	if status.Checks["storage"].Status != "ok" {
		t.Error("healthy component reported unhealthy")
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	status := checker.CheckReadiness(context.Background())
	if status.Status != "degraded" {
		t.Fatalf("status = %s, want degraded", status.Status)
	}
	if got := status.Checks["slow"].Message; got != "health check timeout" {
		t.Errorf("message = %s, want the timeout marker", got)
	}
}

func TestReadinessHandler(t *testing.T) {
	checker := New(0)
	checker.RegisterCheck("storage", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var status Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decoding status failed: %v", err)
	}
	if status.Status != "ready" {
		t.Errorf("body status = %s, want ready", status.Status)
	}
}

func TestReadinessHandler_Degraded503(t *testing.T) {
	checker := New(0)
	checker.RegisterCheck("storage", func(ctx context.Context) error {
		return errors.New("down")
	})

	rec := httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestLivenessHandler_HeadHasNoBody(t *testing.T) {
	checker := New(0)

	rec := httptest.NewRecorder()
	checker.LivenessHandler()(rec, httptest.NewRequest(http.MethodHead, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD response has a %d byte body", rec.Body.Len())
	}
}

func TestVersionHandler(t *testing.T) {
	handler := VersionHandler("1.2.3", "abc123", "2026-03-01T00:00:00Z")

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decoding version info failed: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" {
		t.Errorf("got %+v, want version 1.2.3 commit abc123", info)
	}
	if info.GoVersion == "" {
		t.Error("go_version is empty")
	}
}
