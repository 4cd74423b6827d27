package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandler_Healthy(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("postgres", NewCheckerFunc("postgres", func() error {
		return nil
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var response Response
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", response.Status)
	}
	if response.Version != "v1.0.0" {
		t.Errorf("expected version v1.0.0, got %s", response.Version)
	}
	if len(response.Checks) != 1 {
		t.Errorf("expected 1 check, got %d", len(response.Checks))
	}
}

func TestHandler_UnhealthyDependency(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("kafka", NewCheckerFunc("kafka", func() error {
		return errors.New("broker unreachable")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}

	var response Response
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != StatusUnhealthy {
		t.Errorf("expected status unhealthy, got %s", response.Status)
	}
	if response.Checks["kafka"].Message != "broker unreachable" {
		t.Errorf("unexpected check message: %s", response.Checks["kafka"].Message)
	}
}

func TestLivenessHandler(t *testing.T) {
	w := httptest.NewRecorder()
	LivenessHandler(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("expected body 'ok', got %s", w.Body.String())
	}
}

func TestReadinessHandler(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("postgres", NewCheckerFunc("postgres", func() error {
		return nil
	}))

	w := httptest.NewRecorder()
	handler.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "ready" {
		t.Errorf("expected body 'ready', got %s", w.Body.String())
	}
}

func TestReadinessHandler_NotReady(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("postgres", NewCheckerFunc("postgres", func() error {
		return errors.New("connection refused")
	}))

	w := httptest.NewRecorder()
	handler.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
	if w.Body.String() != "not ready" {
		t.Errorf("expected body 'not ready', got %s", w.Body.String())
	}
}

func TestCheckerFunc_Error(t *testing.T) {
	checker := NewCheckerFunc("redis", func() error {
		return errors.New("dial timeout")
	})

	check := checker.Check()
	if check.Status != StatusUnhealthy {
		t.Errorf("expected status unhealthy, got %s", check.Status)
	}
	if check.Message != "dial timeout" {
		t.Errorf("expected message 'dial timeout', got %s", check.Message)
	}
}
