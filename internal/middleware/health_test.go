package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnalysisAPIHealthChecker(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()

	c := &AnalysisAPIHealthChecker{BaseURL: up.URL}
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("healthy backend reported unhealthy: %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	c = &AnalysisAPIHealthChecker{BaseURL: down.URL}
	if err := c.Check(context.Background()); err == nil {
		t.Error("5xx backend should report unhealthy")
	}

	c = &AnalysisAPIHealthChecker{BaseURL: "http://127.0.0.1:1"}
	if err := c.Check(context.Background()); err == nil {
		t.Error("unreachable backend should report unhealthy")
	}
}

func TestHealthHandlerAggregates(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	h := HealthHandler(map[string]HealthChecker{
		"analysis_api": &AnalysisAPIHealthChecker{BaseURL: backend.URL},
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != "healthy" {
		t.Errorf("aggregate status = %s", status.Status)
	}
	if status.Checks["analysis_api"].Status != "healthy" {
		t.Errorf("check status = %+v", status.Checks["analysis_api"])
	}
}
