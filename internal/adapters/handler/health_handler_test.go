package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/adapters/handler"
)

func TestHealthHandler(t *testing.T) {
	// Nil dependencies stand in for unreachable Postgres and Redis.
	h := handler.NewHealthHandler(nil, nil)

	t.Run("liveness_ignores_dependencies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeEnvelope(t, rec)
		if body["status"] != "UP" {
			t.Errorf("expected UP, got %v", body["status"])
		}
		if body["service"] != "alarm-service" {
			t.Errorf("expected service alarm-service, got %v", body["service"])
		}
	})

	t.Run("readiness_fails_without_dependencies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		body := decodeEnvelope(t, rec)
		if body["status"] != "DOWN" {
			t.Errorf("expected DOWN, got %v", body["status"])
		}
		checks, ok := body["checks"].(map[string]any)
		if !ok {
			t.Fatalf("expected checks map, got %v", body["checks"])
		}
		for _, name := range []string{"postgres", "redis"} {
			check, ok := checks[name].(map[string]any)
			if !ok || check["status"] != "DOWN" {
				t.Errorf("expected %s check DOWN, got %v", name, checks[name])
			}
		}
	})

	t.Run("non_get_is_rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodPost, "/health/ready", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})
}
