package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func resetHealthChecker() {
	healthChecker = &HealthChecker{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
	}
}

func TestRegisterComponent(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("orchestrator", true, "fleet up")

	if len(healthChecker.components) != 1 {
		t.Fatalf("expected 1 component, got %d", len(healthChecker.components))
	}

	comp := healthChecker.components["orchestrator"]
	if !comp.Healthy {
		t.Error("component should be healthy")
	}
	if comp.Message != "fleet up" {
		t.Errorf("expected message 'fleet up', got %q", comp.Message)
	}
}

func TestGetHealth_AllHealthy(t *testing.T) {
	resetHealthChecker()
	healthChecker.version = "1.0.0"

	RegisterComponent("api", true, "")
	RegisterComponent("model", true, "")

	health := GetHealth()

	if health.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", health.Status)
	}
	if len(health.Components) != 2 {
		t.Errorf("expected 2 components, got %d", len(health.Components))
	}
	if health.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", health.Version)
	}
}

func TestGetHealth_OneUnhealthy(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("api", true, "")
	RegisterComponent("orchestrator", false, "docker daemon unreachable")

	health := GetHealth()

	if health.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got %q", health.Status)
	}
	if health.Components["orchestrator"] != "unhealthy: docker daemon unreachable" {
		t.Errorf("unexpected orchestrator status: %s", health.Components["orchestrator"])
	}
}

func TestHealthHandler(t *testing.T) {
	resetHealthChecker()
	healthChecker.version = "test"

	RegisterComponent("model", true, "")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	HealthHandler()(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var health HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("expected healthy status, got %s", health.Status)
	}
	if health.Version != "test" {
		t.Errorf("expected version 'test', got %s", health.Version)
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("model", false, "not yet fitted")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	HealthHandler()(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	var health HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Status != "unhealthy" {
		t.Errorf("expected unhealthy status, got %s", health.Status)
	}
}

func TestUpdateComponent(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("model", true, "ok")
	UpdateComponent("model", false, "fit failed")

	comp := healthChecker.components["model"]
	if comp.Healthy {
		t.Error("component should be unhealthy after update")
	}
	if comp.Message != "fit failed" {
		t.Errorf("expected message 'fit failed', got %q", comp.Message)
	}
}
