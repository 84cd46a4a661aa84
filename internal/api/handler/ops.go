package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cargowatch/cargowatch/internal/api/models"
	"github.com/cargowatch/cargowatch/internal/api/response"
	"github.com/cargowatch/cargowatch/internal/provider/resilience"
)

// ReadyChecker verifies that a subsystem is reachable.
type ReadyChecker func(ctx context.Context) error

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	checks    map[string]ReadyChecker
}

// NewOpsHandler creates a new OpsHandler. The checks map names readiness
// probes for subsystems such as the database.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, checks map[string]ReadyChecker) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		checks:    checks,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Reports FAIL
// with a 503 when any subsystem probe errors.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	for _, check := range h.checks {
		if err := check(r.Context()); err != nil {
			status = models.HealthStatusFail
			break
		}
	}

	health := models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
	}

	code := http.StatusOK
	if status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
// Provider health is read from the circuit breaker registry.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())
	overall := models.HealthStatusOK

	subsystems := make([]models.SubsystemStatus, 0, len(h.checks))
	for name, check := range h.checks {
		subsystem := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := check(r.Context()); err != nil {
			detail := err.Error()
			subsystem.Status = models.HealthStatusFail
			subsystem.Detail = &detail
			overall = models.HealthStatusFail
		}
		subsystems = append(subsystems, subsystem)
	}

	providers := make([]models.ProviderStatus, 0, h.registry.Count())
	for _, upstream := range h.registry.AllHealth() {
		provider := models.ProviderStatus{
			Provider:     upstream.Name,
			Status:       providerStatus(upstream),
			CircuitState: upstream.CircuitState.String(),
		}
		if upstream.LastSuccessAt != nil {
			ts := models.Timestamp(*upstream.LastSuccessAt)
			provider.LastSuccessAt = &ts
		}
		if upstream.LastFailureAt != nil {
			ts := models.Timestamp(*upstream.LastFailureAt)
			provider.LastFailureAt = &ts
		}
		if upstream.LastError != "" {
			message := upstream.LastError
			provider.Message = &message
		}

		if provider.Status == models.HealthStatusFail {
			overall = models.HealthStatusFail
		} else if provider.Status == models.HealthStatusDegraded && overall == models.HealthStatusOK {
			overall = models.HealthStatusDegraded
		}
		providers = append(providers, provider)
	}

	status := models.SystemStatus{
		Status:     overall,
		Time:       now,
		Subsystems: subsystems,
		Providers:  providers,
	}
	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(h *resilience.UpstreamHealth) models.HealthStatus {
	switch {
	case h.IsUnhealthy():
		return models.HealthStatusFail
	case h.IsDegraded():
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}
