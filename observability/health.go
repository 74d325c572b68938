package observability

import (
	"context"

	"github.com/kbukum/execkit/component"
)

// ServiceHealth describes the overall health of a service, rolled up from
// its component health results.
type ServiceHealth struct {
	Service    string                 `json:"service"`
	Status     component.HealthStatus `json:"status"`
	Version    string                 `json:"version,omitempty"`
	Components []component.Health     `json:"components,omitempty"`
}

// NewServiceHealth creates a ServiceHealth with status healthy.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{
		Service: service,
		Status:  component.StatusHealthy,
		Version: version,
	}
}

// AddComponent adds a component health result and degrades the overall
// status if needed. Unhealthy always wins over degraded.
func (sh *ServiceHealth) AddComponent(ch component.Health) {
	sh.Components = append(sh.Components, ch)

	switch ch.Status {
	case component.StatusUnhealthy:
		sh.Status = component.StatusUnhealthy
	case component.StatusDegraded:
		if sh.Status != component.StatusUnhealthy {
			sh.Status = component.StatusDegraded
		}
	}
}

// CollectHealth polls every registered component and returns the rolled-up
// service health.
func CollectHealth(ctx context.Context, service, version string, reg *component.Registry) *ServiceHealth {
	sh := NewServiceHealth(service, version)
	for _, h := range reg.HealthAll(ctx) {
		sh.AddComponent(h)
	}
	return sh
}
