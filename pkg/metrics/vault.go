package metrics

import (
	vaultregistry "github.com/clearwealth/filevault/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// registryMetrics is the Prometheus implementation of vaultregistry.Metrics.
type registryMetrics struct {
	operationsTotal *prometheus.CounterVec
}

// NewRegistryMetrics creates a Prometheus-backed vaultregistry.Metrics.
//
// Returns nil if metrics are not enabled, which makes the registry fall
// back to its built-in no-op implementation.
func NewRegistryMetrics() vaultregistry.Metrics {
	if !IsEnabled() {
		return nil
	}

	return &registryMetrics{
		operationsTotal: promauto.With(GetRegistry()).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filevault_registry_operations_total",
				Help: "Total number of registry operations by operation and status",
			},
			[]string{"operation", "status"},
		),
	}
}

func (m *registryMetrics) RecordOperation(op string, status string) {
	m.operationsTotal.WithLabelValues(op, status).Inc()
}
