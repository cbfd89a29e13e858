// Package metrics provides Prometheus metrics for the vault components.
//
// All metrics are optional. If InitRegistry is never called, the
// constructors return no-op implementations and instrumented components
// pay nothing.
//
// Usage:
//
//	// Initialize global registry (typically in main)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	uploadMetrics := metrics.NewUploadMetrics()
//	registryMetrics := metrics.NewRegistryMetrics()
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// registry is the global Prometheus registry for all vault metrics.
	// Write-once via registryOnce, read-many afterwards.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry. Safe to call
// multiple times; subsequent calls are ignored.
//
// If never called, GetRegistry returns nil and the metrics constructors
// return no-op implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil when metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return registry != nil
}

// Handler returns an HTTP handler serving the global registry in the
// Prometheus exposition format. Returns nil when metrics are disabled.
func Handler() http.Handler {
	if !IsEnabled() {
		return nil
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
