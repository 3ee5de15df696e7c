// Package metrics exposes Prometheus metrics for the counter service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry manages Prometheus metrics registration and exposure.
// It owns the HTTP and adapter collectors and includes Go runtime metrics.
type Registry struct {
	registry *prometheus.Registry
	http     *HTTPMetrics
	adapter  *AdapterMetrics
}

// NewRegistry creates a new metrics registry with default collectors.
// It automatically registers:
// - HTTP request metrics (duration, counter, in-flight)
// - counter adapter metrics (operations, connects, status)
// - Go runtime and process metrics
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	httpMetrics := newHTTPMetrics()
	adapterMetrics := newAdapterMetrics()
	reg.MustRegister(httpMetrics.collectors()...)
	reg.MustRegister(adapterMetrics.collectors()...)

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Registry{
		registry: reg,
		http:     httpMetrics,
		adapter:  adapterMetrics,
	}
}

// HTTP returns the HTTP request metrics of this registry.
func (r *Registry) HTTP() *HTTPMetrics {
	return r.http
}

// Adapter returns the adapter observer of this registry. Pass it to
// adapter.WithObserver.
func (r *Registry) Adapter() *AdapterMetrics {
	return r.adapter
}

// Register registers a custom Prometheus collector.
func (r *Registry) Register(collector prometheus.Collector) error {
	return r.registry.Register(collector)
}

// MustRegister registers custom collectors and panics on error.
func (r *Registry) MustRegister(collectors ...prometheus.Collector) {
	r.registry.MustRegister(collectors...)
}

// Unregister removes a collector from the registry.
func (r *Registry) Unregister(collector prometheus.Collector) bool {
	return r.registry.Unregister(collector)
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
//
// Example:
//
//	http.Handle("/metrics", registry.Handler())
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Gatherer returns the underlying prometheus.Gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
