package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nimburion/lazycounter/pkg/adapter"
)

// Operation results used as the "result" label.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultDisposed = "disposed"
)

// AdapterMetrics implements adapter.Observer on top of Prometheus collectors.
type AdapterMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	connectsTotal     *prometheus.CounterVec
	status            *prometheus.GaugeVec
}

var _ adapter.Observer = (*AdapterMetrics)(nil)

func newAdapterMetrics() *AdapterMetrics {
	return &AdapterMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "counter_adapter_operations_total",
				Help: "Total number of counter adapter operations",
			},
			[]string{"store", "operation", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "counter_adapter_operation_duration_seconds",
				Help:    "Counter adapter operation duration in seconds, including connect on first use",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"store", "operation"},
		),
		connectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "counter_adapter_connects_total",
				Help: "Total number of store connections opened by counter adapters",
			},
			[]string{"store"},
		),
		status: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "counter_adapter_status",
				Help: "Last reported adapter status (0 not connected, 1 connected, 2 disposed)",
			},
			[]string{"store"},
		),
	}
}

func (m *AdapterMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.operationsTotal, m.operationDuration, m.connectsTotal, m.status}
}

// ObserveOperation records one Init, Get, Set or Dispose call.
func (m *AdapterMetrics) ObserveOperation(store, operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(store, operation, resultLabel(err)).Inc()
	m.operationDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
}

// ObserveConnect counts an opened connection.
func (m *AdapterMetrics) ObserveConnect(store string) {
	m.connectsTotal.WithLabelValues(store).Inc()
}

// ObserveStatus records the current lifecycle state.
func (m *AdapterMetrics) ObserveStatus(store string, status adapter.Status) {
	m.status.WithLabelValues(store).Set(float64(status))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, adapter.ErrDisposed):
		return ResultDisposed
	default:
		return ResultError
	}
}
