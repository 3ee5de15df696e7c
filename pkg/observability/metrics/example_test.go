package metrics_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/observability/metrics"
)

// ExampleNewRegistry demonstrates creating a metrics registry and exposing metrics.
func ExampleNewRegistry() {
	registry := metrics.NewRegistry()

	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())

	fmt.Println("Metrics registry created and handler registered")
	// Output: Metrics registry created and handler registered
}

// ExampleRegistry_Adapter wires the adapter observer into a counter.
func ExampleRegistry_Adapter() {
	registry := metrics.NewRegistry()

	drv := adapter.Funcs[string, struct{}]{
		ConnectFn: func(context.Context, struct{}) (string, error) { return "conn", nil },
	}
	counter := adapter.New[string, struct{}](drv, struct{}{}, adapter.WithObserver(registry.Adapter()))
	fmt.Println(counter.Dispose(context.Background()))
	// Output: <nil>
}
