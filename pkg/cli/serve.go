package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/config"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
	"github.com/nimburion/lazycounter/pkg/observability/metrics"
	"github.com/nimburion/lazycounter/pkg/observability/tracing"
	"github.com/nimburion/lazycounter/pkg/resilience"
	"github.com/nimburion/lazycounter/pkg/server"
	"github.com/nimburion/lazycounter/pkg/version"
)

// RunServer wires tracing, metrics, the counter and the HTTP server, and
// serves until ctx is cancelled or SIGINT/SIGTERM arrives. The counter is
// disposed on the way out.
func RunServer(ctx context.Context, cfg *config.Config, log logger.Logger, newCounter CounterFactory) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	info := version.Current(cfg.Service.Name)
	tracerProvider, err := tracing.NewTracerProvider(ctx, tracing.TracerConfig{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: info.Version,
		Environment:    cfg.Service.Environment,
		Endpoint:       cfg.Observability.TracingEndpoint,
		SampleRate:     cfg.Observability.TracingSampleRate,
		Enabled:        cfg.Observability.TracingEnabled,
	})
	if err != nil {
		return fmt.Errorf("create tracer provider: %w", err)
	}
	defer func() {
		if shutdownErr := tracerProvider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			log.Error("failed to shutdown tracer provider", "error", shutdownErr)
		}
	}()

	var registry *metrics.Registry
	var counterOpts []adapter.Option
	if cfg.Observability.MetricsEnabled {
		registry = metrics.NewRegistry()
		counterOpts = append(counterOpts, adapter.WithObserver(registry.Adapter()))
	}

	var counter adapter.Counter
	counter, err = newCounter(cfg.Store, log, counterOpts...)
	if err != nil {
		return fmt.Errorf("create counter: %w", err)
	}
	defer func() {
		disposeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disposeTimeout)
		defer cancel()
		if disposeErr := counter.Dispose(disposeCtx); disposeErr != nil {
			log.Error("failed to dispose counter", "error", disposeErr)
			if err == nil {
				err = fmt.Errorf("dispose counter: %w", disposeErr)
			}
		}
	}()
	if cfg.Store.Breaker.Enabled {
		counter = resilience.Guard(counter, resilience.NewBreaker(cfg.Store.Breaker.MaxFailures, cfg.Store.Breaker.OpenTimeout))
	}

	handler := server.NewRouter(server.RouterOptions{
		Counter:        counter,
		Logger:         log,
		Metrics:        registry,
		MetricsPath:    cfg.Observability.MetricsPath,
		StoreName:      cfg.Store.Type,
		ServiceName:    cfg.Service.Name,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxRequestSize: cfg.HTTP.MaxRequestSize,
	})

	srv := server.NewServer(server.Config{
		Port:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, handler, log)

	log.Info("counter service starting",
		"store", cfg.Store.Type,
		"version", info.Version,
		"port", cfg.HTTP.Port,
	)
	return srv.Start(ctx)
}
