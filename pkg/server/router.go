package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/controller"
	"github.com/nimburion/lazycounter/pkg/health"
	"github.com/nimburion/lazycounter/pkg/middleware/logging"
	middlewaremetrics "github.com/nimburion/lazycounter/pkg/middleware/metrics"
	"github.com/nimburion/lazycounter/pkg/middleware/recovery"
	"github.com/nimburion/lazycounter/pkg/middleware/requestid"
	"github.com/nimburion/lazycounter/pkg/middleware/requestsize"
	"github.com/nimburion/lazycounter/pkg/middleware/timeout"
	"github.com/nimburion/lazycounter/pkg/middleware/tracing"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
	"github.com/nimburion/lazycounter/pkg/observability/metrics"
	"github.com/nimburion/lazycounter/pkg/version"
)

// Route paths served by the counter API.
const (
	PathCounter     = "/counter"
	PathCounterInit = "/counter/init"
	PathHealth      = "/health"
	PathReady       = "/ready"
	PathVersion     = "/version"
	DefaultMetrics  = "/metrics"
)

// RouterOptions wires the counter API.
type RouterOptions struct {
	Counter adapter.Counter
	Logger  logger.Logger
	// Metrics enables request metrics and the metrics endpoint when set.
	Metrics     *metrics.Registry
	MetricsPath string
	// StoreName labels the readiness check.
	StoreName      string
	ServiceName    string
	RequestTimeout time.Duration
	MaxRequestSize int64
	HealthTimeout  time.Duration
}

// NewRouter builds the gin engine serving the counter API.
//
//	GET  /counter       current value
//	POST /counter/init  create and seed the counter
//	POST /counter       write {"value": n}
//	GET  /health        liveness
//	GET  /ready         readiness, backed by Adapter.HealthCheck
//	GET  /version       build metadata
//	GET  /metrics       Prometheus metrics, when enabled
func NewRouter(opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = DefaultMetrics
	}
	if opts.StoreName == "" {
		opts.StoreName = "store"
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	probePaths := []string{PathHealth, PathReady, opts.MetricsPath}
	engine.Use(
		requestid.RequestID(),
		recovery.Recovery(opts.Logger),
		tracing.Tracing(tracing.Config{ExcludedPathPrefixes: probePaths}),
		logging.WithConfig(opts.Logger, logging.Config{Enabled: true, ExcludedPathPrefixes: probePaths}),
	)
	if opts.Metrics != nil {
		engine.Use(middlewaremetrics.Metrics(opts.Metrics.HTTP()))
	}

	liveness := health.NewRegistry()
	liveness.Register(health.NewPingChecker("alive"))
	readiness := health.NewRegistry()
	readiness.Register(health.NewAdapterChecker(opts.StoreName, opts.Counter, opts.HealthTimeout))

	h := &handlers{counter: opts.Counter, logger: opts.Logger}

	api := engine.Group("", timeout.Middleware(opts.RequestTimeout))
	api.GET(PathCounter, h.get)
	api.POST(PathCounterInit, h.init)
	api.POST(PathCounter, requestsize.Middleware(opts.MaxRequestSize), h.set)

	engine.GET(PathHealth, healthHandler(liveness))
	engine.GET(PathReady, healthHandler(readiness))
	engine.GET(PathVersion, func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Current(opts.ServiceName))
	})
	if opts.Metrics != nil {
		engine.GET(opts.MetricsPath, gin.WrapH(opts.Metrics.Handler()))
	}

	engine.NoRoute(func(c *gin.Context) {
		controller.Error(c, controller.NewNotFoundError("route not found"))
	})
	engine.NoMethod(func(c *gin.Context) {
		controller.Error(c, controller.NewMethodNotAllowedError("method not allowed"))
	})

	return engine
}
