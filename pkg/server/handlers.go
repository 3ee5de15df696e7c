package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/controller"
	"github.com/nimburion/lazycounter/pkg/health"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
)

// ValueResponse is the body of GET /counter.
type ValueResponse struct {
	Value int64 `json:"value"`
}

// SetRequest is the body of POST /counter. The store decides what is
// written; Value is passed through unchanged.
type SetRequest struct {
	Value *int64 `json:"value"`
}

// Validate implements controller.Validator.
func (r *SetRequest) Validate() error {
	if r.Value == nil {
		return errors.New("value is required")
	}
	return nil
}

type handlers struct {
	counter adapter.Counter
	logger  logger.Logger
}

func (h *handlers) get(c *gin.Context) {
	value, err := h.counter.Get(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	controller.Success(c, ValueResponse{Value: value})
}

func (h *handlers) init(c *gin.Context) {
	if err := h.counter.Init(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	controller.NoContent(c)
}

func (h *handlers) set(c *gin.Context) {
	var req SetRequest
	if err := controller.BindJSON(c, &req); err != nil {
		controller.Error(c, err)
		return
	}
	if err := h.counter.Set(c.Request.Context(), *req.Value); err != nil {
		h.fail(c, err)
		return
	}
	controller.NoContent(c)
}

func (h *handlers) fail(c *gin.Context, err error) {
	status, _ := controller.MapError(c.Request.Context(), err)
	if status >= http.StatusInternalServerError {
		h.logger.WithContext(c.Request.Context()).Warn("counter operation failed",
			"path", c.FullPath(),
			"error", err,
		)
	}
	controller.Error(c, err)
}

func healthHandler(registry *health.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := registry.Check(c.Request.Context())
		status := http.StatusOK
		if result.Status == health.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, result)
	}
}
