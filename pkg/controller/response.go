package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success sends data with HTTP 200 OK.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// NoContent sends HTTP 204 No Content.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error attaches err to the context for the logging middleware, maps it with
// MapError and aborts the chain.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := MapError(c.Request.Context(), err)
	c.AbortWithStatusJSON(status, body)
}
