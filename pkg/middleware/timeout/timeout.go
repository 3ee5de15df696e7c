// Package timeout bounds how long a request may run.
package timeout

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware puts a deadline of d on the request context. Store calls made
// by handlers inherit it. A non-positive d disables the middleware.
func Middleware(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
