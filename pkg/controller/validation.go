package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/nimburion/lazycounter/pkg/middleware/requestsize"
)

// Validator is implemented by request bodies with their own validation rules.
type Validator interface {
	Validate() error
}

// BindJSON decodes the request body into dto and validates it. The returned
// error is an *AppError ready for Error.
func BindJSON(c *gin.Context, dto any) error {
	if err := c.ShouldBindJSON(dto); err != nil {
		if requestsize.IsTooLarge(err) {
			return NewRequestTooLargeError(err)
		}
		return NewValidationError("request body is not valid JSON", map[string]any{"cause": err.Error()})
	}
	if v, ok := dto.(Validator); ok {
		if err := v.Validate(); err != nil {
			return NewValidationError(err.Error(), nil)
		}
	}
	return nil
}
