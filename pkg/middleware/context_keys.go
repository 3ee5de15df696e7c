// Package middleware holds the gin middleware chain of the counter API.
// Each concern lives in its own subpackage.
package middleware

// ContextKey is a typed key for values stored on the gin context
type ContextKey string

const (
	// RequestIDKey is the gin context key for the request ID
	RequestIDKey ContextKey = "request_id"
)
