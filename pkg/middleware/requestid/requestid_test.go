package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newEngine(seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) {
		*seen = GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	return engine
}

func TestRequestID_GeneratesUUID(t *testing.T) {
	var seen string
	rec := httptest.NewRecorder()
	newEngine(&seen).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	header := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(header); err != nil {
		t.Fatalf("expected a UUID request id, got %q", header)
	}
	if seen != header {
		t.Errorf("expected handler to see %q, got %q", header, seen)
	}
}

func TestRequestID_PreservesIncoming(t *testing.T) {
	var seen string
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	newEngine(&seen).ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("expected preserved request id, got %q", got)
	}
	if seen != "req-123" {
		t.Errorf("expected handler to see req-123, got %q", seen)
	}
}

func TestRequestID_ReplacesOversizedID(t *testing.T) {
	var seen string
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	rec := httptest.NewRecorder()
	newEngine(&seen).ServeHTTP(rec, req)

	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("expected oversized id to be replaced by a UUID, got %q", seen)
	}
}
