// errors.go turns handler errors and panics into the JSON error envelope.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/admitai/admitai-korea/internal/apierr"
)

// ErrorHandler writes the response for the last error a handler attached with
// c.Error. Handlers that already wrote a body are left alone.
//
// Envelope:
//
//	{"success": false, "message": "...", "timestamp": "...", "path": "...",
//	 "method": "...", "details": "...", "stack": "..."}
//
// details is present only when the error carries them; stack only in
// development.
func ErrorHandler(development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		writeError(c, c.Errors.Last().Err, development, "")
	}
}

// Recovery converts a panic into a 500 envelope.
func Recovery(development bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err := apierr.Internal("Internal Server Error", fmt.Errorf("panic: %v", recovered))
		writeError(c, err, development, string(debug.Stack()))
	})
}

// NoRoute answers requests that match no route.
func NoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"message": "Endpoint not found",
		"path":    c.Request.URL.Path,
		"method":  c.Request.Method,
	})
}

func writeError(c *gin.Context, err error, development bool, stack string) {
	e := apierr.As(err)
	status := e.Code.HTTPStatus()

	attrs := []any{
		"status", status,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"error", err.Error(),
	}
	if id, ok := c.Get(RequestIDKey); ok {
		attrs = append(attrs, "request_id", id)
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Debug("request rejected", attrs...)
	}

	message := e.Message
	if message == "" {
		message = http.StatusText(status)
	}
	body := gin.H{
		"success":   false,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"path":      c.Request.URL.Path,
		"method":    c.Request.Method,
	}
	if e.Details != "" {
		body["details"] = e.Details
	}
	if development {
		if stack == "" {
			stack = e.Stack()
		}
		if stack != "" {
			body["stack"] = stack
		}
	}
	c.AbortWithStatusJSON(status, body)
}
