package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/admitai/admitai-korea/internal/telemetry"
)

// noRouteLabel is the path label for requests that matched no route, so
// scanners probing random URLs do not inflate label cardinality.
const noRouteLabel = "<no-route>"

// MetricsMiddleware records http_requests_total and
// http_request_duration_seconds for every request, labelled by the matched
// route template (c.FullPath) rather than the raw URL.
//
// Register it after Recovery and RequestIDMiddleware so the final status set
// by the error handler is observed.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = noRouteLabel
		}
		method := c.Request.Method

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
