// audit.go records successful authenticated write operations to the audit log.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/admitai/admitai-korea/internal/db/models"
	"github.com/admitai/admitai-korea/internal/safego"
)

// AuditRecorder persists audit entries. *repositories.AuditRepository
// satisfies it.
type AuditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// resourceTypes maps route prefixes to the resource_type column. Longer
// prefixes come first so the most specific match wins.
var resourceTypes = []struct {
	prefix   string
	resource string
}{
	{"/api/storytelling/story-blocks", "story_block"},
	{"/api/storytelling/story-drafts", "story_draft"},
	{"/api/timeline/tasks", "timeline_task"},
	{"/api/timeline", "timeline"},
	{"/api/seo", "seo_parity"},
	{"/api/users", "user"},
}

// resourceParams are the route parameters that name the resource a request
// acts on.
var resourceParams = []string{"id", "taskId"}

func resourceIDFor(c *gin.Context) string {
	for _, name := range resourceParams {
		if v := c.Param(name); v != "" {
			return v
		}
	}
	return ""
}

func resourceTypeFor(route string) string {
	for _, rt := range resourceTypes {
		if strings.HasPrefix(route, rt.prefix) {
			return rt.resource
		}
	}
	return ""
}

// AuditMiddleware writes an audit entry for every authenticated request that
// changes state and succeeds. The write happens on a background goroutine
// with its own timeout so it never delays the response.
func AuditMiddleware(recorder AuditRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}
		status := c.Writer.Status()
		if status >= 400 {
			return
		}
		userID := UserID(c)
		if userID == "" {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ip := c.ClientIP()
		entry := &models.AuditLog{
			UserID:    &userID,
			Action:    c.Request.Method + " " + route,
			IPAddress: &ip,
			Metadata: map[string]interface{}{
				"status_code": status,
				"path":        c.Request.URL.Path,
			},
		}
		if rt := resourceTypeFor(route); rt != "" {
			entry.ResourceType = &rt
		}
		if id := resourceIDFor(c); id != "" {
			entry.ResourceID = &id
		}
		if id, ok := c.Get(RequestIDKey); ok {
			entry.Metadata["request_id"] = id
		}

		safego.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := recorder.CreateAuditLog(ctx, entry); err != nil {
				slog.Error("failed to create audit log", "action", entry.Action, "error", err)
			}
		})
	}
}
