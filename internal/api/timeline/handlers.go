// Package timeline serves the application timeline and task endpoints under
// /api/timeline.
package timeline

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/admitai/admitai-korea/internal/apierr"
	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/db/repositories"
	"github.com/admitai/admitai-korea/internal/middleware"
)

// Handlers handles timeline and task endpoints
type Handlers struct {
	cfg          *config.Config
	timelineRepo *repositories.TimelineRepository
	now          func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(cfg *config.Config, db *sqlx.DB) *Handlers {
	return &Handlers{
		cfg:          cfg,
		timelineRepo: repositories.NewTimelineRepository(db),
		now:          time.Now,
	}
}

// Register mounts every timeline route on rg. All path parameters at the
// first level share the :id name because gin requires one wildcard name per
// position.
func (h *Handlers) Register(rg *gin.RouterGroup) {
	rg.POST("", h.CreateTimelineHandler())
	rg.GET("", h.GetTimelineHandler())
	rg.PATCH("/:id", h.UpdateTimelineHandler())
	rg.DELETE("/:id", h.DeleteTimelineHandler())
	rg.GET("/:id/summary", h.SummaryHandler())
	rg.POST("/:id/tasks", h.CreateTaskHandler())

	tasks := rg.Group("/tasks")
	{
		tasks.PATCH("/:taskId", h.UpdateTaskHandler())
		tasks.DELETE("/:taskId", h.DeleteTaskHandler())
		tasks.POST("/:taskId/complete", h.CompleteTaskHandler())
	}
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// checkTimelineAccess verifies a signed-in caller owns the timeline.
// Anonymous requests skip the lookup.
func (h *Handlers) checkTimelineAccess(c *gin.Context, timelineID string) bool {
	if middleware.UserID(c) == "" {
		return true
	}
	tl, err := h.timelineRepo.GetTimeline(c.Request.Context(), timelineID)
	if err != nil {
		storeError(c, "Failed to fetch timeline", err)
		return false
	}
	if tl == nil {
		_ = c.Error(apierr.NotFound("Timeline not found"))
		return false
	}
	if !middleware.CanActFor(c, tl.UserID) {
		_ = c.Error(apierr.Forbidden(""))
		return false
	}
	return true
}

// checkTaskAccess verifies a signed-in caller owns the task's timeline.
func (h *Handlers) checkTaskAccess(c *gin.Context, taskID string) bool {
	if middleware.UserID(c) == "" {
		return true
	}
	task, err := h.timelineRepo.GetTask(c.Request.Context(), taskID)
	if err != nil {
		storeError(c, "Failed to fetch task", err)
		return false
	}
	if task == nil {
		_ = c.Error(apierr.NotFound("Task not found"))
		return false
	}
	return h.checkTimelineAccess(c, task.TimelineID)
}

// storeError reports a repository failure. A malformed id in the request is
// the caller's mistake and answers 400.
func storeError(c *gin.Context, message string, err error) {
	if repositories.IsInvalidID(err) {
		_ = c.Error(apierr.BadRequest("Invalid id"))
		return
	}
	_ = c.Error(apierr.Internal(message, err))
}

func okJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}
