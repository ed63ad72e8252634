package timeline

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/admitai/admitai-korea/internal/apierr"
	"github.com/admitai/admitai-korea/internal/db/models"
	"github.com/admitai/admitai-korea/internal/db/repositories"
	"github.com/admitai/admitai-korea/internal/middleware"
)

// CreateTimelineRequest is the body of POST /api/timeline
type CreateTimelineRequest struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
}

// UpdateTimelineRequest is the body of PATCH /api/timeline/:id
type UpdateTimelineRequest struct {
	Title string `json:"title"`
}

func resolveUser(c *gin.Context, requested string) (string, bool) {
	userID, allowed := middleware.OwnerOrCaller(c, strings.TrimSpace(requested))
	if userID == "" {
		_ = c.Error(apierr.BadRequest("Missing userId"))
		return "", false
	}
	if !allowed {
		_ = c.Error(apierr.Forbidden(""))
		return "", false
	}
	return userID, true
}

// @Summary      Create timeline
// @Description  Create the user's application timeline. Each user has at most one.
// @Tags         Timeline
// @Accept       json
// @Produce      json
// @Param        body  body  CreateTimelineRequest  true  "Owner and optional title"
// @Success      201  {object}  map[string]interface{}  "data: models.Timeline"
// @Failure      400  {object}  map[string]interface{}  "Missing userId"
// @Failure      409  {object}  map[string]interface{}  "Timeline already exists for this user"
// @Router       /api/timeline [post]
// CreateTimelineHandler creates a timeline
// POST /api/timeline
func (h *Handlers) CreateTimelineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTimelineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		userID, ok := resolveUser(c, req.UserID)
		if !ok {
			return
		}

		tl := &models.Timeline{UserID: userID, Title: strings.TrimSpace(req.Title)}
		err := h.timelineRepo.CreateTimeline(c.Request.Context(), tl)
		if errors.Is(err, repositories.ErrDuplicate) {
			_ = c.Error(apierr.Conflict("Timeline already exists for this user"))
			return
		}
		if err != nil {
			storeError(c, "Failed to create timeline", err)
			return
		}
		okJSON(c, http.StatusCreated, tl)
	}
}

// @Summary      Get timeline
// @Description  Get the user's timeline with its tasks, optionally filtered and sorted.
// @Tags         Timeline
// @Produce      json
// @Param        userId     query  string  true   "Owner user ID (defaults to the signed-in user)"
// @Param        category   query  string  false  "Only tasks in this category"
// @Param        completed  query  bool    false  "Only tasks with this completion state"
// @Param        sort       query  string  false  "dueDate (default), priority or category"
// @Success      200  {object}  map[string]interface{}  "data: models.Timeline"
// @Failure      400  {object}  map[string]interface{}  "Validation error"
// @Failure      404  {object}  map[string]interface{}  "Timeline not found"
// @Router       /api/timeline [get]
// GetTimelineHandler returns a user's timeline
// GET /api/timeline?userId=&category=&completed=&sort=
func (h *Handlers) GetTimelineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := resolveUser(c, c.Query("userId"))
		if !ok {
			return
		}

		var filter models.TaskFilter
		if category := c.Query("category"); category != "" {
			if !models.IsValidCategory(category) {
				_ = c.Error(apierr.BadRequest("Invalid category"))
				return
			}
			filter.Category = &category
		}
		if raw := c.Query("completed"); raw != "" {
			completed, err := strconv.ParseBool(raw)
			if err != nil {
				_ = c.Error(apierr.BadRequest("Invalid completed flag"))
				return
			}
			filter.Completed = &completed
		}
		sortKey := c.Query("sort")
		if !models.IsValidSort(sortKey) {
			_ = c.Error(apierr.BadRequest("Invalid sort"))
			return
		}

		tl, err := h.timelineRepo.GetTimelineByUser(c.Request.Context(), userID)
		if err != nil {
			storeError(c, "Failed to fetch timeline", err)
			return
		}
		if tl == nil {
			_ = c.Error(apierr.NotFound("Timeline not found"))
			return
		}

		tl.Tasks = models.FilterTasks(tl.Tasks, filter)
		models.SortTasks(tl.Tasks, sortKey)
		okJSON(c, http.StatusOK, tl)
	}
}

// @Summary      Rename timeline
// @Tags         Timeline
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "Timeline ID"
// @Param        body  body  UpdateTimelineRequest  true  "New title"
// @Success      200  {object}  map[string]interface{}  "data: models.Timeline"
// @Failure      400  {object}  map[string]interface{}  "Missing title"
// @Failure      404  {object}  map[string]interface{}  "Timeline not found"
// @Router       /api/timeline/{id} [patch]
// UpdateTimelineHandler renames a timeline
// PATCH /api/timeline/:id
func (h *Handlers) UpdateTimelineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateTimelineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		title := strings.TrimSpace(req.Title)
		if title == "" {
			_ = c.Error(apierr.BadRequest("Missing title"))
			return
		}
		id := c.Param("id")
		if !h.checkTimelineAccess(c, id) {
			return
		}

		tl, err := h.timelineRepo.UpdateTimelineTitle(c.Request.Context(), id, title)
		if err != nil {
			storeError(c, "Failed to update timeline", err)
			return
		}
		if tl == nil {
			_ = c.Error(apierr.NotFound("Timeline not found"))
			return
		}
		okJSON(c, http.StatusOK, tl)
	}
}

// @Summary      Delete timeline
// @Description  Delete a timeline together with its tasks.
// @Tags         Timeline
// @Produce      json
// @Param        id  path  string  true  "Timeline ID"
// @Success      200  {object}  map[string]interface{}  "success: true"
// @Failure      404  {object}  map[string]interface{}  "Timeline not found"
// @Router       /api/timeline/{id} [delete]
// DeleteTimelineHandler deletes a timeline
// DELETE /api/timeline/:id
func (h *Handlers) DeleteTimelineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !h.checkTimelineAccess(c, id) {
			return
		}
		found, err := h.timelineRepo.DeleteTimeline(c.Request.Context(), id)
		if err != nil {
			storeError(c, "Failed to delete timeline", err)
			return
		}
		if !found {
			_ = c.Error(apierr.NotFound("Timeline not found"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// @Summary      Timeline summary
// @Description  Count tasks: total, completed, overdue, due within seven days and per category.
// @Tags         Timeline
// @Produce      json
// @Param        id  path  string  true  "Timeline ID"
// @Success      200  {object}  map[string]interface{}  "data: models.TimelineSummary"
// @Failure      404  {object}  map[string]interface{}  "Timeline not found"
// @Router       /api/timeline/{id}/summary [get]
// SummaryHandler summarizes a timeline's tasks
// GET /api/timeline/:id/summary
func (h *Handlers) SummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tl, err := h.timelineRepo.GetTimeline(ctx, c.Param("id"))
		if err != nil {
			storeError(c, "Failed to fetch timeline", err)
			return
		}
		if tl == nil {
			_ = c.Error(apierr.NotFound("Timeline not found"))
			return
		}
		if !middleware.CanActFor(c, tl.UserID) {
			_ = c.Error(apierr.Forbidden(""))
			return
		}

		tasks, err := h.timelineRepo.ListTasks(ctx, tl.ID)
		if err != nil {
			storeError(c, "Failed to fetch tasks", err)
			return
		}
		okJSON(c, http.StatusOK, models.Summarize(tasks, h.now()))
	}
}
