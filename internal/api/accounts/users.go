package accounts

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/admitai/admitai-korea/internal/apierr"
	"github.com/admitai/admitai-korea/internal/db/models"
	"github.com/admitai/admitai-korea/internal/db/repositories"
	"github.com/admitai/admitai-korea/internal/middleware"
)

// Dashboard aggregates a user's progress for the student and parent dashboards.
// Timeline is null when the user has not created a timeline yet.
type Dashboard struct {
	UserID      string                  `json:"userId"`
	StoryBlocks int                     `json:"storyBlocks"`
	StoryDrafts int                     `json:"storyDrafts"`
	Timeline    *models.TimelineSummary `json:"timeline"`
}

// @Summary      Current user
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "data: models.User"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/users/me [get]
// MeHandler returns the signed-in user
// GET /api/users/me
func (h *Handlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := h.currentUser(c)
		if !ok {
			return
		}
		okJSON(c, http.StatusOK, user)
	}
}

// @Summary      Dashboard
// @Description  Story block and draft counts plus the timeline summary. Administrators may pass userId.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        userId  query  string  false  "Another user's ID (ADMIN only)"
// @Success      200  {object}  map[string]interface{}  "data: Dashboard"
// @Failure      403  {object}  map[string]interface{}  "Insufficient permissions"
// @Router       /api/users/me/dashboard [get]
// DashboardHandler aggregates the caller's progress
// GET /api/users/me/dashboard
func (h *Handlers) DashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, allowed := middleware.OwnerOrCaller(c, strings.TrimSpace(c.Query("userId")))
		if userID == "" {
			_ = c.Error(apierr.Unauthorized(""))
			return
		}
		if !allowed {
			_ = c.Error(apierr.Forbidden(""))
			return
		}

		dash := Dashboard{UserID: userID}
		g, ctx := errgroup.WithContext(c.Request.Context())
		g.Go(func() error {
			n, err := h.storyRepo.CountBlocks(ctx, userID)
			dash.StoryBlocks = n
			return err
		})
		g.Go(func() error {
			n, err := h.storyRepo.CountDrafts(ctx, userID)
			dash.StoryDrafts = n
			return err
		})
		g.Go(func() error {
			tl, err := h.timelineRepo.GetTimelineByUser(ctx, userID)
			if err != nil || tl == nil {
				return err
			}
			summary := models.Summarize(tl.Tasks, h.now())
			dash.Timeline = &summary
			return nil
		})
		if err := g.Wait(); err != nil {
			_ = c.Error(apierr.Internal("Failed to build dashboard", err))
			return
		}
		okJSON(c, http.StatusOK, dash)
	}
}

// @Summary      List users
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        page      query  int  false  "Page number (default 1)"
// @Param        per_page  query  int  false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "data: {users, pagination}"
// @Failure      403  {object}  map[string]interface{}  "Insufficient permissions"
// @Router       /api/users [get]
// ListUsersHandler lists all users with pagination
// GET /api/users?page=1&per_page=20
func (h *Handlers) ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage := pagination(c)

		users, total, err := h.userRepo.ListUsers(c.Request.Context(), perPage, (page-1)*perPage)
		if err != nil {
			_ = c.Error(apierr.Internal("Failed to list users", err))
			return
		}
		okJSON(c, http.StatusOK, gin.H{
			"users": users,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      List audit logs
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        page           query  int     false  "Page number (default 1)"
// @Param        per_page       query  int     false  "Items per page, max 100 (default 20)"
// @Param        user_id        query  string  false  "Only entries by this user"
// @Param        action         query  string  false  "Only this action, e.g. POST /api/contact"
// @Param        resource_type  query  string  false  "Only this resource type"
// @Param        resource_id    query  string  false  "Only entries about this resource"
// @Param        start_date     query  string  false  "RFC 3339 lower bound"
// @Param        end_date       query  string  false  "RFC 3339 upper bound"
// @Success      200  {object}  map[string]interface{}  "data: {logs, pagination}"
// @Failure      400  {object}  map[string]interface{}  "Invalid start_date or user_id"
// @Router       /api/users/audit-logs [get]
// ListAuditLogsHandler lists audit log entries
// GET /api/users/audit-logs
func (h *Handlers) ListAuditLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage := pagination(c)

		var filters repositories.AuditFilters
		if v := c.Query("user_id"); v != "" {
			filters.UserID = &v
		}
		if v := c.Query("action"); v != "" {
			filters.Action = &v
		}
		if v := c.Query("resource_type"); v != "" {
			filters.ResourceType = &v
		}
		if v := c.Query("resource_id"); v != "" {
			filters.ResourceID = &v
		}
		for _, p := range []struct {
			name string
			dst  **time.Time
		}{{"start_date", &filters.StartDate}, {"end_date", &filters.EndDate}} {
			raw := c.Query(p.name)
			if raw == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				_ = c.Error(apierr.Validation("Invalid " + p.name))
				return
			}
			*p.dst = &t
		}

		logs, total, err := h.auditRepo.ListAuditLogs(c.Request.Context(), filters, perPage, (page-1)*perPage)
		if repositories.IsInvalidID(err) {
			_ = c.Error(apierr.BadRequest("Invalid user_id"))
			return
		}
		if err != nil {
			_ = c.Error(apierr.Internal("Failed to list audit logs", err))
			return
		}
		okJSON(c, http.StatusOK, gin.H{
			"logs": logs,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}
