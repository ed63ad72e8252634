package timeline

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"github.com/admitai/admitai-korea/internal/apierr"
	"github.com/admitai/admitai-korea/internal/db/models"
	"github.com/admitai/admitai-korea/internal/db/repositories"
	"github.com/admitai/admitai-korea/internal/middleware"
)

// TaskRequest is the body of task create and update calls. title is accepted
// as an alias of label. Dates are RFC 3339 timestamps or YYYY-MM-DD.
type TaskRequest struct {
	Type           *string   `json:"type"`
	Label          *string   `json:"label"`
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	DueDate        *string   `json:"dueDate"`
	ReminderAt     *string   `json:"reminderAt"`
	Completed      *bool     `json:"completed"`
	Priority       *string   `json:"priority"`
	Category       *string   `json:"category"`
	University     *string   `json:"university"`
	EstimatedHours *int      `json:"estimatedHours"`
	Tags           *[]string `json:"tags"`
}

// CompleteTaskRequest is the optional body of POST /tasks/:taskId/complete.
// Without completed the flag is toggled.
type CompleteTaskRequest struct {
	Completed *bool `json:"completed"`
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// patch converts the request into a repository patch, validating enumerations
// and dates. The returned message is empty when the request is valid.
func (r TaskRequest) patch() (repositories.TaskPatch, string) {
	var p repositories.TaskPatch

	if t := nonEmpty(r.Type); t != nil {
		upper := strings.ToUpper(*t)
		p.Type = &upper
	}
	p.Label = nonEmpty(r.Label)
	if p.Label == nil {
		p.Label = nonEmpty(r.Title)
	}
	p.Description = r.Description
	if d := nonEmpty(r.DueDate); d != nil {
		due, err := parseDate(*d)
		if err != nil {
			return p, "Invalid dueDate"
		}
		p.DueDate = &due
	}
	if d := nonEmpty(r.ReminderAt); d != nil {
		at, err := parseDate(*d)
		if err != nil {
			return p, "Invalid reminderAt"
		}
		p.ReminderAt = &at
	}
	p.Completed = r.Completed
	if pr := nonEmpty(r.Priority); pr != nil {
		lower := strings.ToLower(*pr)
		if !models.IsValidPriority(lower) {
			return p, "Invalid priority"
		}
		p.Priority = &lower
	}
	if cat := nonEmpty(r.Category); cat != nil {
		lower := strings.ToLower(*cat)
		if !models.IsValidCategory(lower) {
			return p, "Invalid category"
		}
		p.Category = &lower
	}
	p.University = r.University
	if r.EstimatedHours != nil {
		if *r.EstimatedHours < 0 {
			return p, "estimatedHours must not be negative"
		}
		p.EstimatedHours = r.EstimatedHours
	}
	p.Tags = r.Tags
	return p, ""
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// @Summary      Add task
// @Tags         Timeline
// @Accept       json
// @Produce      json
// @Param        id    path  string       true  "Timeline ID"
// @Param        body  body  TaskRequest  true  "Task"
// @Success      201  {object}  map[string]interface{}  "data: models.TimelineTask"
// @Failure      400  {object}  map[string]interface{}  "Missing required fields"
// @Failure      404  {object}  map[string]interface{}  "Timeline not found"
// @Failure      409  {object}  map[string]interface{}  "Task already exists for this date"
// @Router       /api/timeline/{id}/tasks [post]
// CreateTaskHandler adds a task to a timeline
// POST /api/timeline/:id/tasks
func (h *Handlers) CreateTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		p, msg := req.patch()
		if msg != "" {
			_ = c.Error(apierr.BadRequest(msg))
			return
		}
		if p.Type == nil || p.Label == nil || p.DueDate == nil {
			_ = c.Error(apierr.BadRequest("Missing required fields"))
			return
		}

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

		task := &models.TimelineTask{
			TimelineID:     tl.ID,
			Type:           *p.Type,
			Label:          *p.Label,
			Description:    p.Description,
			DueDate:        *p.DueDate,
			ReminderAt:     p.ReminderAt,
			Completed:      deref(p.Completed),
			Priority:       deref(p.Priority),
			Category:       deref(p.Category),
			University:     p.University,
			EstimatedHours: p.EstimatedHours,
		}
		if p.Tags != nil {
			task.Tags = pq.StringArray(*p.Tags)
		}

		err = h.timelineRepo.CreateTask(ctx, task)
		if errors.Is(err, repositories.ErrDuplicate) {
			_ = c.Error(apierr.Conflict("Task already exists for this date"))
			return
		}
		if err != nil {
			storeError(c, "Failed to create task", err)
			return
		}
		okJSON(c, http.StatusCreated, task)
	}
}

// @Summary      Update task
// @Description  Change any subset of a task's fields. A new reminderAt re-arms the reminder.
// @Tags         Timeline
// @Accept       json
// @Produce      json
// @Param        taskId  path  string       true  "Task ID"
// @Param        body    body  TaskRequest  true  "Fields to change"
// @Success      200  {object}  map[string]interface{}  "data: models.TimelineTask"
// @Failure      400  {object}  map[string]interface{}  "Nothing to update"
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /api/timeline/tasks/{taskId} [patch]
// UpdateTaskHandler updates a task
// PATCH /api/timeline/tasks/:taskId
func (h *Handlers) UpdateTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		p, msg := req.patch()
		if msg != "" {
			_ = c.Error(apierr.BadRequest(msg))
			return
		}
		if p.IsEmpty() {
			_ = c.Error(apierr.BadRequest("Nothing to update"))
			return
		}
		taskID := c.Param("taskId")
		if !h.checkTaskAccess(c, taskID) {
			return
		}

		task, err := h.timelineRepo.UpdateTask(c.Request.Context(), taskID, p)
		if errors.Is(err, repositories.ErrDuplicate) {
			_ = c.Error(apierr.Conflict("Task already exists for this date"))
			return
		}
		if err != nil {
			storeError(c, "Failed to update task", err)
			return
		}
		if task == nil {
			_ = c.Error(apierr.NotFound("Task not found"))
			return
		}
		okJSON(c, http.StatusOK, task)
	}
}

// @Summary      Complete task
// @Description  Set the completed flag, or toggle it when the body omits completed.
// @Tags         Timeline
// @Accept       json
// @Produce      json
// @Param        taskId  path  string               true   "Task ID"
// @Param        body    body  CompleteTaskRequest  false  "Desired state"
// @Success      200  {object}  map[string]interface{}  "data: models.TimelineTask"
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /api/timeline/tasks/{taskId}/complete [post]
// CompleteTaskHandler marks a task complete or incomplete
// POST /api/timeline/tasks/:taskId/complete
func (h *Handlers) CompleteTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CompleteTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			_ = c.Error(apierr.Validation("Invalid request body"))
			return
		}
		taskID := c.Param("taskId")
		if !h.checkTaskAccess(c, taskID) {
			return
		}

		task, err := h.timelineRepo.SetTaskCompleted(c.Request.Context(), taskID, req.Completed)
		if err != nil {
			storeError(c, "Failed to update task", err)
			return
		}
		if task == nil {
			_ = c.Error(apierr.NotFound("Task not found"))
			return
		}
		okJSON(c, http.StatusOK, task)
	}
}

// @Summary      Delete task
// @Tags         Timeline
// @Produce      json
// @Param        taskId  path  string  true  "Task ID"
// @Success      200  {object}  map[string]interface{}  "success: true"
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /api/timeline/tasks/{taskId} [delete]
// DeleteTaskHandler deletes a task
// DELETE /api/timeline/tasks/:taskId
func (h *Handlers) DeleteTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("taskId")
		if !h.checkTaskAccess(c, taskID) {
			return
		}
		found, err := h.timelineRepo.DeleteTask(c.Request.Context(), taskID)
		if err != nil {
			storeError(c, "Failed to delete task", err)
			return
		}
		if !found {
			_ = c.Error(apierr.NotFound("Task not found"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

