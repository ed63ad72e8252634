package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/admitai/admitai-korea/internal/db/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// TimelineRepository handles application timelines and their tasks
type TimelineRepository struct {
	db *sqlx.DB
}

// NewTimelineRepository creates a new TimelineRepository
func NewTimelineRepository(db *sqlx.DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

const timelineColumns = `id, user_id, title, created_at, updated_at`

const taskColumns = `id, timeline_id, type, label, description, due_date, reminder_at, reminder_sent_at,
	completed, priority, category, university, estimated_hours, tags, created_at, updated_at`

// TaskPatch lists the task fields a PATCH may change.
type TaskPatch struct {
	Type           *string
	Label          *string
	Description    *string
	DueDate        *time.Time
	ReminderAt     *time.Time
	Completed      *bool
	Priority       *string
	Category       *string
	University     *string
	EstimatedHours *int
	Tags           *[]string
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Type == nil && p.Label == nil && p.Description == nil && p.DueDate == nil &&
		p.ReminderAt == nil && p.Completed == nil && p.Priority == nil && p.Category == nil &&
		p.University == nil && p.EstimatedHours == nil && p.Tags == nil
}

// DueReminder is a task whose reminder time has passed, joined with its owner.
type DueReminder struct {
	TaskID    string    `db:"task_id"`
	Label     string    `db:"label"`
	DueDate   time.Time `db:"due_date"`
	UserEmail string    `db:"email"`
	FirstName string    `db:"first_name"`
	Language  string    `db:"language"`
}

// CreateTimeline inserts a timeline. Each user owns at most one.
func (r *TimelineRepository) CreateTimeline(ctx context.Context, t *models.Timeline) error {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	if t.Title == "" {
		t.Title = models.DefaultTimelineTitle
	}
	if t.Tasks == nil {
		t.Tasks = []models.TimelineTask{}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO application_timelines (`+timelineColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.UserID, t.Title, t.CreatedAt, t.UpdatedAt)
	return translate(err)
}

// GetTimelineByUser returns the user's timeline with all tasks ordered by due date.
func (r *TimelineRepository) GetTimelineByUser(ctx context.Context, userID string) (*models.Timeline, error) {
	var t models.Timeline
	err := r.db.GetContext(ctx, &t, `SELECT `+timelineColumns+` FROM application_timelines WHERE user_id = $1`, userID)
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tasks, err := r.ListTasks(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Tasks = tasks
	return &t, nil
}

// GetTimeline retrieves a timeline by ID without its tasks.
func (r *TimelineRepository) GetTimeline(ctx context.Context, id string) (*models.Timeline, error) {
	var t models.Timeline
	err := r.db.GetContext(ctx, &t, `SELECT `+timelineColumns+` FROM application_timelines WHERE id = $1`, id)
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTimelineTitle renames a timeline, returning nil when it does not exist.
func (r *TimelineRepository) UpdateTimelineTitle(ctx context.Context, id, title string) (*models.Timeline, error) {
	var t models.Timeline
	err := r.db.GetContext(ctx, &t,
		`UPDATE application_timelines SET title = $1, updated_at = NOW() WHERE id = $2 RETURNING `+timelineColumns,
		title, id)
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTimeline deletes a timeline and its tasks, reporting whether it existed.
func (r *TimelineRepository) DeleteTimeline(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM application_timelines WHERE id = $1`, id)
	if IsInvalidID(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListTasks returns a timeline's tasks ordered by due date.
func (r *TimelineRepository) ListTasks(ctx context.Context, timelineID string) ([]models.TimelineTask, error) {
	tasks := []models.TimelineTask{}
	query := `SELECT ` + taskColumns + ` FROM timeline_tasks WHERE timeline_id = $1 ORDER BY due_date ASC`
	if err := r.db.SelectContext(ctx, &tasks, query, timelineID); err != nil {
		return nil, fmt.Errorf("failed to list timeline tasks: %w", err)
	}
	return tasks, nil
}

// CreateTask inserts a task. The same label may not be added twice for one date.
func (r *TimelineRepository) CreateTask(ctx context.Context, task *models.TimelineTask) error {
	task.ID = uuid.New().String()
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Category == "" {
		task.Category = models.CategoryApplication
	}
	if task.Tags == nil {
		task.Tags = pq.StringArray{}
	}

	query := `
		INSERT INTO timeline_tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.TimelineID, task.Type, task.Label, task.Description, task.DueDate,
		task.ReminderAt, task.ReminderSentAt, task.Completed, task.Priority, task.Category,
		task.University, task.EstimatedHours, task.Tags, task.CreatedAt, task.UpdatedAt)
	return translate(err)
}

// GetTask retrieves a task by ID
func (r *TimelineRepository) GetTask(ctx context.Context, id string) (*models.TimelineTask, error) {
	var task models.TimelineTask
	err := r.db.GetContext(ctx, &task, `SELECT `+taskColumns+` FROM timeline_tasks WHERE id = $1`, id)
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies patch and returns the updated task, or nil when the task
// does not exist. A new reminder time clears the delivery state so the
// reminder fires again.
func (r *TimelineRepository) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*models.TimelineTask, error) {
	var b updateBuilder
	if patch.Type != nil {
		b.set("type", *patch.Type)
	}
	if patch.Label != nil {
		b.set("label", *patch.Label)
	}
	if patch.Description != nil {
		b.set("description", *patch.Description)
	}
	if patch.DueDate != nil {
		b.set("due_date", *patch.DueDate)
	}
	if patch.ReminderAt != nil {
		b.set("reminder_at", *patch.ReminderAt)
		b.set("reminder_sent_at", nil)
		b.set("reminder_attempts", 0)
		b.set("reminder_last_attempt_at", nil)
	}
	if patch.Completed != nil {
		b.set("completed", *patch.Completed)
	}
	if patch.Priority != nil {
		b.set("priority", *patch.Priority)
	}
	if patch.Category != nil {
		b.set("category", *patch.Category)
	}
	if patch.University != nil {
		b.set("university", *patch.University)
	}
	if patch.EstimatedHours != nil {
		b.set("estimated_hours", *patch.EstimatedHours)
	}
	if patch.Tags != nil {
		b.set("tags", pq.StringArray(*patch.Tags))
	}
	if b.empty() {
		return r.GetTask(ctx, id)
	}

	query, args := b.build("timeline_tasks", id, taskColumns)
	var task models.TimelineTask
	err := r.db.GetContext(ctx, &task, query, args...)
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// SetTaskCompleted sets the completed flag. When completed is nil the flag is toggled.
func (r *TimelineRepository) SetTaskCompleted(ctx context.Context, id string, completed *bool) (*models.TimelineTask, error) {
	var (
		query string
		args  []interface{}
	)
	if completed == nil {
		query = `UPDATE timeline_tasks SET completed = NOT completed, updated_at = NOW() WHERE id = $1 RETURNING ` + taskColumns
		args = []interface{}{id}
	} else {
		query = `UPDATE timeline_tasks SET completed = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + taskColumns
		args = []interface{}{*completed, id}
	}

	var task models.TimelineTask
	err := r.db.GetContext(ctx, &task, query, args...)
	if missing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask deletes a task and reports whether it existed.
func (r *TimelineRepository) DeleteTask(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timeline_tasks WHERE id = $1`, id)
	if IsInvalidID(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListDueReminders returns open tasks whose reminder time is at or before now
// and whose reminder has not been sent yet. Tasks that already failed
// maxAttempts times are skipped, as are tasks whose last failed attempt is
// later than retryBefore. Tasks with fewer failures come first.
func (r *TimelineRepository) ListDueReminders(ctx context.Context, now, retryBefore time.Time, maxAttempts, limit int) ([]DueReminder, error) {
	query := `
		SELECT t.id AS task_id, t.label, t.due_date, u.email, u.first_name, u.language
		FROM timeline_tasks t
		JOIN application_timelines tl ON tl.id = t.timeline_id
		JOIN users u ON u.id = tl.user_id
		WHERE t.reminder_at IS NOT NULL
		  AND t.reminder_at <= $1
		  AND t.reminder_sent_at IS NULL
		  AND t.completed = FALSE
		  AND t.reminder_attempts < $3
		  AND (t.reminder_last_attempt_at IS NULL OR t.reminder_last_attempt_at <= $2)
		ORDER BY t.reminder_attempts ASC, t.reminder_at ASC
		LIMIT $4
	`
	reminders := []DueReminder{}
	if err := r.db.SelectContext(ctx, &reminders, query, now, retryBefore, maxAttempts, limit); err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return reminders, nil
}

// MarkReminderSent records that a task's reminder was delivered.
func (r *TimelineRepository) MarkReminderSent(ctx context.Context, taskID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE timeline_tasks SET reminder_sent_at = $1 WHERE id = $2`, at, taskID)
	return err
}

// MarkReminderFailed counts a failed delivery attempt for a task's reminder.
func (r *TimelineRepository) MarkReminderFailed(ctx context.Context, taskID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE timeline_tasks SET reminder_attempts = reminder_attempts + 1, reminder_last_attempt_at = $1 WHERE id = $2`,
		at, taskID)
	return err
}
