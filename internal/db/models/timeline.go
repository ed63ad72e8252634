package models

import (
	"sort"
	"time"

	"github.com/lib/pq"
)

// DefaultTimelineTitle is used when a timeline is created without a title.
const DefaultTimelineTitle = "My Application Timeline"

// Task priorities, highest first.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Task categories.
const (
	CategoryEssay          = "essay"
	CategoryTest           = "test"
	CategoryRecommendation = "recommendation"
	CategoryFinancial      = "financial"
	CategoryResearch       = "research"
	CategoryApplication    = "application"
)

var priorityRank = map[string]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

var validCategories = map[string]bool{
	CategoryEssay:          true,
	CategoryTest:           true,
	CategoryRecommendation: true,
	CategoryFinancial:      true,
	CategoryResearch:       true,
	CategoryApplication:    true,
}

// IsValidPriority reports whether p is high, medium or low.
func IsValidPriority(p string) bool {
	_, ok := priorityRank[p]
	return ok
}

// IsValidCategory reports whether c is a known task category.
func IsValidCategory(c string) bool {
	return validCategories[c]
}

// Timeline is the single application timeline a user owns.
type Timeline struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"userId"`
	Title     string         `db:"title" json:"title"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
	Tasks     []TimelineTask `db:"-" json:"tasks"`
}

// TimelineTask is a dated item on a timeline.
type TimelineTask struct {
	ID             string         `db:"id" json:"id"`
	TimelineID     string         `db:"timeline_id" json:"timelineId"`
	Type           string         `db:"type" json:"type"`
	Label          string         `db:"label" json:"label"`
	Description    *string        `db:"description" json:"description"`
	DueDate        time.Time      `db:"due_date" json:"dueDate"`
	ReminderAt     *time.Time     `db:"reminder_at" json:"reminderAt"`
	ReminderSentAt *time.Time     `db:"reminder_sent_at" json:"reminderSentAt"`
	Completed      bool           `db:"completed" json:"completed"`
	Priority       string         `db:"priority" json:"priority"`
	Category       string         `db:"category" json:"category"`
	University     *string        `db:"university" json:"university"`
	EstimatedHours *int           `db:"estimated_hours" json:"estimatedHours"`
	Tags           pq.StringArray `db:"tags" json:"tags"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// TaskFilter narrows a task list. Nil fields do not filter.
type TaskFilter struct {
	Category  *string
	Completed *bool
}

// Task sort keys accepted by SortTasks.
const (
	SortByDueDate  = "dueDate"
	SortByPriority = "priority"
	SortByCategory = "category"
)

// IsValidSort reports whether key is a supported sort key.
func IsValidSort(key string) bool {
	switch key {
	case "", SortByDueDate, SortByPriority, SortByCategory:
		return true
	}
	return false
}

// FilterTasks returns the tasks matching f, preserving order.
func FilterTasks(tasks []TimelineTask, f TaskFilter) []TimelineTask {
	out := make([]TimelineTask, 0, len(tasks))
	for _, t := range tasks {
		if f.Category != nil && t.Category != *f.Category {
			continue
		}
		if f.Completed != nil && t.Completed != *f.Completed {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SortTasks orders tasks in place. dueDate (the default) sorts by due date
// ascending; priority sorts high before medium before low; category sorts
// alphabetically. Ties fall back to due date.
func SortTasks(tasks []TimelineTask, key string) {
	byDue := func(a, b TimelineTask) bool { return a.DueDate.Before(b.DueDate) }

	var less func(a, b TimelineTask) bool
	switch key {
	case SortByPriority:
		less = func(a, b TimelineTask) bool {
			ra, rb := priorityRank[a.Priority], priorityRank[b.Priority]
			if ra != rb {
				return ra < rb
			}
			return byDue(a, b)
		}
	case SortByCategory:
		less = func(a, b TimelineTask) bool {
			if a.Category != b.Category {
				return a.Category < b.Category
			}
			return byDue(a, b)
		}
	default:
		less = byDue
	}

	sort.SliceStable(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) })
}

// TimelineSummary aggregates task counts for dashboards.
type TimelineSummary struct {
	Total      int            `json:"total"`
	Completed  int            `json:"completed"`
	Overdue    int            `json:"overdue"`
	DueSoon    int            `json:"dueSoon"`
	ByCategory map[string]int `json:"byCategory"`
}

// Summarize counts tasks relative to now. A task is overdue when it is not
// completed and its due date has passed; it is due soon when it is not
// completed and due within the next seven days.
func Summarize(tasks []TimelineTask, now time.Time) TimelineSummary {
	s := TimelineSummary{ByCategory: map[string]int{}}
	soon := now.Add(7 * 24 * time.Hour)
	for _, t := range tasks {
		s.Total++
		s.ByCategory[t.Category]++
		if t.Completed {
			s.Completed++
			continue
		}
		if t.DueDate.Before(now) {
			s.Overdue++
		} else if !t.DueDate.After(soon) {
			s.DueSoon++
		}
	}
	return s
}
