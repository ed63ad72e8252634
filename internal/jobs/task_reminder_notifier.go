// task_reminder_notifier.go implements the TaskReminderNotifier background job,
// which periodically scans timeline tasks whose reminder time has passed and
// emails the owning student. Delivery state is persisted in the database
// (reminder_sent_at column) so each reminder is sent once even across server
// restarts. Failed deliveries are counted per task and retried after a delay,
// up to a fixed number of attempts. The job is a no-op when the mailer is disabled, so it is always
// safe to start.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/db/repositories"
	"github.com/admitai/admitai-korea/internal/notify"
	"github.com/admitai/admitai-korea/internal/telemetry"
)

const (
	reminderBatchSize   = 100
	reminderMaxAttempts = 5
	reminderRetryDelay  = time.Hour
)

var errNoRecipient = errors.New("owner has no email address")

// TaskReminderNotifier periodically emails students about upcoming timeline tasks.
type TaskReminderNotifier struct {
	timelineRepo *repositories.TimelineRepository
	mailer       notify.Mailer
	interval     time.Duration
	now          func() time.Time
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// NewTaskReminderNotifier creates a new TaskReminderNotifier. The check
// interval comes from notifications.reminder_check_interval_minutes and
// defaults to 15 minutes.
func NewTaskReminderNotifier(
	timelineRepo *repositories.TimelineRepository,
	mailer notify.Mailer,
	cfg *config.NotificationsConfig,
) *TaskReminderNotifier {
	minutes := cfg.ReminderCheckIntervalMinutes
	if minutes <= 0 {
		minutes = 15
	}
	return &TaskReminderNotifier{
		timelineRepo: timelineRepo,
		mailer:       mailer,
		interval:     time.Duration(minutes) * time.Minute,
		now:          time.Now,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the reminder loop. It runs an initial check immediately, then
// repeats on the configured interval until ctx is cancelled or Stop is called.
func (n *TaskReminderNotifier) Start(ctx context.Context) {
	if n.mailer == nil || !n.mailer.Enabled() {
		slog.Info("task reminder notifier: disabled (no mailer configured)")
		return
	}

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	slog.Info("task reminder notifier started", "interval", n.interval)

	n.runCheck(ctx)

	for {
		select {
		case <-ticker.C:
			n.runCheck(ctx)
		case <-n.stopChan:
			slog.Info("task reminder notifier stopped")
			return
		case <-ctx.Done():
			slog.Info("task reminder notifier context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit. Safe to call more than once.
func (n *TaskReminderNotifier) Stop() {
	n.stopOnce.Do(func() { close(n.stopChan) })
}

// runCheck sends every due reminder and returns how many were delivered.
// Each failure is recorded before the next batch is read, so a full batch of
// failing tasks never hides the deliverable ones behind it.
func (n *TaskReminderNotifier) runCheck(ctx context.Context) int {
	now := n.now()
	retryBefore := now.Add(-reminderRetryDelay)

	sent := 0
	for {
		due, err := n.timelineRepo.ListDueReminders(ctx, now, retryBefore, reminderMaxAttempts, reminderBatchSize)
		if err != nil {
			slog.Error("task reminder notifier: failed to query due reminders", "error", err)
			return sent
		}
		if len(due) == 0 {
			return sent
		}

		slog.Info("task reminder notifier: reminders due", "count", len(due))

		settled := 0
		for _, r := range due {
			if ctx.Err() != nil {
				return sent
			}
			delivered, ok := n.deliver(ctx, r, now)
			if delivered {
				sent++
			}
			if ok {
				settled++
			}
		}
		// A short batch was the last one. A batch where no row changed state
		// would come back unchanged.
		if len(due) < reminderBatchSize || settled == 0 {
			return sent
		}
	}
}

// deliver sends one reminder and records the outcome. ok reports whether the
// task's delivery state was written, which takes it out of the current run.
func (n *TaskReminderNotifier) deliver(ctx context.Context, r repositories.DueReminder, now time.Time) (delivered, ok bool) {
	var sendErr error
	if r.UserEmail == "" {
		sendErr = errNoRecipient
	} else {
		sendErr = n.mailer.Send(ctx, reminderMessage(r, now))
	}

	if sendErr != nil {
		slog.Error("task reminder notifier: failed to send reminder",
			"task_id", r.TaskID, "error", sendErr)
		if err := n.timelineRepo.MarkReminderFailed(ctx, r.TaskID, now); err != nil {
			slog.Error("task reminder notifier: failed to record failed attempt",
				"task_id", r.TaskID, "error", err)
			return false, false
		}
		return false, true
	}
	telemetry.TaskRemindersSentTotal.Inc()

	if err := n.timelineRepo.MarkReminderSent(ctx, r.TaskID, now); err != nil {
		// The email went out; a failed mark means it may be sent again next run.
		slog.Error("task reminder notifier: failed to mark reminder sent",
			"task_id", r.TaskID, "error", err)
		return true, false
	}
	return true, true
}

func reminderMessage(r repositories.DueReminder, now time.Time) notify.Message {
	days := int(r.DueDate.Sub(now).Hours() / 24)
	if days < 0 {
		days = 0
	}
	date := r.DueDate.Format("2006-01-02")

	var subject string
	lines := []string{}
	if strings.EqualFold(r.Language, "KO") {
		subject = fmt.Sprintf("[AdmitAI] 마감 알림: %s", r.Label)
		lines = append(lines,
			fmt.Sprintf("%s님, 안녕하세요.", displayName(r.FirstName, "학생")),
			"",
			fmt.Sprintf("'%s' 마감일은 %s입니다 (%d일 남음).", r.Label, date, days),
			"지원 타임라인에서 진행 상황을 확인해 주세요.",
			"",
			"AdmitAI Korea 드림",
		)
	} else {
		subject = fmt.Sprintf("[AdmitAI] Reminder: %s", r.Label)
		lines = append(lines,
			fmt.Sprintf("Hello %s,", displayName(r.FirstName, "there")),
			"",
			fmt.Sprintf("'%s' is due on %s (%d day(s) remaining).", r.Label, date, days),
			"Check your application timeline to keep on track.",
			"",
			"The AdmitAI Korea team",
		)
	}
	return notify.Message{
		To:      []string{r.UserEmail},
		Subject: subject,
		Body:    strings.Join(lines, "\n"),
	}
}

func displayName(first, fallback string) string {
	if strings.TrimSpace(first) == "" {
		return fallback
	}
	return first
}
