package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/notify"
	"github.com/teamhub-dev/teamhub/internal/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Notifier interface {
	Notify(ctx context.Context, req notify.Request) notify.Result
}

// Archiver keeps a copy of chat messages before they are swept.
type Archiver interface {
	ArchiveChat(ctx context.Context, room string, messages []models.ChatMessage) (string, error)
}

// DueDateJob reminds assignees about open tasks due on the next UTC calendar
// day. It keeps no record of what it sent, so a second run on the same day
// sends the reminders again.
type DueDateJob struct {
	db       *gorm.DB
	notifier Notifier
	now      func() time.Time
	log      *zap.SugaredLogger
}

func NewDueDateJob(db *gorm.DB, notifier Notifier, log *zap.Logger) *DueDateJob {
	return &DueDateJob{db: db, notifier: notifier, now: time.Now, log: log.Sugar().With("job", "due_dates")}
}

// TomorrowWindow returns [start of tomorrow, start of the day after) in UTC.
func TomorrowWindow(now time.Time) (time.Time, time.Time) {
	y, m, d := now.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return start, start.AddDate(0, 0, 1)
}

// Run sends one reminder per qualifying task and returns how many were stored.
func (j *DueDateJob) Run(ctx context.Context) (int, error) {
	start, end := TomorrowWindow(j.now())

	var tasks []models.Task
	err := j.db.WithContext(ctx).
		Where("due_date >= ? AND due_date < ?", start, end).
		Where("status <> ? AND assignee_id IS NOT NULL", models.StatusDone).
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return 0, fmt.Errorf("load due tasks: %w", err)
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	projectIDs := make([]uint, 0, len(tasks))
	for _, t := range tasks {
		projectIDs = append(projectIDs, t.ProjectID)
	}
	var projects []models.Project
	if err := j.db.WithContext(ctx).Where("id IN ?", projectIDs).Find(&projects).Error; err != nil {
		return 0, fmt.Errorf("load projects: %w", err)
	}
	titles := make(map[uint]string, len(projects))
	for _, p := range projects {
		titles[p.ID] = p.Title
	}

	sent := 0
	for _, t := range tasks {
		res := j.notifier.Notify(ctx, notify.Request{
			RecipientID: *t.AssigneeID,
			Type:        models.NotificationDueDateApproaching,
			Message:     fmt.Sprintf("'%s' in '%s' is due tomorrow", t.Title, titles[t.ProjectID]),
			Link:        fmt.Sprintf("/projects/%d/tasks/%d", t.ProjectID, t.ID),
			ProjectID:   &t.ProjectID,
			Meta:        map[string]any{"task_id": t.ID, "due_date": t.DueDate},
		})
		if res.StoreErr != nil {
			j.log.Warnw("failed to store reminder", "task_id", t.ID, "err", res.StoreErr)
			continue
		}
		sent++
	}
	j.log.Infow("due date reminders sent", "tasks", len(tasks), "stored", sent)
	return sent, nil
}

func (j *DueDateJob) Job(interval time.Duration) Job {
	return Job{Name: "due_date_reminders", Interval: interval, Run: func(ctx context.Context) error {
		_, err := j.Run(ctx)
		return err
	}}
}

// RetentionJob deletes global chat messages older than the window. Team
// rooms are kept.
type RetentionJob struct {
	db       *gorm.DB
	archiver Archiver
	window   time.Duration
	now      func() time.Time
	log      *zap.SugaredLogger
}

// NewRetentionJob builds the sweeper; archiver may be nil.
func NewRetentionJob(db *gorm.DB, archiver Archiver, window time.Duration, log *zap.Logger) *RetentionJob {
	return &RetentionJob{db: db, archiver: archiver, window: window, now: time.Now, log: log.Sugar().With("job", "chat_retention")}
}

// Run removes messages created strictly before now-window. A message stamped
// exactly at the cutoff survives.
func (j *RetentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.window)
	scope := j.db.WithContext(ctx).
		Where("room_type = ? AND created_at < ?", models.RoomTypeGlobal, cutoff)

	if j.archiver != nil {
		var batch []models.ChatMessage
		if err := scope.Session(&gorm.Session{}).Order("created_at ASC").Find(&batch).Error; err != nil {
			return 0, fmt.Errorf("load expired messages: %w", err)
		}
		if len(batch) > 0 {
			key, err := j.archiver.ArchiveChat(ctx, realtime.GlobalRoom, batch)
			if err != nil {
				j.log.Errorw("archive failed, deleting anyway", "messages", len(batch), "err", err)
			} else {
				j.log.Infow("archived expired messages", "messages", len(batch), "key", key)
			}
		}
	}

	res := scope.Session(&gorm.Session{}).Delete(&models.ChatMessage{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired messages: %w", res.Error)
	}
	j.log.Infow("swept global chat", "deleted", res.RowsAffected, "cutoff", cutoff)
	return res.RowsAffected, nil
}

func (j *RetentionJob) Job(interval time.Duration) Job {
	return Job{Name: "chat_retention", Interval: interval, Run: func(ctx context.Context) error {
		_, err := j.Run(ctx)
		return err
	}}
}
