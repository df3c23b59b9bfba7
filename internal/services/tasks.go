package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/notify"
	"github.com/teamhub-dev/teamhub/internal/policy"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TaskInput struct {
	Title       string
	Description string
	AssigneeID  *uint
	DueDate     *time.Time
	Status      string
}

// TaskUpdate carries only the fields being changed.
type TaskUpdate struct {
	Title         *string
	Description   *string
	AssigneeID    *uint
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
	Status        *string
	Position      *int
}

type TaskService interface {
	Create(ctx context.Context, actorID, projectID uint, in TaskInput) (*models.Task, error)
	List(ctx context.Context, actorID, projectID uint) ([]models.Task, error)
	Get(ctx context.Context, actorID, taskID uint) (*models.Task, error)
	Update(ctx context.Context, actorID, taskID uint, in TaskUpdate) (*models.Task, error)
	UpdateStatus(ctx context.Context, actorID, taskID uint, status string) (*models.Task, error)
	Delete(ctx context.Context, actorID, taskID uint) error
	AddComment(ctx context.Context, actorID, taskID uint, text string) (*models.Comment, error)
}

type taskService struct {
	db       *gorm.DB
	notifier Notifier
	log      *zap.SugaredLogger
}

func NewTaskService(db *gorm.DB, notifier Notifier, log *zap.Logger) TaskService {
	return &taskService{db: db, notifier: notifier, log: log.Sugar().With("component", "tasks")}
}

func (s *taskService) loadTask(ctx context.Context, taskID uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, dbErr(err, "Task not found")
	}
	return &task, nil
}

func checkAssignee(memberships []models.ProjectMembership, assigneeID *uint) error {
	if assigneeID == nil {
		return nil
	}
	m := membershipOf(memberships, *assigneeID)
	if m == nil || m.Role == models.RoleMentor {
		return apperr.Validation("Assignee must be a member of the project")
	}
	return nil
}

func (s *taskService) Create(ctx context.Context, actorID, projectID uint, in TaskInput) (*models.Task, error) {
	project, memberships, err := authorize(ctx, s.db, actorID, projectID, policy.CreateTask)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("Task title is required")
	}
	status := models.StatusTodo
	if in.Status != "" {
		if status = models.NormalizeTaskStatus(in.Status); status == "" {
			return nil, apperr.Validation("Invalid status")
		}
	}
	if err := checkAssignee(memberships, in.AssigneeID); err != nil {
		return nil, err
	}

	var last struct{ Max *int }
	if err := s.db.WithContext(ctx).Model(&models.Task{}).Select("MAX(position) AS max").Where("project_id = ?", projectID).Scan(&last).Error; err != nil {
		return nil, apperr.Internal("failed to compute task position", err)
	}
	position := 0
	if last.Max != nil {
		position = *last.Max + 1
	}

	task := models.Task{
		ProjectID:   projectID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		AssigneeID:  in.AssigneeID,
		Status:      status,
		DueDate:     in.DueDate,
		Position:    position,
		CreatedByID: actorID,
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, apperr.Internal("failed to create task", err)
	}

	if task.AssigneeID != nil && *task.AssigneeID != actorID {
		s.notifyAssigned(ctx, actorID, project, &task)
	}
	return &task, nil
}

func (s *taskService) List(ctx context.Context, actorID, projectID uint) ([]models.Task, error) {
	if _, _, err := authorize(ctx, s.db, actorID, projectID, policy.ViewProject); err != nil {
		return nil, err
	}
	tasks := []models.Task{}
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("position ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, apperr.Internal("failed to load tasks", err)
	}
	return tasks, nil
}

func (s *taskService) Get(ctx context.Context, actorID, taskID uint) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, _, err := authorize(ctx, s.db, actorID, task.ProjectID, policy.ViewProject); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Comments.Author").
		First(task, task.ID).Error
	if err != nil {
		return nil, apperr.Internal("failed to load comments", err)
	}
	return task, nil
}

func (s *taskService) Update(ctx context.Context, actorID, taskID uint, in TaskUpdate) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	action := policy.UpdateTask
	if in.Title == nil && in.Description == nil && in.AssigneeID == nil && !in.ClearAssignee &&
		in.DueDate == nil && !in.ClearDueDate && in.Position == nil {
		action = policy.UpdateTaskStatus
	}
	project, memberships, err := authorize(ctx, s.db, actorID, task.ProjectID, action)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.Validation("Task title is required")
		}
		updates["title"] = title
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}

	assigneeChanged := false
	switch {
	case in.ClearAssignee:
		updates["assignee_id"] = nil
	case in.AssigneeID != nil:
		if err := checkAssignee(memberships, in.AssigneeID); err != nil {
			return nil, err
		}
		assigneeChanged = task.AssigneeID == nil || *task.AssigneeID != *in.AssigneeID
		updates["assignee_id"] = *in.AssigneeID
	}

	switch {
	case in.ClearDueDate:
		updates["due_date"] = nil
	case in.DueDate != nil:
		updates["due_date"] = *in.DueDate
	}
	if in.Position != nil {
		updates["position"] = *in.Position
	}

	previousStatus := task.Status
	if in.Status != nil {
		status := models.NormalizeTaskStatus(*in.Status)
		if status == "" {
			return nil, apperr.Validation("Invalid status")
		}
		updates["status"] = status
	}

	if len(updates) == 0 {
		return nil, apperr.Validation("No valid fields to update")
	}

	if err := s.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		return nil, apperr.Internal("failed to update task", err)
	}
	task, err = s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if assigneeChanged && *task.AssigneeID != actorID {
		s.notifyAssigned(ctx, actorID, project, task)
	}
	if previousStatus != models.StatusDone && task.Status == models.StatusDone && actorID != project.OwnerID {
		s.notifyCompleted(ctx, actorID, project, task)
	}
	return task, nil
}

func (s *taskService) UpdateStatus(ctx context.Context, actorID, taskID uint, status string) (*models.Task, error) {
	return s.Update(ctx, actorID, taskID, TaskUpdate{Status: &status})
}

func (s *taskService) Delete(ctx context.Context, actorID, taskID uint) error {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if _, _, err := authorize(ctx, s.db, actorID, task.ProjectID, policy.DeleteTask); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(task).Error
	})
	if err != nil {
		return apperr.Internal("failed to delete task", err)
	}
	return nil
}

func (s *taskService) AddComment(ctx context.Context, actorID, taskID uint, text string) (*models.Comment, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	project, memberships, err := authorize(ctx, s.db, actorID, task.ProjectID, policy.CommentTask)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("Comment text is required")
	}

	comment := models.Comment{TaskID: task.ID, AuthorID: actorID, Text: text}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, apperr.Internal("failed to add comment", err)
	}
	if err := s.db.WithContext(ctx).Preload("Author").First(&comment, comment.ID).Error; err != nil {
		return nil, apperr.Internal("failed to load comment", err)
	}

	for _, userID := range ResolveMentions(text, memberships) {
		if userID == actorID {
			continue
		}
		s.notifier.Notify(ctx, notify.Request{
			RecipientID: userID,
			Type:        models.NotificationUserMentioned,
			Message:     fmt.Sprintf("%s mentioned you on '%s': %s", comment.Author.Name, task.Title, truncate(text, 120)),
			Link:        taskLink(project.ID, task.ID),
			ProjectID:   uintPtr(project.ID),
			Meta:        map[string]any{"task_id": task.ID, "comment_id": comment.ID},
		})
	}
	return &comment, nil
}

func (s *taskService) actorName(ctx context.Context, actorID uint) string {
	user, err := loadUser(ctx, s.db, actorID)
	if err != nil {
		s.log.Warnw("failed to load actor for notification", "user_id", actorID, "err", err)
		return "Someone"
	}
	return user.Name
}

func (s *taskService) notifyAssigned(ctx context.Context, actorID uint, project *models.Project, task *models.Task) {
	s.notifier.Notify(ctx, notify.Request{
		RecipientID: *task.AssigneeID,
		Type:        models.NotificationTaskAssigned,
		Message:     fmt.Sprintf("%s assigned you '%s' in '%s'", s.actorName(ctx, actorID), task.Title, project.Title),
		Link:        taskLink(project.ID, task.ID),
		ProjectID:   uintPtr(project.ID),
		Meta:        map[string]any{"task_id": task.ID},
	})
}

func (s *taskService) notifyCompleted(ctx context.Context, actorID uint, project *models.Project, task *models.Task) {
	s.notifier.Notify(ctx, notify.Request{
		RecipientID: project.OwnerID,
		Type:        models.NotificationTaskCompleted,
		Message:     fmt.Sprintf("%s completed '%s' in '%s'", s.actorName(ctx, actorID), task.Title, project.Title),
		Link:        taskLink(project.ID, task.ID),
		ProjectID:   uintPtr(project.ID),
		Meta:        map[string]any{"task_id": task.ID, "task_title": task.Title, "project_title": project.Title},
	})
}
