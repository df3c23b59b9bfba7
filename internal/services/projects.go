package services

import (
	"context"
	"strings"
	"time"

	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/policy"
	"gorm.io/gorm"
)

type ProjectInput struct {
	Title       string
	Description string
	Course      string
	Deadline    *time.Time
}

type ProjectSummary struct {
	models.Project
	Role      models.Role `json:"role"`
	TaskCount int64       `json:"task_count"`
	DoneCount int64       `json:"done_count"`
}

type ProjectDetail struct {
	Project models.Project `json:"project"`
	Role    models.Role    `json:"role"`
	Owner   MemberView     `json:"owner"`
	Members []MemberView   `json:"members"`
	Mentors []MemberView   `json:"mentors"`
	Tasks   []models.Task  `json:"tasks"`
}

type MemberProgress struct {
	UserID    uint   `json:"user_id"`
	Name      string `json:"name"`
	Assigned  int64  `json:"assigned"`
	Completed int64  `json:"completed"`
}

type Progress struct {
	ProjectID  uint             `json:"project_id"`
	Total      int64            `json:"total"`
	Todo       int64            `json:"todo"`
	InProgress int64            `json:"in_progress"`
	Done       int64            `json:"done"`
	Percent    int              `json:"percent"`
	Members    []MemberProgress `json:"members"`
}

type DashboardStats struct {
	Projects            int64 `json:"projects"`
	OwnedProjects       int64 `json:"owned_projects"`
	TasksAssigned       int64 `json:"tasks_assigned"`
	TasksOpen           int64 `json:"tasks_open"`
	TasksDone           int64 `json:"tasks_done"`
	TasksDueSoon        int64 `json:"tasks_due_soon"`
	UnreadNotifications int64 `json:"unread_notifications"`
	PendingInvitations  int64 `json:"pending_invitations"`
}

type SearchResult struct {
	Projects []models.Project `json:"projects"`
	Tasks    []models.Task    `json:"tasks"`
}

type ProjectService interface {
	Create(ctx context.Context, ownerID uint, in ProjectInput) (*models.Project, error)
	List(ctx context.Context, userID uint) ([]ProjectSummary, error)
	Get(ctx context.Context, actorID, projectID uint) (*ProjectDetail, error)
	Update(ctx context.Context, actorID, projectID uint, in ProjectInput) (*models.Project, error)
	Delete(ctx context.Context, actorID, projectID uint) error
	Progress(ctx context.Context, actorID, projectID uint) (*Progress, error)
	Dashboard(ctx context.Context, userID uint) (*DashboardStats, error)
	Search(ctx context.Context, userID uint, query string) (*SearchResult, error)
}

type projectService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewProjectService(db *gorm.DB) ProjectService {
	return &projectService{db: db, now: time.Now}
}

func (s *projectService) Create(ctx context.Context, ownerID uint, in ProjectInput) (*models.Project, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("Project title is required")
	}

	project := models.Project{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Course:      strings.TrimSpace(in.Course),
		Deadline:    in.Deadline,
		OwnerID:     ownerID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		return tx.Create(&models.ProjectMembership{
			UserID:    ownerID,
			ProjectID: project.ID,
			Role:      models.RoleOwner,
		}).Error
	})
	if err != nil {
		return nil, apperr.Internal("failed to create project", err)
	}
	return &project, nil
}

func (s *projectService) List(ctx context.Context, userID uint) ([]ProjectSummary, error) {
	var memberships []models.ProjectMembership
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, apperr.Internal("failed to load memberships", err)
	}
	if len(memberships) == 0 {
		return []ProjectSummary{}, nil
	}

	roles := make(map[uint]models.Role, len(memberships))
	ids := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		roles[m.ProjectID] = m.Role
		ids = append(ids, m.ProjectID)
	}

	var projects []models.Project
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, apperr.Internal("failed to retrieve projects", err)
	}

	type countRow struct {
		ProjectID uint
		Status    string
		N         int64
	}
	var rows []countRow
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Select("project_id, status, COUNT(*) AS n").
		Where("project_id IN ?", ids).
		Group("project_id, status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Internal("failed to count tasks", err)
	}

	out := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		summary := ProjectSummary{Project: p, Role: roles[p.ID]}
		for _, r := range rows {
			if r.ProjectID != p.ID {
				continue
			}
			summary.TaskCount += r.N
			if r.Status == models.StatusDone {
				summary.DoneCount += r.N
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *projectService) Get(ctx context.Context, actorID, projectID uint) (*ProjectDetail, error) {
	project, memberships, err := authorize(ctx, s.db, actorID, projectID, policy.ViewProject)
	if err != nil {
		return nil, err
	}

	detail := &ProjectDetail{
		Project: *project,
		Role:    policy.RoleOf(actorID, *project, memberships),
		Members: []MemberView{},
		Mentors: []MemberView{},
	}
	for _, m := range memberships {
		view := MemberView{ID: m.UserID, Name: m.User.Name, Email: m.User.Email, Role: m.Role}
		switch m.Role {
		case models.RoleOwner:
			detail.Owner = view
			detail.Members = append(detail.Members, view)
		case models.RoleMember:
			detail.Members = append(detail.Members, view)
		case models.RoleMentor:
			detail.Mentors = append(detail.Mentors, view)
		}
	}

	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("position ASC, id ASC").Find(&detail.Tasks).Error; err != nil {
		return nil, apperr.Internal("failed to load tasks", err)
	}
	return detail, nil
}

func (s *projectService) Update(ctx context.Context, actorID, projectID uint, in ProjectInput) (*models.Project, error) {
	project, _, err := authorize(ctx, s.db, actorID, projectID, policy.EditProject)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("Project title is required")
	}
	project.Title = title
	project.Description = strings.TrimSpace(in.Description)
	project.Course = strings.TrimSpace(in.Course)
	project.Deadline = in.Deadline

	if err := s.db.WithContext(ctx).Save(project).Error; err != nil {
		return nil, apperr.Internal("failed to update project", err)
	}
	return project, nil
}

// Delete is only allowed once every task is Done. It removes everything
// that hangs off the project.
func (s *projectService) Delete(ctx context.Context, actorID, projectID uint) error {
	if _, _, err := authorize(ctx, s.db, actorID, projectID, policy.DeleteProject); err != nil {
		return err
	}

	var open int64
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("project_id = ? AND status <> ?", projectID, models.StatusDone).
		Count(&open).Error
	if err != nil {
		return apperr.Internal("failed to count tasks", err)
	}
	if open > 0 {
		return apperr.Conflict("All tasks must be completed before the project can be deleted")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&models.Task{}).Select("id").Where("project_id = ?", projectID)
		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{
			&models.Task{},
			&models.Invitation{},
			&models.MentorRequest{},
			&models.Notification{},
			&models.ChatMessage{},
			&models.ProjectMembership{},
		} {
			if err := tx.Where("project_id = ?", projectID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Project{}, projectID).Error
	})
	if err != nil {
		return apperr.Internal("failed to delete project", err)
	}
	return nil
}

func (s *projectService) Progress(ctx context.Context, actorID, projectID uint) (*Progress, error) {
	_, memberships, err := authorize(ctx, s.db, actorID, projectID, policy.ViewProject)
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&tasks).Error; err != nil {
		return nil, apperr.Internal("failed to load tasks", err)
	}

	progress := &Progress{ProjectID: projectID, Members: []MemberProgress{}}
	perMember := make(map[uint]*MemberProgress)
	for _, m := range memberships {
		if m.Role == models.RoleMentor {
			continue
		}
		mp := &MemberProgress{UserID: m.UserID, Name: m.User.Name}
		perMember[m.UserID] = mp
	}

	for _, t := range tasks {
		progress.Total++
		switch t.Status {
		case models.StatusTodo:
			progress.Todo++
		case models.StatusInProgress:
			progress.InProgress++
		case models.StatusDone:
			progress.Done++
		}
		if t.AssigneeID == nil {
			continue
		}
		if mp, ok := perMember[*t.AssigneeID]; ok {
			mp.Assigned++
			if t.Status == models.StatusDone {
				mp.Completed++
			}
		}
	}
	if progress.Total > 0 {
		progress.Percent = int(progress.Done * 100 / progress.Total)
	}
	for _, m := range memberships {
		if mp, ok := perMember[m.UserID]; ok {
			progress.Members = append(progress.Members, *mp)
		}
	}
	return progress, nil
}

func (s *projectService) Dashboard(ctx context.Context, userID uint) (*DashboardStats, error) {
	ids, err := projectIDsFor(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{Projects: int64(len(ids))}
	db := s.db.WithContext(ctx)
	now := s.now().UTC()

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&stats.OwnedProjects, db.Model(&models.Project{}).Where("owner_id = ?", userID)},
		{&stats.TasksAssigned, db.Model(&models.Task{}).Where("assignee_id = ?", userID)},
		{&stats.TasksOpen, db.Model(&models.Task{}).Where("assignee_id = ? AND status <> ?", userID, models.StatusDone)},
		{&stats.TasksDone, db.Model(&models.Task{}).Where("assignee_id = ? AND status = ?", userID, models.StatusDone)},
		{&stats.TasksDueSoon, db.Model(&models.Task{}).Where("assignee_id = ? AND status <> ? AND due_date >= ? AND due_date < ?",
			userID, models.StatusDone, now, now.Add(7*24*time.Hour))},
		{&stats.UnreadNotifications, db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false)},
		{&stats.PendingInvitations, db.Model(&models.Invitation{}).Where("invitee_id = ? AND status = ?", userID, models.InvitationPending)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, apperr.Internal("failed to compute dashboard", err)
		}
	}
	return stats, nil
}

func (s *projectService) Search(ctx context.Context, userID uint, query string) (*SearchResult, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, apperr.Validation("Search query is required")
	}

	result := &SearchResult{Projects: []models.Project{}, Tasks: []models.Task{}}
	ids, err := projectIDsFor(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return result, nil
	}

	like := "%" + q + "%"
	err = s.db.WithContext(ctx).
		Where("id IN ? AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", ids, like, like).
		Order("title ASC").Limit(25).
		Find(&result.Projects).Error
	if err != nil {
		return nil, apperr.Internal("failed to search projects", err)
	}
	err = s.db.WithContext(ctx).
		Where("project_id IN ? AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", ids, like, like).
		Order("title ASC").Limit(50).
		Find(&result.Tasks).Error
	if err != nil {
		return nil, apperr.Internal("failed to search tasks", err)
	}
	return result, nil
}
