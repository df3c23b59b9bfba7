package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/notify"
	"github.com/teamhub-dev/teamhub/internal/policy"
	"gorm.io/gorm"
)

// Notifier is the notification fan-out used by every service.
type Notifier interface {
	Notify(ctx context.Context, req notify.Request) notify.Result
}

type MemberView struct {
	ID    uint        `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

func projectLink(projectID uint) string {
	return fmt.Sprintf("/projects/%d", projectID)
}

func taskLink(projectID, taskID uint) string {
	return fmt.Sprintf("/projects/%d/tasks/%d", projectID, taskID)
}

func uintPtr(v uint) *uint { return &v }

func dbErr(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Internal(notFound, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func loadUser(ctx context.Context, db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, dbErr(err, "User not found")
	}
	return &user, nil
}

func loadProject(ctx context.Context, db *gorm.DB, projectID uint) (*models.Project, []models.ProjectMembership, error) {
	var project models.Project
	if err := db.WithContext(ctx).First(&project, projectID).Error; err != nil {
		return nil, nil, dbErr(err, "Project not found")
	}

	var memberships []models.ProjectMembership
	if err := db.WithContext(ctx).Preload("User").Where("project_id = ?", projectID).Find(&memberships).Error; err != nil {
		return nil, nil, apperr.Internal("failed to load memberships", err)
	}
	return &project, memberships, nil
}

// authorize loads the project and applies the access policy for the action.
func authorize(ctx context.Context, db *gorm.DB, actorID, projectID uint, action policy.Action) (*models.Project, []models.ProjectMembership, error) {
	project, memberships, err := loadProject(ctx, db, projectID)
	if err != nil {
		return nil, nil, err
	}
	if err := policy.Evaluate(actorID, *project, memberships, action); err != nil {
		return nil, nil, err
	}
	return project, memberships, nil
}

// projectIDsFor returns every project the user owns, works on or mentors.
func projectIDsFor(ctx context.Context, db *gorm.DB, userID uint) ([]uint, error) {
	var ids []uint
	err := db.WithContext(ctx).Model(&models.ProjectMembership{}).
		Where("user_id = ?", userID).
		Pluck("project_id", &ids).Error
	if err != nil {
		return nil, apperr.Internal("failed to load memberships", err)
	}
	return ids, nil
}

func membershipOf(memberships []models.ProjectMembership, userID uint) *models.ProjectMembership {
	for i := range memberships {
		if memberships[i].UserID == userID {
			return &memberships[i]
		}
	}
	return nil
}

func nameOf(memberships []models.ProjectMembership, userID uint) string {
	if m := membershipOf(memberships, userID); m != nil && m.User.Name != "" {
		return m.User.Name
	}
	return "Someone"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
