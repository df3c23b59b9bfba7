package policy

import (
	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/models"
)

type Action string

const (
	ViewProject      Action = "view_project"
	EditProject      Action = "edit_project"
	DeleteProject    Action = "delete_project"
	InviteMember     Action = "invite_member"
	RequestMentor    Action = "request_mentor"
	CreateTask       Action = "create_task"
	UpdateTask       Action = "update_task"
	UpdateTaskStatus Action = "update_task_status"
	DeleteTask       Action = "delete_task"
	CommentTask      Action = "comment_task"
	ChatProject      Action = "chat_project"
)

var grants = map[models.Role]map[Action]bool{
	models.RoleMember: {
		ViewProject:      true,
		UpdateTask:       true,
		UpdateTaskStatus: true,
		CommentTask:      true,
		ChatProject:      true,
	},
	models.RoleMentor: {
		ViewProject: true,
		CommentTask: true,
		ChatProject: true,
	},
}

// RoleOf returns the actor's role in the project, or "" for outsiders.
func RoleOf(actorID uint, project models.Project, memberships []models.ProjectMembership) models.Role {
	if actorID != 0 && project.OwnerID == actorID {
		return models.RoleOwner
	}
	for _, m := range memberships {
		if m.UserID == actorID && m.ProjectID == project.ID {
			return m.Role
		}
	}
	return ""
}

func Allowed(role models.Role, action Action) bool {
	if role == models.RoleOwner {
		return true
	}
	return grants[role][action]
}

// Evaluate is the single access decision for project-scoped operations.
func Evaluate(actorID uint, project models.Project, memberships []models.ProjectMembership, action Action) error {
	role := RoleOf(actorID, project, memberships)
	if role == "" {
		return apperr.Forbidden("You are not a member of this project")
	}
	if !Allowed(role, action) {
		return apperr.Forbidden("Only the project owner can do that")
	}
	return nil
}
