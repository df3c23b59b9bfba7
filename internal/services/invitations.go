package services

import (
	"context"
	"fmt"

	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/notify"
	"github.com/teamhub-dev/teamhub/internal/policy"
	"gorm.io/gorm"
)

type InvitationService interface {
	Invite(ctx context.Context, actorID, projectID uint, email string) (*models.Invitation, error)
	ListPending(ctx context.Context, userID uint) ([]models.Invitation, error)
	Respond(ctx context.Context, userID, invitationID uint, accept bool) (*models.Invitation, error)
}

type invitationService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewInvitationService(db *gorm.DB, notifier Notifier) InvitationService {
	return &invitationService{db: db, notifier: notifier}
}

// findInvitee resolves an email to a user who is not yet part of the project.
func findInvitee(ctx context.Context, db *gorm.DB, actorID uint, email string, memberships []models.ProjectMembership) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperr.Validation("Email is required")
	}
	var user models.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, dbErr(err, "No user with that email")
	}
	if user.ID == actorID {
		return nil, apperr.Validation("You cannot invite yourself")
	}
	if m := membershipOf(memberships, user.ID); m != nil {
		return nil, apperr.Conflict(fmt.Sprintf("%s is already part of this project", user.Name))
	}
	return &user, nil
}

func (s *invitationService) Invite(ctx context.Context, actorID, projectID uint, email string) (*models.Invitation, error) {
	project, memberships, err := authorize(ctx, s.db, actorID, projectID, policy.InviteMember)
	if err != nil {
		return nil, err
	}
	invitee, err := findInvitee(ctx, s.db, actorID, email, memberships)
	if err != nil {
		return nil, err
	}

	inv := models.Invitation{
		ProjectID: project.ID,
		InviterID: actorID,
		InviteeID: invitee.ID,
		Status:    models.InvitationPending,
	}
	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return nil, apperr.Internal("failed to create invitation", err)
	}

	s.notifier.Notify(ctx, notify.Request{
		RecipientID: invitee.ID,
		Type:        models.NotificationProjectInvitation,
		Message:     fmt.Sprintf("%s invited you to join '%s'", nameOf(memberships, actorID), project.Title),
		Link:        "/invitations",
		ProjectID:   uintPtr(project.ID),
		Meta:        map[string]any{"invitation_id": inv.ID},
	})
	return &inv, nil
}

func (s *invitationService) ListPending(ctx context.Context, userID uint) ([]models.Invitation, error) {
	invitations := []models.Invitation{}
	err := s.db.WithContext(ctx).
		Preload("Project").
		Preload("Inviter").
		Where("invitee_id = ? AND status = ?", userID, models.InvitationPending).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, apperr.Internal("failed to load invitations", err)
	}
	return invitations, nil
}

func (s *invitationService) Respond(ctx context.Context, userID, invitationID uint, accept bool) (*models.Invitation, error) {
	var inv models.Invitation
	if err := s.db.WithContext(ctx).First(&inv, invitationID).Error; err != nil {
		return nil, dbErr(err, "Invitation not found")
	}
	if inv.InviteeID != userID {
		return nil, apperr.Forbidden("This invitation is not addressed to you")
	}
	if inv.Status != models.InvitationPending {
		return nil, apperr.Conflict("Invitation has already been answered")
	}

	status := models.InvitationDeclined
	if accept {
		status = models.InvitationAccepted
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&inv).Update("status", status).Error; err != nil {
			return err
		}
		if !accept {
			return nil
		}
		return joinProject(tx, inv.ProjectID, userID, models.RoleMember)
	})
	if err != nil {
		return nil, apperr.Internal("failed to answer invitation", err)
	}
	inv.Status = status
	return &inv, nil
}

// joinProject adds a membership unless the user already has one.
func joinProject(tx *gorm.DB, projectID, userID uint, role models.Role) error {
	var count int64
	if err := tx.Model(&models.ProjectMembership{}).Where("project_id = ? AND user_id = ?", projectID, userID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return tx.Create(&models.ProjectMembership{ProjectID: projectID, UserID: userID, Role: role}).Error
}
