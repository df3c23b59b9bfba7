package services

import (
	"context"
	"fmt"

	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/notify"
	"github.com/teamhub-dev/teamhub/internal/policy"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MentorService interface {
	Request(ctx context.Context, actorID, projectID uint, email string) (*models.MentorRequest, error)
	ListPending(ctx context.Context, userID uint) ([]models.MentorRequest, error)
	Respond(ctx context.Context, userID, requestID uint, accept bool) (*models.MentorRequest, error)
}

type mentorService struct {
	db       *gorm.DB
	notifier Notifier
	log      *zap.SugaredLogger
}

func NewMentorService(db *gorm.DB, notifier Notifier, log *zap.Logger) MentorService {
	return &mentorService{db: db, notifier: notifier, log: log.Sugar().With("component", "mentors")}
}

func (s *mentorService) Request(ctx context.Context, actorID, projectID uint, email string) (*models.MentorRequest, error) {
	project, memberships, err := authorize(ctx, s.db, actorID, projectID, policy.RequestMentor)
	if err != nil {
		return nil, err
	}
	mentor, err := findInvitee(ctx, s.db, actorID, email, memberships)
	if err != nil {
		return nil, err
	}

	req := models.MentorRequest{
		ProjectID:   project.ID,
		RequesterID: actorID,
		MentorID:    mentor.ID,
		Status:      models.InvitationPending,
	}
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, apperr.Internal("failed to create mentor request", err)
	}

	s.notifier.Notify(ctx, notify.Request{
		RecipientID: mentor.ID,
		Type:        models.NotificationMentorRequest,
		Message:     fmt.Sprintf("%s asked you to mentor '%s'", nameOf(memberships, actorID), project.Title),
		Link:        "/mentor-requests",
		ProjectID:   uintPtr(project.ID),
		Meta:        map[string]any{"request_id": req.ID},
	})
	return &req, nil
}

func (s *mentorService) ListPending(ctx context.Context, userID uint) ([]models.MentorRequest, error) {
	requests := []models.MentorRequest{}
	err := s.db.WithContext(ctx).
		Preload("Project").
		Preload("Requester").
		Where("mentor_id = ? AND status = ?", userID, models.InvitationPending).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, apperr.Internal("failed to load mentor requests", err)
	}
	return requests, nil
}

func (s *mentorService) Respond(ctx context.Context, userID, requestID uint, accept bool) (*models.MentorRequest, error) {
	var req models.MentorRequest
	if err := s.db.WithContext(ctx).Preload("Project").First(&req, requestID).Error; err != nil {
		return nil, dbErr(err, "Mentor request not found")
	}
	if req.MentorID != userID {
		return nil, apperr.Forbidden("This request is not addressed to you")
	}
	if req.Status != models.InvitationPending {
		return nil, apperr.Conflict("Mentor request has already been answered")
	}

	status := models.InvitationDeclined
	if accept {
		status = models.InvitationAccepted
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&req).Update("status", status).Error; err != nil {
			return err
		}
		if !accept {
			return nil
		}
		return joinProject(tx, req.ProjectID, userID, models.RoleMentor)
	})
	if err != nil {
		return nil, apperr.Internal("failed to answer mentor request", err)
	}
	req.Status = status

	if accept {
		name := "Your mentor"
		if mentor, err := loadUser(ctx, s.db, userID); err == nil {
			name = mentor.Name
		} else {
			s.log.Warnw("failed to load mentor", "user_id", userID, "err", err)
		}
		s.notifier.Notify(ctx, notify.Request{
			RecipientID: req.RequesterID,
			Type:        models.NotificationMentorAccepted,
			Message:     fmt.Sprintf("%s is now mentoring '%s'", name, req.Project.Title),
			Link:        projectLink(req.ProjectID),
			ProjectID:   uintPtr(req.ProjectID),
			Meta:        map[string]any{"request_id": req.ID},
		})
	}
	return &req, nil
}
