package services

import (
	"context"
	"strings"

	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PushTokenService interface {
	Register(ctx context.Context, userID uint, token, platform string) (*models.PushToken, error)
	Remove(ctx context.Context, userID uint) error
}

type pushTokenService struct {
	db *gorm.DB
}

func NewPushTokenService(db *gorm.DB) PushTokenService {
	return &pushTokenService{db: db}
}

// Register stores the device token, replacing any earlier one for the user.
func (s *pushTokenService) Register(ctx context.Context, userID uint, token, platform string) (*models.PushToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Validation("Push token is required")
	}

	pt := models.PushToken{UserID: userID, Token: token, Platform: strings.TrimSpace(platform)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "platform", "updated_at"}),
	}).Create(&pt).Error
	if err != nil {
		return nil, apperr.Internal("failed to save push token", err)
	}
	return &pt, nil
}

func (s *pushTokenService) Remove(ctx context.Context, userID uint) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PushToken{}).Error; err != nil {
		return apperr.Internal("failed to remove push token", err)
	}
	return nil
}
