package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/auth"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

type ProfileInput struct {
	Name  string
	Email string
}

type ChangePasswordInput struct {
	Current string
	New     string
	Confirm string
}

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Get(ctx context.Context, id uint) (*models.User, error)
	UpdateProfile(ctx context.Context, id uint, in ProfileInput) (*models.User, error)
	ChangePassword(ctx context.Context, id uint, in ChangePasswordInput) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password, confirm string) error
	Delete(ctx context.Context, id uint, password string) error
	ResolveIdentity(ctx context.Context, identity auth.Identity) (*models.User, error)
}

type userService struct {
	db       *gorm.DB
	mailer   notify.Mailer
	baseURL  string
	resetTTL time.Duration
	now      func() time.Time
	log      *zap.SugaredLogger
}

func NewUserService(db *gorm.DB, mailer notify.Mailer, baseURL string, resetTTL time.Duration, log *zap.Logger) UserService {
	if resetTTL <= 0 {
		resetTTL = 24 * time.Hour
	}
	return &userService{
		db:       db,
		mailer:   mailer,
		baseURL:  baseURL,
		resetTTL: resetTTL,
		now:      time.Now,
		log:      log.Sugar().With("component", "users"),
	}
}

func validatePassword(password, confirm string) error {
	if len(password) < auth.MinPasswordLength {
		return apperr.Validation(fmt.Sprintf("Password must be at least %d characters", auth.MinPasswordLength))
	}
	if confirm != "" && confirm != password {
		return apperr.Validation("Passwords do not match")
	}
	return nil
}

func (s *userService) emailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, apperr.Internal("failed to check email", err)
	}
	return count > 0, nil
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, apperr.Validation("Name and email are required")
	}
	if err := validatePassword(in.Password, in.Confirm); err != nil {
		return nil, err
	}

	taken, err := s.emailTaken(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Email already exists")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	user := models.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperr.Internal("failed to create user", err)
	}
	return &user, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load user", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	return &user, nil
}

func (s *userService) Get(ctx context.Context, id uint) (*models.User, error) {
	return loadUser(ctx, s.db, id)
}

func (s *userService) UpdateProfile(ctx context.Context, id uint, in ProfileInput) (*models.User, error) {
	user, err := loadUser(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name := strings.TrimSpace(in.Name); name != "" {
		updates["name"] = name
	}
	if email := normalizeEmail(in.Email); email != "" && email != user.Email {
		taken, err := s.emailTaken(ctx, email, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("Email already exists")
		}
		updates["email"] = email
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("No valid fields to update")
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, apperr.Internal("failed to update user", err)
	}
	return loadUser(ctx, s.db, id)
}

func (s *userService) ChangePassword(ctx context.Context, id uint, in ChangePasswordInput) error {
	user, err := loadUser(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, in.Current) {
		return apperr.Validation("Current password is incorrect")
	}
	if err := validatePassword(in.New, in.Confirm); err != nil {
		return err
	}
	return s.setPassword(ctx, user, in.New)
}

func (s *userService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}
	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"password_hash": hash,
		"reset_token":   nil,
		"reset_expires": nil,
	}).Error
	if err != nil {
		return apperr.Internal("failed to update password", err)
	}
	return nil
}

// ForgotPassword issues a reset token and mails the link. Unknown addresses
// succeed silently so the endpoint cannot be used to probe for accounts.
func (s *userService) ForgotPassword(ctx context.Context, email string) error {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Infow("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return apperr.Internal("failed to load user", err)
	}

	token := uuid.NewString()
	expires := s.now().UTC().Add(s.resetTTL)
	err = s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"reset_token":   token,
		"reset_expires": expires,
	}).Error
	if err != nil {
		return apperr.Internal("failed to store reset token", err)
	}

	if s.mailer == nil {
		s.log.Warnw("no mailer configured, reset link not sent", "user_id", user.ID)
		return nil
	}
	link := notify.AbsoluteLink(s.baseURL, "/reset-password/"+token)
	mail := notify.Mail{
		To:      user.Email,
		Subject: "Reset your TeamHub password",
		Body: fmt.Sprintf("Hi %s,\n\nUse the link below to choose a new password. It expires in %s.\n\n%s\n\nIf you did not ask for this, ignore this email.\n",
			user.Name, s.resetTTL, link),
		Kind: "password_reset",
	}
	if err := s.mailer.Send(ctx, mail); err != nil {
		return apperr.Upstream("failed to send reset email", err)
	}
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	if token == "" {
		return apperr.Validation("Password reset token is invalid or has expired")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("reset_token = ?", token).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Validation("Password reset token is invalid or has expired")
	}
	if err != nil {
		return apperr.Internal("failed to load user", err)
	}
	if user.ResetExpires == nil || s.now().After(*user.ResetExpires) {
		return apperr.Validation("Password reset token is invalid or has expired")
	}
	if err := validatePassword(password, confirm); err != nil {
		return err
	}
	return s.setPassword(ctx, &user, password)
}

// Delete removes the account and everything that only makes sense with it.
// Owners must delete their projects first.
func (s *userService) Delete(ctx context.Context, id uint, password string) error {
	user, err := loadUser(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return apperr.Validation("Incorrect password")
	}

	var owned int64
	if err := s.db.WithContext(ctx).Model(&models.Project{}).Where("owner_id = ?", id).Count(&owned).Error; err != nil {
		return apperr.Internal("failed to count projects", err)
	}
	if owned > 0 {
		return apperr.Conflict("Delete or hand over your projects before deleting your account")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			model interface{}
			where string
		}{
			{&models.Comment{}, "author_id = ?"},
			{&models.ProjectMembership{}, "user_id = ?"},
			{&models.Invitation{}, "invitee_id = ? OR inviter_id = ?"},
			{&models.MentorRequest{}, "mentor_id = ? OR requester_id = ?"},
			{&models.Notification{}, "user_id = ?"},
			{&models.PushToken{}, "user_id = ?"},
		}
		for _, step := range steps {
			args := []interface{}{id}
			if strings.Count(step.where, "?") == 2 {
				args = append(args, id)
			}
			if err := tx.Where(step.where, args...).Delete(step.model).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Task{}).Where("assignee_id = ?", id).Update("assignee_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return apperr.Internal("failed to delete account", err)
	}
	return nil
}

// ResolveIdentity maps a third-party identity onto a local account,
// linking by email or creating the account on first sight.
func (s *userService) ResolveIdentity(ctx context.Context, identity auth.Identity) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("external_id = ?", identity.ExternalID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal("failed to load user", err)
	}

	email := normalizeEmail(identity.Email)
	if email == "" {
		return nil, apperr.Unauthorized("Identity has no email address")
	}

	externalID := identity.ExternalID
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if err := s.db.WithContext(ctx).Model(&user).Update("external_id", externalID).Error; err != nil {
			return nil, apperr.Internal("failed to link identity", err)
		}
		user.ExternalID = &externalID
		return &user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.Internal("failed to load user", err)
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	hash, err := auth.HashPassword(auth.RandomPassword())
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}
	user = models.User{Name: name, Email: email, PasswordHash: hash, ExternalID: &externalID}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperr.Internal("failed to create user", err)
	}
	return &user, nil
}
