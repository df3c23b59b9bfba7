package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/auth"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/notify"
	"go.uber.org/zap"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, mail notify.Mail) error {
	return m.Called(ctx, mail).Error(0)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := NewUserService(f.db, nil, "", 0, zap.NewNop())

	u, err := users.Register(ctx, RegisterInput{Name: "Ada", Email: " Ada@Example.com ", Password: "secret1", Confirm: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	_, err = users.Register(ctx, RegisterInput{Name: "Ada 2", Email: "ada@example.com", Password: "secret1"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = users.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "short"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = users.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "secret1", Confirm: "secret2"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	got, err := users.Authenticate(ctx, "ADA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = users.Authenticate(ctx, "ada@example.com", "wrong")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = users.Authenticate(ctx, "nobody@example.com", "secret1")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestProfileAndPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := NewUserService(f.db, nil, "", 0, zap.NewNop())

	ada, err := users.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = users.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = users.UpdateProfile(ctx, ada.ID, ProfileInput{Email: "bob@example.com"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	updated, err := users.UpdateProfile(ctx, ada.ID, ProfileInput{Name: "Ada L."})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)

	err = users.ChangePassword(ctx, ada.ID, ChangePasswordInput{Current: "nope", New: "another1", Confirm: "another1"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	require.NoError(t, users.ChangePassword(ctx, ada.ID, ChangePasswordInput{Current: "secret1", New: "another1", Confirm: "another1"}))

	_, err = users.Authenticate(ctx, "ada@example.com", "another1")
	assert.NoError(t, err)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var sent notify.Mail
	mailer := new(MockMailer)
	mailer.On("Send", mock.Anything, mock.AnythingOfType("notify.Mail")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(notify.Mail) }).
		Return(nil).Once()

	users := NewUserService(f.db, mailer, "https://app.example", time.Hour, zap.NewNop())
	ada, err := users.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, users.ForgotPassword(ctx, "nobody@example.com"))
	require.NoError(t, users.ForgotPassword(ctx, "ada@example.com"))
	mailer.AssertExpectations(t)
	assert.Equal(t, "ada@example.com", sent.To)

	var stored models.User
	require.NoError(t, f.db.First(&stored, ada.ID).Error)
	require.NotNil(t, stored.ResetToken)
	assert.True(t, strings.Contains(sent.Body, "https://app.example/reset-password/"+*stored.ResetToken))

	err = users.ResetPassword(ctx, "bogus", "newpass1", "newpass1")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, users.ResetPassword(ctx, *stored.ResetToken, "newpass1", "newpass1"))
	_, err = users.Authenticate(ctx, "ada@example.com", "newpass1")
	assert.NoError(t, err)

	err = users.ResetPassword(ctx, *stored.ResetToken, "again123", "again123")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestResetPassword_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewUserService(f.db, nil, "", time.Hour, zap.NewNop()).(*userService)

	ada, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "ada@example.com"))

	var stored models.User
	require.NoError(t, f.db.First(&stored, ada.ID).Error)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	err = svc.ResetPassword(ctx, *stored.ResetToken, "newpass1", "newpass1")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := NewUserService(f.db, nil, "", 0, zap.NewNop())

	ada, err := users.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	bob, err := users.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)

	project := f.project(t, *ada, "Capstone")
	f.addMember(t, project.ID, *bob, models.RoleMember)
	_, err = f.tasks.Create(ctx, ada.ID, project.ID, TaskInput{Title: "t", AssigneeID: &bob.ID})
	require.NoError(t, err)

	assert.True(t, apperr.Is(users.Delete(ctx, ada.ID, "secret1"), apperr.KindConflict))
	assert.True(t, apperr.Is(users.Delete(ctx, bob.ID, "wrong"), apperr.KindValidation))

	require.NoError(t, users.Delete(ctx, bob.ID, "secret1"))

	var task models.Task
	require.NoError(t, f.db.Where("project_id = ?", project.ID).First(&task).Error)
	assert.Nil(t, task.AssigneeID)

	var count int64
	require.NoError(t, f.db.Model(&models.Notification{}).Where("user_id = ?", bob.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestResolveIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := NewUserService(f.db, nil, "", 0, zap.NewNop())

	existing, err := users.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	linked, err := users.ResolveIdentity(ctx, auth.Identity{ExternalID: "ext-1", Email: "ADA@example.com"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)

	again, err := users.ResolveIdentity(ctx, auth.Identity{ExternalID: "ext-1"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, again.ID)

	created, err := users.ResolveIdentity(ctx, auth.Identity{ExternalID: "ext-2", Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "new", created.Name)

	_, err = users.ResolveIdentity(ctx, auth.Identity{ExternalID: "ext-3"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestPushTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.user(t, "Ada", "ada@example.com")
	svc := NewPushTokenService(f.db)

	_, err := svc.Register(ctx, ada.ID, "", "ios")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Register(ctx, ada.ID, "ExponentPushToken[a]", "ios")
	require.NoError(t, err)
	_, err = svc.Register(ctx, ada.ID, "ExponentPushToken[b]", "android")
	require.NoError(t, err)

	var tokens []models.PushToken
	require.NoError(t, f.db.Where("user_id = ?", ada.ID).Find(&tokens).Error)
	require.Len(t, tokens, 1)
	assert.Equal(t, "ExponentPushToken[b]", tokens[0].Token)
	assert.Equal(t, "android", tokens[0].Platform)

	require.NoError(t, svc.Remove(ctx, ada.ID))
	require.NoError(t, f.db.Where("user_id = ?", ada.ID).Find(&tokens).Error)
	assert.Empty(t, tokens)
}
