package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/auth"
	"github.com/teamhub-dev/teamhub/internal/middleware"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/monitors"
	"github.com/teamhub-dev/teamhub/internal/services"
	"github.com/teamhub-dev/teamhub/internal/types"
	"go.uber.org/zap"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) userResult(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	return m.userResult(m.Called(ctx, in))
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	return m.userResult(m.Called(ctx, email, password))
}

func (m *MockUserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return m.userResult(m.Called(ctx, id))
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id uint, in services.ProfileInput) (*models.User, error) {
	return m.userResult(m.Called(ctx, id, in))
}

func (m *MockUserService) ChangePassword(ctx context.Context, id uint, in services.ChangePasswordInput) error {
	return m.Called(ctx, id, in).Error(0)
}

func (m *MockUserService) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockUserService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	return m.Called(ctx, token, password, confirm).Error(0)
}

func (m *MockUserService) Delete(ctx context.Context, id uint, password string) error {
	return m.Called(ctx, id, password).Error(0)
}

func (m *MockUserService) ResolveIdentity(ctx context.Context, identity auth.Identity) (*models.User, error) {
	return m.userResult(m.Called(ctx, identity))
}

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) taskResult(args mock.Arguments) (*models.Task, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskService) Create(ctx context.Context, actorID, projectID uint, in services.TaskInput) (*models.Task, error) {
	return m.taskResult(m.Called(ctx, actorID, projectID, in))
}

func (m *MockTaskService) List(ctx context.Context, actorID, projectID uint) ([]models.Task, error) {
	args := m.Called(ctx, actorID, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *MockTaskService) Get(ctx context.Context, actorID, taskID uint) (*models.Task, error) {
	return m.taskResult(m.Called(ctx, actorID, taskID))
}

func (m *MockTaskService) Update(ctx context.Context, actorID, taskID uint, in services.TaskUpdate) (*models.Task, error) {
	return m.taskResult(m.Called(ctx, actorID, taskID, in))
}

func (m *MockTaskService) UpdateStatus(ctx context.Context, actorID, taskID uint, status string) (*models.Task, error) {
	return m.taskResult(m.Called(ctx, actorID, taskID, status))
}

func (m *MockTaskService) Delete(ctx context.Context, actorID, taskID uint) error {
	return m.Called(ctx, actorID, taskID).Error(0)
}

func (m *MockTaskService) AddComment(ctx context.Context, actorID, taskID uint, text string) (*models.Comment, error) {
	args := m.Called(ctx, actorID, taskID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

type MockNotificationStore struct {
	mock.Mock
}

func (m *MockNotificationStore) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockNotificationStore) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationStore) MarkRead(ctx context.Context, userID, notificationID uint) (*models.Notification, error) {
	args := m.Called(ctx, userID, notificationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationStore) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type failingProbe struct{}

func (failingProbe) Name() string { return "redis" }
func (failingProbe) Check(ctx context.Context) error { return errors.New("connection refused") }

type okProbe struct{}

func (okProbe) Name() string { return "database" }
func (okProbe) Check(ctx context.Context) error { return nil }

// withUser stands in for the auth middleware.
func withUser(id uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(types.ContextUserKey, middleware.AuthenticatedUser{ID: id, Name: "Ada", Email: "ada@example.com"})
		c.Next()
	}
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func perform(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		raw, _ := sonic.Marshal(body)
		buf.Write(raw)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func ada() *models.User {
	u := &models.User{Name: "Ada", Email: "ada@example.com"}
	u.ID = 7
	return u
}

func TestAuthHandler_RegisterSetsCookie(t *testing.T) {
	users := new(MockUserService)
	users.On("Register", mock.Anything, services.RegisterInput{
		Name: "Ada", Email: "ada@example.com", Password: "secret1", Confirm: "secret1",
	}).Return(ada(), nil)

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	h := NewAuthHandler(users, tokens, CookieConfig{Name: "teamhub_token"}, zap.NewNop())
	r := newEngine()
	r.POST("/register", h.Register)

	w := perform(r, http.MethodPost, "/register", gin.H{
		"name": "Ada", "email": "ada@example.com", "password": "secret1", "confirm_password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	claims, err := tokens.VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "teamhub_token", cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)
}

func TestAuthHandler_LoginErrors(t *testing.T) {
	users := new(MockUserService)
	users.On("Authenticate", mock.Anything, "ada@example.com", "wrong").
		Return(nil, apperr.Unauthorized("Invalid email or password"))

	h := NewAuthHandler(users, auth.NewTokenManager("s", time.Hour), CookieConfig{}, zap.NewNop())
	r := newEngine()
	r.POST("/login", h.Login)

	w := perform(r, http.MethodPost, "/login", gin.H{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decode(t, w)["error"])
	assert.Empty(t, w.Result().Cookies())

	w = perform(r, http.MethodPost, "/login", gin.H{"email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	users.AssertNumberOfCalls(t, "Authenticate", 1)
}

func TestAuthHandler_MeRequiresUser(t *testing.T) {
	h := NewAuthHandler(new(MockUserService), auth.NewTokenManager("s", time.Hour), CookieConfig{}, zap.NewNop())
	r := newEngine()
	r.GET("/me", h.Me)
	r.GET("/me-authed", withUser(7), h.Me)

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/me", nil).Code)

	w := perform(r, http.MethodGet, "/me-authed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
}

func TestAuthHandler_DeleteMeClearsCookie(t *testing.T) {
	users := new(MockUserService)
	users.On("Delete", mock.Anything, uint(7), "secret1").Return(nil)

	h := NewAuthHandler(users, auth.NewTokenManager("s", time.Hour), CookieConfig{}, zap.NewNop())
	r := newEngine()
	r.DELETE("/me", withUser(7), h.DeleteMe)

	w := perform(r, http.MethodDelete, "/me", gin.H{"password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, types.DefaultCookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)

	w = perform(r, http.MethodDelete, "/me", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_UpdateClearsFields(t *testing.T) {
	tasks := new(MockTaskService)
	updated := &models.Task{Title: "Report", Status: models.StatusTodo}
	tasks.On("Update", mock.Anything, uint(7), uint(3), mock.MatchedBy(func(u services.TaskUpdate) bool {
		return u.ClearAssignee && u.AssigneeID == nil && u.ClearDueDate && u.DueDate == nil &&
			u.Title != nil && *u.Title == "Report"
	})).Return(updated, nil)

	h := NewTaskHandler(tasks, zap.NewNop())
	r := newEngine()
	r.PATCH("/tasks/:task_id", withUser(7), h.UpdateTask)

	w := perform(r, http.MethodPatch, "/tasks/3", gin.H{"title": "Report", "assignee_id": 0, "due_date": ""})
	require.Equal(t, http.StatusOK, w.Code)
	tasks.AssertExpectations(t)
}

func TestTaskHandler_UpdateParsesDueDate(t *testing.T) {
	tasks := new(MockTaskService)
	want := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	tasks.On("Update", mock.Anything, uint(7), uint(3), mock.MatchedBy(func(u services.TaskUpdate) bool {
		return u.DueDate != nil && u.DueDate.Equal(want) && !u.ClearDueDate &&
			u.AssigneeID != nil && *u.AssigneeID == 9
	})).Return(&models.Task{}, nil)

	h := NewTaskHandler(tasks, zap.NewNop())
	r := newEngine()
	r.PATCH("/tasks/:task_id", withUser(7), h.UpdateTask)

	w := perform(r, http.MethodPatch, "/tasks/3", gin.H{"due_date": "2025-05-02", "assignee_id": 9})
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodPatch, "/tasks/3", gin.H{"due_date": "next week"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	tasks.AssertNumberOfCalls(t, "Update", 1)
}

func TestTaskHandler_ErrorMapping(t *testing.T) {
	tasks := new(MockTaskService)
	tasks.On("Get", mock.Anything, uint(7), uint(4)).Return(nil, apperr.Forbidden("You are not a participant in this project"))
	tasks.On("Get", mock.Anything, uint(7), uint(5)).Return(nil, apperr.NotFound("Task not found"))
	tasks.On("Get", mock.Anything, uint(7), uint(6)).Return(nil, apperr.Internal("failed to load task", errors.New("disk on fire")))

	h := NewTaskHandler(tasks, zap.NewNop())
	r := newEngine()
	r.GET("/tasks/:task_id", withUser(7), h.GetTask)

	tests := []struct {
		path   string
		status int
		msg    string
	}{
		{"/tasks/4", http.StatusForbidden, "You are not a participant in this project"},
		{"/tasks/5", http.StatusNotFound, "Task not found"},
		{"/tasks/6", http.StatusInternalServerError, "Internal server error"},
		{"/tasks/abc", http.StatusBadRequest, "Invalid task_id"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := perform(r, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, decode(t, w)["error"])
		})
	}
}

func TestTaskHandler_Complete(t *testing.T) {
	tasks := new(MockTaskService)
	tasks.On("UpdateStatus", mock.Anything, uint(7), uint(3), models.StatusDone).
		Return(&models.Task{Status: models.StatusDone}, nil)

	h := NewTaskHandler(tasks, zap.NewNop())
	r := newEngine()
	r.POST("/tasks/:task_id/complete", withUser(7), h.CompleteTask)

	w := perform(r, http.MethodPost, "/tasks/3/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusDone, decode(t, w)["status"])
}

func TestInvitationHandler_RespondRequiresAccept(t *testing.T) {
	h := NewInvitationHandler(nil, nil, zap.NewNop())
	r := newEngine()
	r.POST("/invitations/:invitation_id/respond", withUser(7), h.RespondInvitation)

	w := perform(r, http.MethodPost, "/invitations/1/respond", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationHandler(t *testing.T) {
	store := new(MockNotificationStore)
	store.On("List", mock.Anything, uint(7), true, types.DefaultPageLimit).
		Return([]models.Notification{{Message: "hi", Type: models.NotificationTaskAssigned}}, nil)
	store.On("UnreadCount", mock.Anything, uint(7)).Return(int64(3), nil)
	store.On("MarkRead", mock.Anything, uint(7), uint(12)).Return(nil, apperr.Forbidden("This notification belongs to another user"))
	store.On("MarkAllRead", mock.Anything, uint(7)).Return(int64(2), nil)

	h := NewNotificationHandler(store, zap.NewNop())
	r := newEngine()
	g := r.Group("", withUser(7))
	g.GET("/notifications", h.List)
	g.GET("/notifications/unread-count", h.UnreadCount)
	g.PUT("/notifications/read-all", h.MarkAllRead)
	g.PUT("/notifications/:notification_id/read", h.MarkRead)

	w := perform(r, http.MethodGet, "/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"hi"`)

	w = perform(r, http.MethodGet, "/notifications/unread-count", nil)
	assert.EqualValues(t, 3, decode(t, w)["count"])

	w = perform(r, http.MethodPut, "/notifications/12/read", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, http.MethodPut, "/notifications/read-all", nil)
	assert.EqualValues(t, 2, decode(t, w)["updated"])
	store.AssertExpectations(t)
}

func TestHealthCheck(t *testing.T) {
	r := newEngine()
	r.GET("/ok", NewHealthHandler(zap.NewNop(), okProbe{}).HealthCheck)
	r.GET("/degraded", NewHealthHandler(zap.NewNop(), okProbe{}, failingProbe{}).HealthCheck)

	w := perform(r, http.MethodGet, "/ok", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = perform(r, http.MethodGet, "/degraded", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"database": monitors.StatusOK, "redis": monitors.StatusUnavailable}, body["checks"])
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2025-05-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), *d)

	d, err = parseDate("2025-05-02T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC), *d)

	_, err = parseDate("02/05/2025")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	d, err = optionalDate("  ")
	assert.NoError(t, err)
	assert.Nil(t, d)
}
