package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/teamhub-dev/teamhub/db"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/notify"
	"github.com/teamhub-dev/teamhub/internal/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recordingNotifier stores notifications through the real notifier and keeps
// every request for assertions.
type recordingNotifier struct {
	inner *notify.Notifier
	mu    sync.Mutex
	reqs  []notify.Request
}

func (r *recordingNotifier) Notify(ctx context.Context, req notify.Request) notify.Result {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	return r.inner.Notify(ctx, req)
}

func (r *recordingNotifier) ofType(typ string) []notify.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Request
	for _, req := range r.reqs {
		if req.Type == typ {
			out = append(out, req)
		}
	}
	return out
}

type broadcastCall struct {
	Room  string
	Event realtime.Event
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	calls  []broadcastCall
	online map[uint]bool
}

func (f *fakeBroadcaster) Broadcast(room string, ev realtime.Event) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcastCall{Room: room, Event: ev})
	return 1
}

func (f *fakeBroadcaster) IsOnline(_ context.Context, userID uint) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[userID]
}

type fixture struct {
	db       *gorm.DB
	notifier *recordingNotifier
	projects ProjectService
	tasks    TaskService
	invites  InvitationService
	mentors  MentorService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.OpenTest(t.Name())
	require.NoError(t, err)

	rec := &recordingNotifier{inner: notify.NewNotifier(conn, nil, nil, nil, "", zap.NewNop())}
	return &fixture{
		db:       conn,
		notifier: rec,
		projects: NewProjectService(conn),
		tasks:    NewTaskService(conn, rec, zap.NewNop()),
		invites:  NewInvitationService(conn, rec),
		mentors:  NewMentorService(conn, rec, zap.NewNop()),
	}
}

func (f *fixture) user(t *testing.T, name, email string) models.User {
	t.Helper()
	u := models.User{Name: name, Email: email, PasswordHash: "x"}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) project(t *testing.T, owner models.User, title string) *models.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), owner.ID, ProjectInput{Title: title})
	require.NoError(t, err)
	return p
}

func (f *fixture) addMember(t *testing.T, projectID uint, user models.User, role models.Role) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.ProjectMembership{ProjectID: projectID, UserID: user.ID, Role: role}).Error)
}
