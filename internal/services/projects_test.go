package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/models"
)

func TestProjectCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.user(t, "Ada", "ada@example.com")
	bob := f.user(t, "Bob", "bob@example.com")
	eve := f.user(t, "Eve", "eve@example.com")

	project := f.project(t, ada, "Capstone")
	f.addMember(t, project.ID, bob, models.RoleMember)

	detail, err := f.projects.Get(ctx, bob.ID, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, detail.Role)
	assert.Equal(t, "Ada", detail.Owner.Name)

	_, err = f.projects.Get(ctx, eve.ID, project.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.projects.Update(ctx, bob.ID, project.ID, ProjectInput{Title: "Renamed"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	updated, err := f.projects.Update(ctx, ada.ID, project.ID, ProjectInput{Title: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	list, err := f.projects.List(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = f.projects.List(ctx, eve.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProjectDelete_RequiresAllTasksDone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.user(t, "Ada", "ada@example.com")
	project := f.project(t, ada, "Capstone")

	task, err := f.tasks.Create(ctx, ada.ID, project.ID, TaskInput{Title: "open"})
	require.NoError(t, err)

	err = f.projects.Delete(ctx, ada.ID, project.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.tasks.UpdateStatus(ctx, ada.ID, task.ID, models.StatusDone)
	require.NoError(t, err)
	require.NoError(t, f.projects.Delete(ctx, ada.ID, project.ID))

	var count int64
	require.NoError(t, f.db.Model(&models.Task{}).Where("project_id = ?", project.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, f.db.Model(&models.ProjectMembership{}).Where("project_id = ?", project.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestProgressAndDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.user(t, "Ada", "ada@example.com")
	bob := f.user(t, "Bob", "bob@example.com")
	project := f.project(t, ada, "Capstone")
	f.addMember(t, project.ID, bob, models.RoleMember)

	for _, status := range []string{models.StatusTodo, models.StatusDone, models.StatusDone, models.StatusInProgress} {
		_, err := f.tasks.Create(ctx, ada.ID, project.ID, TaskInput{Title: "t", Status: status, AssigneeID: &bob.ID})
		require.NoError(t, err)
	}

	progress, err := f.projects.Progress(ctx, bob.ID, project.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, progress.Total)
	assert.EqualValues(t, 2, progress.Done)
	assert.Equal(t, 50, progress.Percent)

	stats, err := f.projects.Dashboard(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Projects)
	assert.EqualValues(t, 4, stats.TasksAssigned)
	assert.EqualValues(t, 2, stats.TasksDone)

	result, err := f.projects.Search(ctx, bob.ID, "caps")
	require.NoError(t, err)
	assert.Len(t, result.Projects, 1)
}
