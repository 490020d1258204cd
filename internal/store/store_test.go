package store

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestProject(t *testing.T, s *Store) *Project {
	t.Helper()
	p := &Project{Name: "Test Project", Description: "for tests"}
	require.NoError(t, s.CreateProject(p))
	return p
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)

	u := &User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Developer", u.Role, "role defaults to Developer")

	got, err := s.GetUser(u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ada@example.com", got.Email)

	byEmail, err := s.GetUserByEmail("ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)

	missing, err := s.GetUser("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	users, err := s.ListUsers()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateUser(&User{Name: "Ada", Email: "ada@example.com", PasswordHash: "h"}))
	err := s.CreateUser(&User{Name: "Ada Again", Email: "ada@example.com", PasswordHash: "h"})
	assert.Error(t, err)
}

func TestDeleteUserCascade(t *testing.T) {
	s := newTestStore(t)

	u := &User{Name: "Ada", Email: "ada@example.com", PasswordHash: "h"}
	require.NoError(t, s.CreateUser(u))

	p := &Project{Name: "P", Members: []ProjectMember{{UserID: u.ID, Role: "Developer"}}}
	require.NoError(t, s.CreateProject(p))

	task := &Task{Title: "T", ProjectID: p.ID, AssigneeID: u.ID}
	require.NoError(t, s.CreateTask(task))

	story := &UserStory{ProjectID: p.ID, Story: "As a user, I want to log in, so that I can access my data."}
	require.NoError(t, s.CreateUserStory(story))

	found, err := s.DeleteUserCascade(u.ID)
	require.NoError(t, err)
	assert.True(t, found)

	gone, err := s.GetUser(u.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	goneTask, err := s.GetTask(task.ID)
	require.NoError(t, err)
	assert.Nil(t, goneTask)

	goneStory, err := s.GetUserStory(story.ID)
	require.NoError(t, err)
	assert.Nil(t, goneStory)

	project, err := s.GetProject(p.ID)
	require.NoError(t, err)
	require.NotNil(t, project, "the project itself survives")
	assert.Empty(t, project.Members)
}

func TestDeleteUserCascade_MissingUser(t *testing.T) {
	s := newTestStore(t)

	found, err := s.DeleteUserCascade("nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestProjectCRUD(t *testing.T) {
	s := newTestStore(t)

	u := &User{Name: "Mia", Email: "mia@example.com", PasswordHash: "h", Role: "Manager"}
	require.NoError(t, s.CreateUser(u))

	p := &Project{
		Name:      "Rollout",
		ManagerID: u.ID,
		Members:   []ProjectMember{{UserID: u.ID, Role: "Manager"}},
	}
	require.NoError(t, s.CreateProject(p))
	assert.Equal(t, ProjectPlanned, p.Status, "status defaults to Planned")

	got, err := s.GetProject(p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Rollout", got.Name)
	require.Len(t, got.Members, 1)
	assert.Equal(t, u.ID, got.Members[0].UserID)

	got.Status = ProjectInProgress
	got.Members = nil
	require.NoError(t, s.UpdateProject(got))

	updated, err := s.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, ProjectInProgress, updated.Status)
	assert.Empty(t, updated.Members, "members are replaced wholesale")

	list, err := s.ListProjects()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProjectMembership(t *testing.T) {
	s := newTestStore(t)
	p := createTestProject(t, s)

	ada := &User{Name: "Ada", Email: "ada@example.com", PasswordHash: "h"}
	mia := &User{Name: "Mia", Email: "mia@example.com", PasswordHash: "h"}
	require.NoError(t, s.CreateUser(ada))
	require.NoError(t, s.CreateUser(mia))

	require.NoError(t, s.AddProjectMembers(p.ID, []ProjectMember{
		{UserID: ada.ID, Role: "Manager"},
		{UserID: mia.ID},
	}))

	details, err := s.ListProjectMembers(p.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)
	byID := map[string]ProjectMemberDetail{}
	for _, d := range details {
		byID[d.UserID] = d
	}
	assert.Equal(t, "Manager", byID[ada.ID].Role)
	assert.Equal(t, "ada@example.com", byID[ada.ID].Email)
	assert.Equal(t, "Developer", byID[mia.ID].Role, "role defaults to Developer")

	// Re-adding an existing member keeps the original role.
	require.NoError(t, s.AddProjectMembers(p.ID, []ProjectMember{
		{UserID: ada.ID, Role: "Developer"},
	}))
	details, err = s.ListProjectMembers(p.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)
	for _, d := range details {
		if d.UserID == ada.ID {
			assert.Equal(t, "Manager", d.Role)
		}
	}

	found, err := s.UpdateProjectMemberRole(p.ID, mia.ID, "Manager")
	require.NoError(t, err)
	assert.True(t, found)
	found, err = s.UpdateProjectMemberRole(p.ID, "nope", "Manager")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = s.RemoveProjectMember(p.ID, ada.ID)
	require.NoError(t, err)
	assert.True(t, found)
	found, err = s.RemoveProjectMember(p.ID, ada.ID)
	require.NoError(t, err)
	assert.False(t, found)

	details, err = s.ListProjectMembers(p.ID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, mia.ID, details[0].UserID)
	assert.Equal(t, "Manager", details[0].Role)
}

func TestSummarizeProjectTasks(t *testing.T) {
	s := newTestStore(t)
	p := createTestProject(t, s)
	other := &Project{Name: "Other"}
	require.NoError(t, s.CreateProject(other))

	past := time.Now().Add(-24 * time.Hour).UnixMilli()
	require.NoError(t, s.CreateTask(&Task{Title: "a", ProjectID: p.ID}))
	require.NoError(t, s.CreateTask(&Task{Title: "b", ProjectID: p.ID, Status: TaskInProgress, Deadline: past}))
	require.NoError(t, s.CreateTask(&Task{Title: "c", ProjectID: p.ID, Status: TaskDone, Deadline: past}))
	require.NoError(t, s.CreateTask(&Task{Title: "elsewhere", ProjectID: other.ID}))

	summary, err := s.SummarizeProjectTasks(p.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalTasks, "other projects' tasks are excluded")
	assert.Equal(t, 1, summary.Todo)
	assert.Equal(t, 1, summary.InProgress)
	assert.Equal(t, 1, summary.Done)
	assert.Equal(t, 1, summary.Overdue, "done tasks are never overdue")

	empty, err := s.SummarizeProjectTasks("no-such-project")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalTasks)
}

func TestDeleteProject_RemovesTasks(t *testing.T) {
	s := newTestStore(t)
	p := createTestProject(t, s)

	task := &Task{Title: "T", ProjectID: p.ID}
	require.NoError(t, s.CreateTask(task))

	found, err := s.DeleteProject(p.ID)
	require.NoError(t, err)
	assert.True(t, found)

	goneTask, err := s.GetTask(task.ID)
	require.NoError(t, err)
	assert.Nil(t, goneTask)

	found, err = s.DeleteProject(p.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTaskCRUDAndFilter(t *testing.T) {
	s := newTestStore(t)
	p := createTestProject(t, s)

	u := &User{Name: "Dev", Email: "dev@example.com", PasswordHash: "h"}
	require.NoError(t, s.CreateUser(u))

	t1 := &Task{Title: "First", ProjectID: p.ID, AssigneeID: u.ID}
	t2 := &Task{Title: "Second", ProjectID: p.ID, Status: TaskInProgress}
	require.NoError(t, s.CreateTask(t1))
	require.NoError(t, s.CreateTask(t2))
	assert.Equal(t, TaskTodo, t1.Status, "status defaults to To Do")

	byAssignee, err := s.ListTasks(TaskFilter{AssigneeID: u.ID})
	require.NoError(t, err)
	require.Len(t, byAssignee, 1)
	assert.Equal(t, "First", byAssignee[0].Title)

	byStatus, err := s.ListTasks(TaskFilter{ProjectID: p.ID, Status: TaskInProgress})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "Second", byStatus[0].Title)

	t1.Status = TaskDone
	require.NoError(t, s.UpdateTask(t1))
	got, err := s.GetTask(t1.ID)
	require.NoError(t, err)
	assert.Equal(t, TaskDone, got.Status)

	found, err := s.DeleteTask(t2.ID)
	require.NoError(t, err)
	assert.True(t, found)
	found, err = s.DeleteTask(t2.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSummarizeTasks(t *testing.T) {
	s := newTestStore(t)
	p := createTestProject(t, s)

	past := time.Now().Add(-24 * time.Hour).UnixMilli()
	future := time.Now().Add(24 * time.Hour).UnixMilli()

	require.NoError(t, s.CreateTask(&Task{Title: "overdue", ProjectID: p.ID, Deadline: past}))
	require.NoError(t, s.CreateTask(&Task{Title: "done late", ProjectID: p.ID, Deadline: past, Status: TaskDone}))
	require.NoError(t, s.CreateTask(&Task{Title: "on track", ProjectID: p.ID, Deadline: future}))
	require.NoError(t, s.CreateTask(&Task{Title: "no deadline", ProjectID: p.ID}))

	summary, err := s.SummarizeTasks()
	require.NoError(t, err)

	assert.Equal(t, 3, summary.ByStatus[TaskTodo])
	assert.Equal(t, 1, summary.ByStatus[TaskDone])
	assert.Equal(t, 1, summary.Overdue, "done and undated tasks are never overdue")
}

func TestUserStoryLifecycle(t *testing.T) {
	s := newTestStore(t)
	p := createTestProject(t, s)

	st := &UserStory{
		ProjectID: p.ID,
		Story:     "As a user, I want to log in, so that I can access my data.",
		Role:      "user",
		Action:    "log in",
		Benefit:   "I can access my data",
	}
	require.NoError(t, s.CreateUserStory(st))
	assert.Equal(t, StoryPending, st.Status, "status defaults to pending")

	got, err := s.GetUserStory(st.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "log in", got.Action)
	assert.Empty(t, got.TaskID)

	found, err := s.UpdateUserStoryStatus(st.ID, StoryRejected)
	require.NoError(t, err)
	assert.True(t, found)

	got, err = s.GetUserStory(st.ID)
	require.NoError(t, err)
	assert.Equal(t, StoryRejected, got.Status)

	found, err = s.UpdateUserStoryStatus("nope", StoryPending)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = s.DeleteUserStory(st.ID)
	require.NoError(t, err)
	assert.True(t, found)
	found, err = s.DeleteUserStory(st.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListUserStories_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	p := createTestProject(t, s)

	base := time.Now().UnixMilli()
	older := &UserStory{ProjectID: p.ID, Story: "older", CreatedAt: base - 1000}
	newer := &UserStory{ProjectID: p.ID, Story: "newer", CreatedAt: base}
	require.NoError(t, s.CreateUserStory(older))
	require.NoError(t, s.CreateUserStory(newer))

	list, err := s.ListUserStories(p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Story)
	assert.Equal(t, "older", list[1].Story)

	empty, err := s.ListUserStories("other-project")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConvertUserStory_Transactional(t *testing.T) {
	s := newTestStore(t)
	p := createTestProject(t, s)

	st := &UserStory{
		ProjectID: p.ID,
		Story:     "As a user, I want to log in, so that I can access my data.",
		Action:    "log in",
	}
	require.NoError(t, s.CreateUserStory(st))

	task := &Task{Title: st.Action, Description: st.Story, ProjectID: p.ID}
	require.NoError(t, s.ConvertUserStory(st.ID, task))
	require.NotEmpty(t, task.ID)
	assert.Equal(t, TaskTodo, task.Status)

	got, err := s.GetUserStory(st.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StoryConverted, got.Status)
	assert.Equal(t, task.ID, got.TaskID)

	created, err := s.GetTask(task.ID)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, st.Story, created.Description)
}

func TestValidStoryStatus(t *testing.T) {
	assert.True(t, ValidStoryStatus(StoryPending))
	assert.True(t, ValidStoryStatus(StoryConverted))
	assert.True(t, ValidStoryStatus(StoryRejected))
	assert.False(t, ValidStoryStatus("archived"))
	assert.False(t, ValidStoryStatus(""))
}
