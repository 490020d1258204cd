package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User story lifecycle states.
const (
	StoryPending   = "pending"
	StoryConverted = "converted_to_task"
	StoryRejected  = "rejected"
)

// ValidStoryStatus reports whether status is one of the recognized states.
func ValidStoryStatus(status string) bool {
	switch status {
	case StoryPending, StoryConverted, StoryRejected:
		return true
	}
	return false
}

// UserStory represents a generated user story in the database.
// The story sentence is immutable after creation; status and task_id are the
// only fields the API mutates.
type UserStory struct {
	ID        string
	ProjectID string
	Story     string
	Role      string // empty when extraction failed
	Action    string
	Benefit   string
	Status    string
	TaskID    string // set only when status is converted_to_task
	CreatedAt int64  // unix ms
}

// CreateUserStory inserts a story record. The ID is generated if empty.
func (s *Store) CreateUserStory(st *UserStory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	if st.CreatedAt == 0 {
		st.CreatedAt = time.Now().UnixMilli()
	}
	if st.Status == "" {
		st.Status = StoryPending
	}

	query := `
	INSERT INTO user_stories (id, project_id, story, role, action, benefit, status, task_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		st.ID, st.ProjectID, st.Story,
		sql.NullString{String: st.Role, Valid: st.Role != ""},
		sql.NullString{String: st.Action, Valid: st.Action != ""},
		sql.NullString{String: st.Benefit, Valid: st.Benefit != ""},
		st.Status,
		sql.NullString{String: st.TaskID, Valid: st.TaskID != ""},
		st.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user story: %w", err)
	}
	return nil
}

func scanStory(scan func(dest ...any) error) (*UserStory, error) {
	st := &UserStory{}
	var role, action, benefit, taskID sql.NullString
	err := scan(&st.ID, &st.ProjectID, &st.Story, &role, &action, &benefit, &st.Status, &taskID, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	st.Role = role.String
	st.Action = action.String
	st.Benefit = benefit.String
	st.TaskID = taskID.String
	return st, nil
}

// GetUserStory retrieves a story by ID. Returns nil if not found.
func (s *Store) GetUserStory(id string) (*UserStory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
	SELECT id, project_id, story, role, action, benefit, status, task_id, created_at
	FROM user_stories WHERE id = ?`, id)

	st, err := scanStory(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user story: %w", err)
	}
	return st, nil
}

// ListUserStories returns all stories for a project, newest first.
func (s *Store) ListUserStories(projectID string) ([]UserStory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT id, project_id, story, role, action, benefit, status, task_id, created_at
	FROM user_stories WHERE project_id = ? ORDER BY created_at DESC, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user stories: %w", err)
	}
	defer rows.Close()

	var stories []UserStory
	for rows.Next() {
		st, err := scanStory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user story: %w", err)
		}
		stories = append(stories, *st)
	}
	return stories, rows.Err()
}

// UpdateUserStoryStatus overwrites the status field only.
// Returns false if the story did not exist.
func (s *Store) UpdateUserStoryStatus(id, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE user_stories SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return false, fmt.Errorf("failed to update story status: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ConvertUserStory creates the task and flips the story to converted_to_task
// in a single transaction, so a failed story update cannot leave an orphan
// task behind.
func (s *Store) ConvertUserStory(storyID string, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UnixMilli()
	if task.CreatedAt == 0 {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = TaskTodo
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
	INSERT INTO tasks (id, title, description, status, deadline, project_id, assignee_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title,
		sql.NullString{String: task.Description, Valid: task.Description != ""},
		task.Status,
		sql.NullInt64{Int64: task.Deadline, Valid: task.Deadline != 0},
		sql.NullString{String: task.ProjectID, Valid: task.ProjectID != ""},
		sql.NullString{String: task.AssigneeID, Valid: task.AssigneeID != ""},
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create converted task: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE user_stories SET status = ?, task_id = ? WHERE id = ?`,
		StoryConverted, task.ID, storyID); err != nil {
		return fmt.Errorf("failed to mark story converted: %w", err)
	}

	return tx.Commit()
}

// DeleteUserStory removes a story permanently. Tasks previously spawned from
// it are left untouched. Returns false if the story did not exist.
func (s *Store) DeleteUserStory(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM user_stories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete user story: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
