package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task statuses recognized by the API.
const (
	TaskTodo       = "To Do"
	TaskInProgress = "In Progress"
	TaskDone       = "Done"
)

// Task represents a task in the database.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      string
	Deadline    int64 // unix ms, 0 = no deadline
	ProjectID   string
	AssigneeID  string
	CreatedAt   int64
	UpdatedAt   int64
}

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	ProjectID  string
	AssigneeID string
	Status     string
}

// TaskSummary aggregates tasks for reporting.
type TaskSummary struct {
	ByStatus map[string]int
	Overdue  int
}

// CreateTask inserts a new task. The ID is generated if empty.
func (s *Store) CreateTask(t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UnixMilli()
	if t.CreatedAt == 0 {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = TaskTodo
	}

	query := `
	INSERT INTO tasks (id, title, description, status, deadline, project_id, assignee_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		t.ID, t.Title,
		sql.NullString{String: t.Description, Valid: t.Description != ""},
		t.Status,
		sql.NullInt64{Int64: t.Deadline, Valid: t.Deadline != 0},
		sql.NullString{String: t.ProjectID, Valid: t.ProjectID != ""},
		sql.NullString{String: t.AssigneeID, Valid: t.AssigneeID != ""},
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns nil if not found.
func (s *Store) GetTask(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := &Task{}
	var desc, projectID, assigneeID sql.NullString
	var deadline sql.NullInt64

	err := s.db.QueryRow(`
	SELECT id, title, description, status, deadline, project_id, assignee_id, created_at, updated_at
	FROM tasks WHERE id = ?`, id).Scan(
		&t.ID, &t.Title, &desc, &t.Status, &deadline, &projectID, &assigneeID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	t.Description = desc.String
	t.ProjectID = projectID.String
	t.AssigneeID = assigneeID.String
	t.Deadline = deadline.Int64
	return t, nil
}

// UpdateTask overwrites the mutable task fields.
func (s *Store) UpdateTask(t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.UpdatedAt = time.Now().UnixMilli()

	query := `
	UPDATE tasks SET title = ?, description = ?, status = ?, deadline = ?, project_id = ?, assignee_id = ?, updated_at = ?
	WHERE id = ?`

	_, err := s.db.Exec(query,
		t.Title,
		sql.NullString{String: t.Description, Valid: t.Description != ""},
		t.Status,
		sql.NullInt64{Int64: t.Deadline, Valid: t.Deadline != 0},
		sql.NullString{String: t.ProjectID, Valid: t.ProjectID != ""},
		sql.NullString{String: t.AssigneeID, Valid: t.AssigneeID != ""},
		t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// DeleteTask removes a task. Returns false if it did not exist.
func (s *Store) DeleteTask(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListTasks returns tasks matching the filter, newest first.
func (s *Store) ListTasks(f TaskFilter) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT id, title, description, status, deadline, project_id, assignee_id, created_at, updated_at
	FROM tasks WHERE 1=1`
	args := []any{}

	if f.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, f.ProjectID)
	}
	if f.AssigneeID != "" {
		query += " AND assignee_id = ?"
		args = append(args, f.AssigneeID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var desc, projectID, assigneeID sql.NullString
		var deadline sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Title, &desc, &t.Status, &deadline, &projectID, &assigneeID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Description = desc.String
		t.ProjectID = projectID.String
		t.AssigneeID = assigneeID.String
		t.Deadline = deadline.Int64
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ProjectTaskSummary aggregates one project's tasks for the progress report.
type ProjectTaskSummary struct {
	TotalTasks int
	Todo       int
	InProgress int
	Done       int
	Overdue    int
}

// SummarizeProjectTasks returns per-status and overdue counts for one project.
func (s *Store) SummarizeProjectTasks(projectID string) (*ProjectTaskSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &ProjectTaskSummary{}

	rows, err := s.db.Query(
		`SELECT status, COUNT(*) FROM tasks WHERE project_id = ? GROUP BY status`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize project tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan project summary: %w", err)
		}
		summary.TotalTasks += count
		switch status {
		case TaskTodo:
			summary.Todo = count
		case TaskInProgress:
			summary.InProgress = count
		case TaskDone:
			summary.Done = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM tasks WHERE project_id = ? AND deadline IS NOT NULL AND deadline < ? AND status != ?`,
		projectID, now, TaskDone).Scan(&summary.Overdue)
	if err != nil {
		return nil, fmt.Errorf("failed to count project overdue tasks: %w", err)
	}
	return summary, nil
}

// SummarizeTasks returns task counts by status plus the overdue count.
func (s *Store) SummarizeTasks() (*TaskSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &TaskSummary{ByStatus: make(map[string]int)}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summary.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM tasks WHERE deadline IS NOT NULL AND deadline < ? AND status != ?`,
		now, TaskDone).Scan(&summary.Overdue)
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}
	return summary, nil
}
