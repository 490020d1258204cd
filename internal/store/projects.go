package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Project statuses recognized by the API.
const (
	ProjectPlanned    = "Planned"
	ProjectInProgress = "In Progress"
	ProjectCompleted  = "Completed"
	ProjectOnHold     = "On Hold"
)

// ProjectMember pairs a user with their role inside one project.
type ProjectMember struct {
	UserID string
	Role   string // Manager or Developer
}

// Project represents a project in the database.
type Project struct {
	ID          string
	Name        string
	Description string
	StartDate   int64 // unix ms, 0 = unset
	EndDate     int64 // unix ms, 0 = unset
	Status      string
	ManagerID   string
	Members     []ProjectMember
	CreatedAt   int64
	UpdatedAt   int64
}

// CreateProject inserts a project and its member rows in one transaction.
func (s *Store) CreateProject(p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UnixMilli()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = ProjectPlanned
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
	INSERT INTO projects (id, name, description, start_date, end_date, status, manager_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name,
		sql.NullString{String: p.Description, Valid: p.Description != ""},
		sql.NullInt64{Int64: p.StartDate, Valid: p.StartDate != 0},
		sql.NullInt64{Int64: p.EndDate, Valid: p.EndDate != 0},
		p.Status,
		sql.NullString{String: p.ManagerID, Valid: p.ManagerID != ""},
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	if err := replaceMembers(tx, p.ID, p.Members); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceMembers(tx *sql.Tx, projectID string, members []ProjectMember) error {
	if _, err := tx.Exec(`DELETE FROM project_members WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to clear members: %w", err)
	}
	for _, m := range members {
		role := m.Role
		if role == "" {
			role = "Developer"
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO project_members (project_id, user_id, role) VALUES (?, ?, ?)`,
			projectID, m.UserID, role); err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}
	return nil
}

// GetProject retrieves a project with its members. Returns nil if not found.
func (s *Store) GetProject(id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &Project{}
	var desc, manager sql.NullString
	var start, end sql.NullInt64

	err := s.db.QueryRow(`
	SELECT id, name, description, start_date, end_date, status, manager_id, created_at, updated_at
	FROM projects WHERE id = ?`, id).Scan(
		&p.ID, &p.Name, &desc, &start, &end, &p.Status, &manager, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	p.Description = desc.String
	p.ManagerID = manager.String
	p.StartDate = start.Int64
	p.EndDate = end.Int64

	members, err := s.projectMembers(p.ID)
	if err != nil {
		return nil, err
	}
	p.Members = members
	return p, nil
}

func (s *Store) projectMembers(projectID string) ([]ProjectMember, error) {
	rows, err := s.db.Query(`SELECT user_id, role FROM project_members WHERE project_id = ? ORDER BY user_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []ProjectMember
	for rows.Next() {
		var m ProjectMember
		if err := rows.Scan(&m.UserID, &m.Role); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ProjectMemberDetail is a membership row joined with the user's account
// fields. Name and email are empty when the account no longer exists.
type ProjectMemberDetail struct {
	UserID string
	Name   string
	Email  string
	Role   string
}

// ListProjectMembers returns the project's members with their account details.
func (s *Store) ListProjectMembers(projectID string) ([]ProjectMemberDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT pm.user_id, COALESCE(u.name, ''), COALESCE(u.email, ''), pm.role
	FROM project_members pm
	LEFT JOIN users u ON u.id = pm.user_id
	WHERE pm.project_id = ?
	ORDER BY pm.user_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list member details: %w", err)
	}
	defer rows.Close()

	var members []ProjectMemberDetail
	for rows.Next() {
		var m ProjectMemberDetail
		if err := rows.Scan(&m.UserID, &m.Name, &m.Email, &m.Role); err != nil {
			return nil, fmt.Errorf("failed to scan member detail: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddProjectMembers inserts the given memberships, skipping users already on
// the project (their existing role is kept). All inserts commit together.
func (s *Store) AddProjectMembers(projectID string, members []ProjectMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, m := range members {
		role := m.Role
		if role == "" {
			role = "Developer"
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO project_members (project_id, user_id, role) VALUES (?, ?, ?)`,
			projectID, m.UserID, role); err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}
	}
	return tx.Commit()
}

// RemoveProjectMember deletes one membership. Returns false if the user was
// not a member.
func (s *Store) RemoveProjectMember(projectID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove member: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpdateProjectMemberRole changes one member's role within the project.
// Returns false if the user was not a member.
func (s *Store) UpdateProjectMemberRole(projectID, userID, role string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE project_members SET role = ? WHERE project_id = ? AND user_id = ?`,
		role, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to update member role: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListProjects returns all projects (without member expansion) newest first.
func (s *Store) ListProjects() ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT id, name, description, start_date, end_date, status, manager_id, created_at, updated_at
	FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		var desc, manager sql.NullString
		var start, end sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &desc, &start, &end, &p.Status, &manager, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.Description = desc.String
		p.ManagerID = manager.String
		p.StartDate = start.Int64
		p.EndDate = end.Int64
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject overwrites the project row and replaces its members.
func (s *Store) UpdateProject(p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.UpdatedAt = time.Now().UnixMilli()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
	UPDATE projects SET name = ?, description = ?, start_date = ?, end_date = ?, status = ?, manager_id = ?, updated_at = ?
	WHERE id = ?`,
		p.Name,
		sql.NullString{String: p.Description, Valid: p.Description != ""},
		sql.NullInt64{Int64: p.StartDate, Valid: p.StartDate != 0},
		sql.NullInt64{Int64: p.EndDate, Valid: p.EndDate != 0},
		p.Status,
		sql.NullString{String: p.ManagerID, Valid: p.ManagerID != ""},
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	if err := replaceMembers(tx, p.ID, p.Members); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteProject removes a project and its tasks. Member rows cascade via the
// foreign key. Returns false if the project did not exist.
func (s *Store) DeleteProject(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks WHERE project_id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete project tasks: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}
	return true, tx.Commit()
}
