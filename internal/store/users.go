package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User represents an account in the database.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string // Admin, Manager, Developer
	CreatedAt    int64  // unix ms
}

// CreateUser inserts a new user. The ID is generated if empty.
func (s *Store) CreateUser(u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().UnixMilli()
	}
	if u.Role == "" {
		u.Role = "Developer"
	}

	query := `INSERT INTO users (id, name, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUser retrieves a user by ID. Returns nil if not found.
func (s *Store) GetUser(id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT id, name, email, password_hash, role, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email. Returns nil if not found.
func (s *Store) GetUserByEmail(email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers() ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, name, email, password_hash, role, created_at FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUserCascade removes a user and everything hanging off the account:
// project memberships, tasks assigned to the user, and the user stories of
// projects the user was a member of. All writes run in one transaction.
// Returns false if the user did not exist.
func (s *Store) DeleteUserCascade(userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM user_stories WHERE project_id IN (
			SELECT project_id FROM project_members WHERE user_id = ?
		)`, userID); err != nil {
		return false, fmt.Errorf("failed to delete member stories: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM tasks WHERE assignee_id = ?`, userID); err != nil {
		return false, fmt.Errorf("failed to delete assigned tasks: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM project_members WHERE user_id = ?`, userID); err != nil {
		return false, fmt.Errorf("failed to delete memberships: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}

	return true, tx.Commit()
}
