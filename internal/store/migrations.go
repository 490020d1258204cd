package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	if err := s.migrateV1(); err != nil {
		return err
	}
	return s.migrateV2()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'Developer',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		start_date INTEGER,
		end_date INTEGER,
		status TEXT NOT NULL DEFAULT 'Planned',
		manager_id TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS project_members (
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'Developer',
		PRIMARY KEY (project_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL DEFAULT 'To Do',
		deadline INTEGER,
		project_id TEXT,
		assignee_id TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

	CREATE TABLE IF NOT EXISTS user_stories (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		story TEXT NOT NULL,
		role TEXT,
		action TEXT,
		benefit TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		task_id TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stories_project ON user_stories(project_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migration v1: %w", err)
	}
	return nil
}

func (s *Store) migrateV2() error {
	// Reporting queries filter stories by status within a project.
	schema := `
	CREATE INDEX IF NOT EXISTS idx_stories_project_status ON user_stories(project_id, status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migration v2: %w", err)
	}
	return nil
}
