package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrProjectNotFound = errors.New("project not found")
)

type Task struct {
	ID          string
	WorkspaceID string
	SpaceID     string
	ProjectID   string
	Title       string
	Description string
	Status      string
	DueAt       time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Project struct {
	ID          string
	WorkspaceID string
	SpaceID     string
	Name        string
	Description string
	CreatedAt   time.Time
}

type CreateTaskInput struct {
	WorkspaceID string
	SpaceID     string
	ProjectID   string
	Title       string
	Description string
	Status      string
	DueAt       time.Time
}

func (s *Store) CreateTask(ctx context.Context, input CreateTaskInput) (Task, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	spaceID := strings.TrimSpace(input.SpaceID)
	title := strings.TrimSpace(input.Title)
	if workspaceID == "" || spaceID == "" || title == "" {
		return Task{}, fmt.Errorf("workspace id, space id and title are required")
	}
	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status == "" {
		status = "inbox"
	}
	now := time.Now().UTC()
	task := Task{
		ID:          "tsk_" + uuid.NewString(),
		WorkspaceID: workspaceID,
		SpaceID:     spaceID,
		ProjectID:   strings.TrimSpace(input.ProjectID),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		DueAt:       input.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var dueAtUnix int64
	if !task.DueAt.IsZero() {
		dueAtUnix = task.DueAt.Unix()
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO tasks (id, workspace_id, space_id, project_id, title, description, status, due_at_unix, created_at_unix, updated_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.WorkspaceID, task.SpaceID, nullIfEmpty(task.ProjectID), task.Title,
		task.Description, task.Status, nullIfZeroInt64(dueAtUnix), now.Unix(), now.Unix(),
	); err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

func (s *Store) GetTask(ctx context.Context, id, workspaceID string) (Task, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, workspace_id, space_id, COALESCE(project_id, ''), title, description, status, COALESCE(due_at_unix, 0), created_at_unix, updated_at_unix
		 FROM tasks WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	return scanTask(row)
}

type ListTasksInput struct {
	WorkspaceID string
	SpaceID     string
	ProjectID   string
	Status      string
	Limit       int
}

func (s *Store) ListTasks(ctx context.Context, input ListTasksInput) ([]Task, error) {
	limit := input.Limit
	if limit < 1 {
		limit = 50
	}
	query := `SELECT id, workspace_id, space_id, COALESCE(project_id, ''), title, description, status, COALESCE(due_at_unix, 0), created_at_unix, updated_at_unix
		 FROM tasks WHERE workspace_id = ?`
	args := []any{strings.TrimSpace(input.WorkspaceID)}
	if spaceID := strings.TrimSpace(input.SpaceID); spaceID != "" {
		query += " AND space_id = ?"
		args = append(args, spaceID)
	}
	if projectID := strings.TrimSpace(input.ProjectID); projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	if status := strings.ToLower(strings.TrimSpace(input.Status)); status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at_unix ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

type UpdateTaskInput struct {
	ID          string
	WorkspaceID string
	Title       string
	Description *string
	Status      string
	ProjectID   *string
	DueAt       *time.Time
}

func (s *Store) UpdateTask(ctx context.Context, input UpdateTaskInput) (Task, error) {
	task, err := s.GetTask(ctx, input.ID, input.WorkspaceID)
	if err != nil {
		return Task{}, err
	}
	if title := strings.TrimSpace(input.Title); title != "" {
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if status := strings.ToLower(strings.TrimSpace(input.Status)); status != "" {
		task.Status = status
	}
	if input.ProjectID != nil {
		task.ProjectID = strings.TrimSpace(*input.ProjectID)
	}
	if input.DueAt != nil {
		task.DueAt = *input.DueAt
	}
	task.UpdatedAt = time.Now().UTC()
	var dueAtUnix int64
	if !task.DueAt.IsZero() {
		dueAtUnix = task.DueAt.Unix()
	}
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE tasks SET title = ?, description = ?, status = ?, project_id = ?, due_at_unix = ?, updated_at_unix = ?
		 WHERE id = ? AND workspace_id = ?`,
		task.Title, task.Description, task.Status, nullIfEmpty(task.ProjectID),
		nullIfZeroInt64(dueAtUnix), task.UpdatedAt.Unix(), task.ID, task.WorkspaceID,
	); err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

func (s *Store) DeleteTask(ctx context.Context, id, workspaceID string) error {
	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM tasks WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// TriageCounts summarizes the workspace's task backlog by status, used to
// seed loop and chat context.
func (s *Store) TriageCounts(ctx context.Context, workspaceID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT status, COUNT(*) FROM tasks WHERE workspace_id = ? GROUP BY status`,
		strings.TrimSpace(workspaceID),
	)
	if err != nil {
		return nil, fmt.Errorf("query triage counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan triage count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

type CreateProjectInput struct {
	WorkspaceID string
	SpaceID     string
	Name        string
	Description string
}

func (s *Store) CreateProject(ctx context.Context, input CreateProjectInput) (Project, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	spaceID := strings.TrimSpace(input.SpaceID)
	name := strings.TrimSpace(input.Name)
	if workspaceID == "" || spaceID == "" || name == "" {
		return Project{}, fmt.Errorf("workspace id, space id and name are required")
	}
	now := time.Now().UTC()
	project := Project{
		ID:          "prj_" + uuid.NewString(),
		WorkspaceID: workspaceID,
		SpaceID:     spaceID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   now,
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO projects (id, workspace_id, space_id, name, description, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		project.ID, project.WorkspaceID, project.SpaceID, project.Name, project.Description, now.Unix(),
	); err != nil {
		return Project{}, fmt.Errorf("insert project: %w", err)
	}
	return project, nil
}

func (s *Store) ListProjects(ctx context.Context, workspaceID, spaceID string, limit int) ([]Project, error) {
	if limit < 1 {
		limit = 50
	}
	args := []any{strings.TrimSpace(workspaceID)}
	filter := ""
	if spaceID = strings.TrimSpace(spaceID); spaceID != "" {
		filter = " AND space_id = ?"
		args = append(args, spaceID)
	}
	args = append(args, limit)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, workspace_id, space_id, name, description, created_at_unix
		 FROM projects WHERE workspace_id = ?`+filter+`
		 ORDER BY created_at_unix ASC LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		var project Project
		var createdAtUnix int64
		if err := rows.Scan(&project.ID, &project.WorkspaceID, &project.SpaceID, &project.Name, &project.Description, &createdAtUnix); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		project.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (s *Store) DeleteProject(ctx context.Context, id, workspaceID string) error {
	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM projects WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func scanTask(scanner rowScanner) (Task, error) {
	var task Task
	var dueAtUnix, createdAtUnix, updatedAtUnix int64
	if err := scanner.Scan(&task.ID, &task.WorkspaceID, &task.SpaceID, &task.ProjectID, &task.Title, &task.Description, &task.Status, &dueAtUnix, &createdAtUnix, &updatedAtUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrTaskNotFound
		}
		return Task{}, fmt.Errorf("scan task: %w", err)
	}
	if dueAtUnix != 0 {
		task.DueAt = time.Unix(dueAtUnix, 0).UTC()
	}
	task.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	task.UpdatedAt = time.Unix(updatedAtUnix, 0).UTC()
	return task, nil
}
