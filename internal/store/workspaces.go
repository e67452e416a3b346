package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrAccessDenied      = errors.New("access denied")
)

type Workspace struct {
	ID          string
	Slug        string
	Name        string
	OwnerUserID string
	Settings    map[string]any
	CreatedAt   time.Time
}

type User struct {
	ID          string
	WorkspaceID string
	Email       string
	Name        string
	Role        string
	CreatedAt   time.Time
}

type CreateWorkspaceInput struct {
	Slug      string
	Name      string
	OwnerName string
}

// CreateWorkspace provisions a workspace together with its owner user.
func (s *Store) CreateWorkspace(ctx context.Context, input CreateWorkspaceInput) (Workspace, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return Workspace{}, fmt.Errorf("workspace slug and name are required")
	}
	now := time.Now().UTC()
	workspace := Workspace{
		ID:        "ws_" + uuid.NewString(),
		Slug:      slug,
		Name:      name,
		Settings:  map[string]any{},
		CreatedAt: now,
	}
	ownerName := strings.TrimSpace(input.OwnerName)
	if ownerName == "" {
		ownerName = name + " owner"
	}
	owner := User{
		ID:          "usr_" + uuid.NewString(),
		WorkspaceID: workspace.ID,
		Name:        ownerName,
		Role:        "admin",
		CreatedAt:   now,
	}
	workspace.OwnerUserID = owner.ID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Workspace{}, fmt.Errorf("begin workspace create: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO workspaces (id, slug, name, owner_user_id, settings_json, created_at_unix)
		 VALUES (?, ?, ?, ?, '{}', ?)`,
		workspace.ID, workspace.Slug, workspace.Name, workspace.OwnerUserID, now.Unix(),
	); err != nil {
		return Workspace{}, fmt.Errorf("insert workspace: %w", err)
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO users (id, workspace_id, email, name, role, created_at_unix)
		 VALUES (?, ?, NULL, ?, 'admin', ?)`,
		owner.ID, workspace.ID, owner.Name, now.Unix(),
	); err != nil {
		return Workspace{}, fmt.Errorf("insert workspace owner: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Workspace{}, fmt.Errorf("commit workspace create: %w", err)
	}
	return workspace, nil
}

func (s *Store) GetWorkspace(ctx context.Context, id string) (Workspace, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, slug, name, COALESCE(owner_user_id, ''), settings_json, created_at_unix
		 FROM workspaces WHERE id = ?`,
		strings.TrimSpace(id),
	)
	return scanWorkspace(row)
}

func (s *Store) ListWorkspaces(ctx context.Context, limit int) ([]Workspace, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, slug, name, COALESCE(owner_user_id, ''), settings_json, created_at_unix
		 FROM workspaces ORDER BY created_at_unix ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query workspaces: %w", err)
	}
	defer rows.Close()

	workspaces := []Workspace{}
	for rows.Next() {
		workspace, scanErr := scanWorkspace(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		workspaces = append(workspaces, workspace)
	}
	return workspaces, rows.Err()
}

type UpdateWorkspaceInput struct {
	ID   string
	Name string
	Slug string
}

func (s *Store) UpdateWorkspace(ctx context.Context, input UpdateWorkspaceInput) (Workspace, error) {
	workspace, err := s.GetWorkspace(ctx, input.ID)
	if err != nil {
		return Workspace{}, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		workspace.Name = name
	}
	if slug := strings.ToLower(strings.TrimSpace(input.Slug)); slug != "" {
		workspace.Slug = slug
	}
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE workspaces SET name = ?, slug = ? WHERE id = ?`,
		workspace.Name, workspace.Slug, workspace.ID,
	); err != nil {
		return Workspace{}, fmt.Errorf("update workspace: %w", err)
	}
	return workspace, nil
}

func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrWorkspaceNotFound
	}
	return nil
}

// UpdateWorkspaceSettings replaces the workspace's stored settings object.
func (s *Store) UpdateWorkspaceSettings(ctx context.Context, id string, settings map[string]any) (Workspace, error) {
	workspace, err := s.GetWorkspace(ctx, id)
	if err != nil {
		return Workspace{}, err
	}
	if settings == nil {
		settings = map[string]any{}
	}
	encoded, err := json.Marshal(settings)
	if err != nil {
		return Workspace{}, fmt.Errorf("encode workspace settings: %w", err)
	}
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE workspaces SET settings_json = ? WHERE id = ?`,
		string(encoded), workspace.ID,
	); err != nil {
		return Workspace{}, fmt.Errorf("update workspace settings: %w", err)
	}
	workspace.Settings = settings
	return workspace, nil
}

type AddWorkspaceMemberInput struct {
	WorkspaceID string
	Email       string
	Name        string
	Role        string
}

func (s *Store) AddWorkspaceMember(ctx context.Context, input AddWorkspaceMemberInput) (User, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if workspaceID == "" || email == "" {
		return User{}, fmt.Errorf("workspace id and email are required")
	}
	if _, err := s.GetWorkspace(ctx, workspaceID); err != nil {
		return User{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = email
	}
	role := strings.ToLower(strings.TrimSpace(input.Role))
	if role == "" {
		role = "member"
	}
	now := time.Now().UTC()
	user := User{
		ID:          "usr_" + uuid.NewString(),
		WorkspaceID: workspaceID,
		Email:       email,
		Name:        name,
		Role:        role,
		CreatedAt:   now,
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (id, workspace_id, email, name, role, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.WorkspaceID, user.Email, user.Name, user.Role, now.Unix(),
	); err != nil {
		return User{}, fmt.Errorf("insert workspace member: %w", err)
	}
	return user, nil
}

func (s *Store) RemoveWorkspaceMember(ctx context.Context, workspaceID, userID string) error {
	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM users WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(userID), strings.TrimSpace(workspaceID),
	)
	if err != nil {
		return fmt.Errorf("remove workspace member: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID, workspaceID string) (User, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, workspace_id, COALESCE(email, ''), name, role, created_at_unix
		 FROM users WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(userID), strings.TrimSpace(workspaceID),
	)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context, workspaceID, query string, limit int) ([]User, error) {
	if limit < 1 {
		limit = 50
	}
	query = strings.TrimSpace(query)
	args := []any{strings.TrimSpace(workspaceID)}
	filter := ""
	if query != "" {
		filter = " AND (name LIKE ? OR email LIKE ?)"
		pattern := "%" + query + "%"
		args = append(args, pattern, pattern)
	}
	args = append(args, limit)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, workspace_id, COALESCE(email, ''), name, role, created_at_unix
		 FROM users WHERE workspace_id = ?`+filter+`
		 ORDER BY created_at_unix ASC LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type UpdateUserInput struct {
	ID          string
	WorkspaceID string
	Name        string
	Role        string
}

func (s *Store) UpdateUser(ctx context.Context, input UpdateUserInput) (User, error) {
	user, err := s.GetUser(ctx, input.ID, input.WorkspaceID)
	if err != nil {
		return User{}, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		user.Name = name
	}
	if role := strings.ToLower(strings.TrimSpace(input.Role)); role != "" {
		user.Role = role
	}
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE users SET name = ?, role = ? WHERE id = ? AND workspace_id = ?`,
		user.Name, user.Role, user.ID, user.WorkspaceID,
	); err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// CheckWorkspaceAccess verifies the user belongs to the workspace.
func (s *Store) CheckWorkspaceAccess(ctx context.Context, userID, workspaceID string) error {
	_, err := s.GetUser(ctx, userID, workspaceID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrAccessDenied
		}
		return err
	}
	return nil
}

// CheckSpaceAccess verifies the user belongs to the workspace and the space
// belongs to the same workspace. Membership is workspace-scoped; per-space
// role restrictions are the collaborator services' concern.
func (s *Store) CheckSpaceAccess(ctx context.Context, userID, workspaceID, spaceID string) error {
	if err := s.CheckWorkspaceAccess(ctx, userID, workspaceID); err != nil {
		return err
	}
	if strings.TrimSpace(spaceID) == "" {
		return nil
	}
	if _, err := s.GetSpace(ctx, spaceID, workspaceID); err != nil {
		if errors.Is(err, ErrSpaceNotFound) {
			return ErrAccessDenied
		}
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(scanner rowScanner) (Workspace, error) {
	var workspace Workspace
	var settingsJSON string
	var createdAtUnix int64
	if err := scanner.Scan(&workspace.ID, &workspace.Slug, &workspace.Name, &workspace.OwnerUserID, &settingsJSON, &createdAtUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Workspace{}, ErrWorkspaceNotFound
		}
		return Workspace{}, fmt.Errorf("scan workspace: %w", err)
	}
	workspace.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	workspace.Settings = map[string]any{}
	if strings.TrimSpace(settingsJSON) != "" {
		if err := json.Unmarshal([]byte(settingsJSON), &workspace.Settings); err != nil {
			return Workspace{}, fmt.Errorf("decode workspace settings: %w", err)
		}
	}
	return workspace, nil
}

func scanUser(scanner rowScanner) (User, error) {
	var user User
	var createdAtUnix int64
	if err := scanner.Scan(&user.ID, &user.WorkspaceID, &user.Email, &user.Name, &user.Role, &createdAtUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return user, nil
}
