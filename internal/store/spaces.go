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

var ErrSpaceNotFound = errors.New("space not found")

type Space struct {
	ID          string
	WorkspaceID string
	Slug        string
	Name        string
	Description string
	CreatedAt   time.Time
}

type CreateSpaceInput struct {
	WorkspaceID string
	Slug        string
	Name        string
	Description string
}

func (s *Store) CreateSpace(ctx context.Context, input CreateSpaceInput) (Space, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	name := strings.TrimSpace(input.Name)
	if workspaceID == "" || name == "" {
		return Space{}, fmt.Errorf("workspace id and space name are required")
	}
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" {
		slug = slugify(name)
	}
	now := time.Now().UTC()
	space := Space{
		ID:          "spc_" + uuid.NewString(),
		WorkspaceID: workspaceID,
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   now,
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO spaces (id, workspace_id, slug, name, description, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		space.ID, space.WorkspaceID, space.Slug, space.Name, space.Description, now.Unix(),
	); err != nil {
		return Space{}, fmt.Errorf("insert space: %w", err)
	}
	return space, nil
}

func (s *Store) GetSpace(ctx context.Context, id, workspaceID string) (Space, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, workspace_id, slug, name, description, created_at_unix
		 FROM spaces WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	return scanSpace(row)
}

func (s *Store) ListSpaces(ctx context.Context, workspaceID string, limit int) ([]Space, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, workspace_id, slug, name, description, created_at_unix
		 FROM spaces WHERE workspace_id = ? ORDER BY created_at_unix ASC LIMIT ?`,
		strings.TrimSpace(workspaceID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query spaces: %w", err)
	}
	defer rows.Close()

	spaces := []Space{}
	for rows.Next() {
		space, scanErr := scanSpace(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		spaces = append(spaces, space)
	}
	return spaces, rows.Err()
}

type UpdateSpaceInput struct {
	ID          string
	WorkspaceID string
	Name        string
	Description *string
}

func (s *Store) UpdateSpace(ctx context.Context, input UpdateSpaceInput) (Space, error) {
	space, err := s.GetSpace(ctx, input.ID, input.WorkspaceID)
	if err != nil {
		return Space{}, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		space.Name = name
	}
	if input.Description != nil {
		space.Description = strings.TrimSpace(*input.Description)
	}
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE spaces SET name = ?, description = ? WHERE id = ? AND workspace_id = ?`,
		space.Name, space.Description, space.ID, space.WorkspaceID,
	); err != nil {
		return Space{}, fmt.Errorf("update space: %w", err)
	}
	return space, nil
}

func (s *Store) DeleteSpace(ctx context.Context, id, workspaceID string) error {
	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM spaces WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	if err != nil {
		return fmt.Errorf("delete space: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrSpaceNotFound
	}
	return nil
}

func scanSpace(scanner rowScanner) (Space, error) {
	var space Space
	var createdAtUnix int64
	if err := scanner.Scan(&space.ID, &space.WorkspaceID, &space.Slug, &space.Name, &space.Description, &createdAtUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Space{}, ErrSpaceNotFound
		}
		return Space{}, fmt.Errorf("scan space: %w", err)
	}
	space.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return space, nil
}

func slugify(name string) string {
	var builder strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				builder.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(builder.String(), "-")
}
