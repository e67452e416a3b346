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

var ErrPageNotFound = errors.New("page not found")

type Page struct {
	ID          string
	WorkspaceID string
	SpaceID     string
	ParentID    string
	Title       string
	Content     map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreatePageInput struct {
	WorkspaceID string
	SpaceID     string
	ParentID    string
	Title       string
	Content     map[string]any
}

func (s *Store) CreatePage(ctx context.Context, input CreatePageInput) (Page, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	spaceID := strings.TrimSpace(input.SpaceID)
	title := strings.TrimSpace(input.Title)
	if workspaceID == "" || spaceID == "" || title == "" {
		return Page{}, fmt.Errorf("workspace id, space id and title are required")
	}
	content := input.Content
	if content == nil {
		content = map[string]any{}
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		return Page{}, fmt.Errorf("encode page content: %w", err)
	}
	now := time.Now().UTC()
	page := Page{
		ID:          "pg_" + uuid.NewString(),
		WorkspaceID: workspaceID,
		SpaceID:     spaceID,
		ParentID:    strings.TrimSpace(input.ParentID),
		Title:       title,
		Content:     content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO pages (id, workspace_id, space_id, parent_id, title, content_json, created_at_unix, updated_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		page.ID, page.WorkspaceID, page.SpaceID, nullIfEmpty(page.ParentID), page.Title, string(encoded), now.Unix(), now.Unix(),
	); err != nil {
		return Page{}, fmt.Errorf("insert page: %w", err)
	}
	return page, nil
}

func (s *Store) GetPage(ctx context.Context, id, workspaceID string) (Page, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, workspace_id, space_id, COALESCE(parent_id, ''), title, content_json, created_at_unix, updated_at_unix
		 FROM pages WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	return scanPage(row)
}

func (s *Store) ListPages(ctx context.Context, workspaceID, spaceID string, limit int) ([]Page, error) {
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
		`SELECT id, workspace_id, space_id, COALESCE(parent_id, ''), title, content_json, created_at_unix, updated_at_unix
		 FROM pages WHERE workspace_id = ?`+filter+`
		 ORDER BY updated_at_unix DESC LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	pages := []Page{}
	for rows.Next() {
		page, scanErr := scanPage(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

type UpdatePageInput struct {
	ID          string
	WorkspaceID string
	Title       string
	Content     map[string]any
}

func (s *Store) UpdatePage(ctx context.Context, input UpdatePageInput) (Page, error) {
	page, err := s.GetPage(ctx, input.ID, input.WorkspaceID)
	if err != nil {
		return Page{}, err
	}
	if title := strings.TrimSpace(input.Title); title != "" {
		page.Title = title
	}
	if input.Content != nil {
		page.Content = input.Content
	}
	encoded, err := json.Marshal(page.Content)
	if err != nil {
		return Page{}, fmt.Errorf("encode page content: %w", err)
	}
	page.UpdatedAt = time.Now().UTC()
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE pages SET title = ?, content_json = ?, updated_at_unix = ? WHERE id = ? AND workspace_id = ?`,
		page.Title, string(encoded), page.UpdatedAt.Unix(), page.ID, page.WorkspaceID,
	); err != nil {
		return Page{}, fmt.Errorf("update page: %w", err)
	}
	return page, nil
}

type MovePageInput struct {
	ID            string
	WorkspaceID   string
	TargetSpaceID string
	// ParentID distinguishes three cases: nil leaves the parent untouched,
	// a pointer to "" moves the page to the space root, and a non-empty
	// value reparents the page under that id.
	ParentID *string
}

func (s *Store) MovePage(ctx context.Context, input MovePageInput) (Page, error) {
	page, err := s.GetPage(ctx, input.ID, input.WorkspaceID)
	if err != nil {
		return Page{}, err
	}
	if target := strings.TrimSpace(input.TargetSpaceID); target != "" {
		page.SpaceID = target
	}
	if input.ParentID != nil {
		page.ParentID = strings.TrimSpace(*input.ParentID)
	}
	page.UpdatedAt = time.Now().UTC()
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE pages SET space_id = ?, parent_id = ?, updated_at_unix = ? WHERE id = ? AND workspace_id = ?`,
		page.SpaceID, nullIfEmpty(page.ParentID), page.UpdatedAt.Unix(), page.ID, page.WorkspaceID,
	); err != nil {
		return Page{}, fmt.Errorf("move page: %w", err)
	}
	return page, nil
}

func (s *Store) DeletePage(ctx context.Context, id, workspaceID string) error {
	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM pages WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrPageNotFound
	}
	return nil
}

func scanPage(scanner rowScanner) (Page, error) {
	var page Page
	var contentJSON string
	var createdAtUnix, updatedAtUnix int64
	if err := scanner.Scan(&page.ID, &page.WorkspaceID, &page.SpaceID, &page.ParentID, &page.Title, &contentJSON, &createdAtUnix, &updatedAtUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Page{}, ErrPageNotFound
		}
		return Page{}, fmt.Errorf("scan page: %w", err)
	}
	page.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	page.UpdatedAt = time.Unix(updatedAtUnix, 0).UTC()
	page.Content = map[string]any{}
	if strings.TrimSpace(contentJSON) != "" {
		if err := json.Unmarshal([]byte(contentJSON), &page.Content); err != nil {
			return Page{}, fmt.Errorf("decode page content: %w", err)
		}
	}
	return page, nil
}
