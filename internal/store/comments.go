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

var ErrCommentNotFound = errors.New("comment not found")

type Comment struct {
	ID              string
	WorkspaceID     string
	PageID          string
	ParentCommentID string
	AuthorUserID    string
	Content         map[string]any
	CreatedAt       time.Time
}

type CreateCommentInput struct {
	WorkspaceID     string
	PageID          string
	ParentCommentID string
	AuthorUserID    string
	Content         map[string]any
}

func (s *Store) CreateComment(ctx context.Context, input CreateCommentInput) (Comment, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	pageID := strings.TrimSpace(input.PageID)
	if workspaceID == "" || pageID == "" {
		return Comment{}, fmt.Errorf("workspace id and page id are required")
	}
	content := input.Content
	if content == nil {
		content = map[string]any{}
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		return Comment{}, fmt.Errorf("encode comment content: %w", err)
	}
	now := time.Now().UTC()
	comment := Comment{
		ID:              "cmt_" + uuid.NewString(),
		WorkspaceID:     workspaceID,
		PageID:          pageID,
		ParentCommentID: strings.TrimSpace(input.ParentCommentID),
		AuthorUserID:    strings.TrimSpace(input.AuthorUserID),
		Content:         content,
		CreatedAt:       now,
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO comments (id, workspace_id, page_id, parent_comment_id, author_user_id, content_json, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.WorkspaceID, comment.PageID, nullIfEmpty(comment.ParentCommentID),
		nullIfEmpty(comment.AuthorUserID), string(encoded), now.Unix(),
	); err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func (s *Store) GetComment(ctx context.Context, id, workspaceID string) (Comment, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, workspace_id, page_id, COALESCE(parent_comment_id, ''), COALESCE(author_user_id, ''), content_json, created_at_unix
		 FROM comments WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	return scanComment(row)
}

func (s *Store) ListComments(ctx context.Context, workspaceID, pageID string, limit int) ([]Comment, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, workspace_id, page_id, COALESCE(parent_comment_id, ''), COALESCE(author_user_id, ''), content_json, created_at_unix
		 FROM comments WHERE workspace_id = ? AND page_id = ?
		 ORDER BY created_at_unix ASC LIMIT ?`,
		strings.TrimSpace(workspaceID), strings.TrimSpace(pageID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		comment, scanErr := scanComment(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

type UpdateCommentInput struct {
	ID          string
	WorkspaceID string
	Content     map[string]any
}

func (s *Store) UpdateComment(ctx context.Context, input UpdateCommentInput) (Comment, error) {
	comment, err := s.GetComment(ctx, input.ID, input.WorkspaceID)
	if err != nil {
		return Comment{}, err
	}
	if input.Content != nil {
		comment.Content = input.Content
	}
	encoded, err := json.Marshal(comment.Content)
	if err != nil {
		return Comment{}, fmt.Errorf("encode comment content: %w", err)
	}
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE comments SET content_json = ? WHERE id = ? AND workspace_id = ?`,
		string(encoded), comment.ID, comment.WorkspaceID,
	); err != nil {
		return Comment{}, fmt.Errorf("update comment: %w", err)
	}
	return comment, nil
}

func (s *Store) DeleteComment(ctx context.Context, id, workspaceID string) error {
	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM comments WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func scanComment(scanner rowScanner) (Comment, error) {
	var comment Comment
	var contentJSON string
	var createdAtUnix int64
	if err := scanner.Scan(&comment.ID, &comment.WorkspaceID, &comment.PageID, &comment.ParentCommentID, &comment.AuthorUserID, &contentJSON, &createdAtUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Comment{}, ErrCommentNotFound
		}
		return Comment{}, fmt.Errorf("scan comment: %w", err)
	}
	comment.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	comment.Content = map[string]any{}
	if strings.TrimSpace(contentJSON) != "" {
		if err := json.Unmarshal([]byte(contentJSON), &comment.Content); err != nil {
			return Comment{}, fmt.Errorf("decode comment content: %w", err)
		}
	}
	return comment, nil
}
