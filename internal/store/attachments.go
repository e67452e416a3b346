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

var ErrAttachmentNotFound = errors.New("attachment not found")

type Attachment struct {
	ID          string
	WorkspaceID string
	PageID      string
	FileName    string
	MimeType    string
	SizeBytes   int64
	CreatedAt   time.Time
}

type CreateAttachmentInput struct {
	WorkspaceID string
	PageID      string
	FileName    string
	MimeType    string
	SizeBytes   int64
}

func (s *Store) CreateAttachment(ctx context.Context, input CreateAttachmentInput) (Attachment, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	pageID := strings.TrimSpace(input.PageID)
	fileName := strings.TrimSpace(input.FileName)
	if workspaceID == "" || pageID == "" || fileName == "" {
		return Attachment{}, fmt.Errorf("workspace id, page id and file name are required")
	}
	mimeType := strings.TrimSpace(input.MimeType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	now := time.Now().UTC()
	attachment := Attachment{
		ID:          "att_" + uuid.NewString(),
		WorkspaceID: workspaceID,
		PageID:      pageID,
		FileName:    fileName,
		MimeType:    mimeType,
		SizeBytes:   input.SizeBytes,
		CreatedAt:   now,
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO attachments (id, workspace_id, page_id, file_name, mime_type, size_bytes, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		attachment.ID, attachment.WorkspaceID, attachment.PageID, attachment.FileName,
		attachment.MimeType, attachment.SizeBytes, now.Unix(),
	); err != nil {
		return Attachment{}, fmt.Errorf("insert attachment: %w", err)
	}
	return attachment, nil
}

func (s *Store) GetAttachment(ctx context.Context, id, workspaceID string) (Attachment, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, workspace_id, page_id, file_name, mime_type, size_bytes, created_at_unix
		 FROM attachments WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	return scanAttachment(row)
}

func (s *Store) ListAttachments(ctx context.Context, workspaceID, pageID string, limit int) ([]Attachment, error) {
	if limit < 1 {
		limit = 50
	}
	args := []any{strings.TrimSpace(workspaceID)}
	filter := ""
	if pageID = strings.TrimSpace(pageID); pageID != "" {
		filter = " AND page_id = ?"
		args = append(args, pageID)
	}
	args = append(args, limit)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, workspace_id, page_id, file_name, mime_type, size_bytes, created_at_unix
		 FROM attachments WHERE workspace_id = ?`+filter+`
		 ORDER BY created_at_unix ASC LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	attachments := []Attachment{}
	for rows.Next() {
		attachment, scanErr := scanAttachment(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		attachments = append(attachments, attachment)
	}
	return attachments, rows.Err()
}

func (s *Store) DeleteAttachment(ctx context.Context, id, workspaceID string) error {
	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM attachments WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrAttachmentNotFound
	}
	return nil
}

func scanAttachment(scanner rowScanner) (Attachment, error) {
	var attachment Attachment
	var createdAtUnix int64
	if err := scanner.Scan(&attachment.ID, &attachment.WorkspaceID, &attachment.PageID, &attachment.FileName, &attachment.MimeType, &attachment.SizeBytes, &createdAtUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attachment{}, ErrAttachmentNotFound
		}
		return Attachment{}, fmt.Errorf("scan attachment: %w", err)
	}
	attachment.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return attachment, nil
}
