package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Memory struct {
	ID          string
	WorkspaceID string
	SpaceID     string
	Source      string
	Summary     string
	Content     map[string]any
	Tags        []string
	CreatedAt   time.Time
}

type IngestMemoryInput struct {
	WorkspaceID string
	SpaceID     string
	Source      string
	Summary     string
	Content     map[string]any
	Tags        []string
}

// IngestMemory appends one memory record. Records are append-only.
func (s *Store) IngestMemory(ctx context.Context, input IngestMemoryInput) (Memory, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	source := strings.TrimSpace(input.Source)
	if workspaceID == "" || source == "" {
		return Memory{}, fmt.Errorf("workspace id and source are required")
	}
	content := input.Content
	if content == nil {
		content = map[string]any{}
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return Memory{}, fmt.Errorf("encode memory content: %w", err)
	}
	tags := normalizeKeywords(input.Tags)
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return Memory{}, fmt.Errorf("encode memory tags: %w", err)
	}
	now := time.Now().UTC()
	memory := Memory{
		ID:          "mem_" + uuid.NewString(),
		WorkspaceID: workspaceID,
		SpaceID:     strings.TrimSpace(input.SpaceID),
		Source:      source,
		Summary:     strings.TrimSpace(input.Summary),
		Content:     content,
		Tags:        tags,
		CreatedAt:   now,
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO agent_memories (id, workspace_id, space_id, source, summary, content_json, tags_json, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		memory.ID, memory.WorkspaceID, nullIfEmpty(memory.SpaceID), memory.Source,
		memory.Summary, string(contentJSON), string(tagsJSON), now.Unix(),
	); err != nil {
		return Memory{}, fmt.Errorf("insert memory: %w", err)
	}
	return memory, nil
}

type QueryMemoriesInput struct {
	WorkspaceID string
	Tag         string
	Limit       int
}

func (s *Store) QueryMemories(ctx context.Context, input QueryMemoriesInput) ([]Memory, error) {
	limit := input.Limit
	if limit < 1 {
		limit = 20
	}
	args := []any{strings.TrimSpace(input.WorkspaceID)}
	filter := ""
	if tag := strings.ToLower(strings.TrimSpace(input.Tag)); tag != "" {
		filter = " AND tags_json LIKE ?"
		args = append(args, `%"`+tag+`"%`)
	}
	args = append(args, limit)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, workspace_id, COALESCE(space_id, ''), source, summary, content_json, tags_json, created_at_unix
		 FROM agent_memories WHERE workspace_id = ?`+filter+`
		 ORDER BY created_at_unix DESC LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	memories := []Memory{}
	for rows.Next() {
		var memory Memory
		var contentJSON, tagsJSON string
		var createdAtUnix int64
		if err := rows.Scan(&memory.ID, &memory.WorkspaceID, &memory.SpaceID, &memory.Source, &memory.Summary, &contentJSON, &tagsJSON, &createdAtUnix); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		memory.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		memory.Content = map[string]any{}
		if strings.TrimSpace(contentJSON) != "" {
			if err := json.Unmarshal([]byte(contentJSON), &memory.Content); err != nil {
				return nil, fmt.Errorf("decode memory content: %w", err)
			}
		}
		memory.Tags = []string{}
		if strings.TrimSpace(tagsJSON) != "" {
			if err := json.Unmarshal([]byte(tagsJSON), &memory.Tags); err != nil {
				return nil, fmt.Errorf("decode memory tags: %w", err)
			}
		}
		memories = append(memories, memory)
	}
	return memories, rows.Err()
}
