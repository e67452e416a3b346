package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AuditEvent struct {
	ID          string
	WorkspaceID string
	SpaceID     string
	ActorUserID string
	EventType   string
	Method      string
	Detail      string
	CreatedAt   time.Time
}

type AppendAuditEventInput struct {
	WorkspaceID string
	SpaceID     string
	ActorUserID string
	EventType   string
	Method      string
	Detail      string
}

func (s *Store) AppendAuditEvent(ctx context.Context, input AppendAuditEventInput) (AuditEvent, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	eventType := strings.TrimSpace(input.EventType)
	if workspaceID == "" || eventType == "" {
		return AuditEvent{}, fmt.Errorf("workspace id and event type are required")
	}
	now := time.Now().UTC()
	event := AuditEvent{
		ID:          "aev_" + uuid.NewString(),
		WorkspaceID: workspaceID,
		SpaceID:     strings.TrimSpace(input.SpaceID),
		ActorUserID: strings.TrimSpace(input.ActorUserID),
		EventType:   eventType,
		Method:      strings.TrimSpace(input.Method),
		Detail:      strings.TrimSpace(input.Detail),
		CreatedAt:   now,
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO agent_audit_events (id, workspace_id, space_id, actor_user_id, event_type, method, detail, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.WorkspaceID, nullIfEmpty(event.SpaceID), nullIfEmpty(event.ActorUserID),
		event.EventType, nullIfEmpty(event.Method), nullIfEmpty(event.Detail), now.Unix(),
	); err != nil {
		return AuditEvent{}, fmt.Errorf("insert audit event: %w", err)
	}
	return event, nil
}

func (s *Store) ListAuditEvents(ctx context.Context, workspaceID string, limit int) ([]AuditEvent, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, workspace_id, COALESCE(space_id, ''), COALESCE(actor_user_id, ''), event_type, COALESCE(method, ''), COALESCE(detail, ''), created_at_unix
		 FROM agent_audit_events WHERE workspace_id = ?
		 ORDER BY created_at_unix DESC LIMIT ?`,
		strings.TrimSpace(workspaceID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := []AuditEvent{}
	for rows.Next() {
		var event AuditEvent
		var createdAtUnix int64
		if err := rows.Scan(&event.ID, &event.WorkspaceID, &event.SpaceID, &event.ActorUserID, &event.EventType, &event.Method, &event.Detail, &createdAtUnix); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		events = append(events, event)
	}
	return events, rows.Err()
}
