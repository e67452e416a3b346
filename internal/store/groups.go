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

var ErrGroupNotFound = errors.New("group not found")

type Group struct {
	ID          string
	WorkspaceID string
	Name        string
	Description string
	MemberIDs   []string
	CreatedAt   time.Time
}

type CreateGroupInput struct {
	WorkspaceID string
	Name        string
	Description string
}

func (s *Store) CreateGroup(ctx context.Context, input CreateGroupInput) (Group, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	name := strings.TrimSpace(input.Name)
	if workspaceID == "" || name == "" {
		return Group{}, fmt.Errorf("workspace id and name are required")
	}
	now := time.Now().UTC()
	group := Group{
		ID:          "grp_" + uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		MemberIDs:   []string{},
		CreatedAt:   now,
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO groups (id, workspace_id, name, description, created_at_unix)
		 VALUES (?, ?, ?, ?, ?)`,
		group.ID, group.WorkspaceID, group.Name, group.Description, now.Unix(),
	); err != nil {
		return Group{}, fmt.Errorf("insert group: %w", err)
	}
	return group, nil
}

func (s *Store) GetGroup(ctx context.Context, id, workspaceID string) (Group, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, workspace_id, name, description, created_at_unix
		 FROM groups WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	group, err := scanGroup(row)
	if err != nil {
		return Group{}, err
	}
	members, err := s.groupMemberIDs(ctx, group.ID)
	if err != nil {
		return Group{}, err
	}
	group.MemberIDs = members
	return group, nil
}

func (s *Store) ListGroups(ctx context.Context, workspaceID string, limit int) ([]Group, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, workspace_id, name, description, created_at_unix
		 FROM groups WHERE workspace_id = ? ORDER BY created_at_unix ASC LIMIT ?`,
		strings.TrimSpace(workspaceID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	groups := []Group{}
	for rows.Next() {
		group, scanErr := scanGroup(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range groups {
		members, err := s.groupMemberIDs(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].MemberIDs = members
	}
	return groups, nil
}

type UpdateGroupInput struct {
	ID          string
	WorkspaceID string
	Name        string
	Description *string
}

func (s *Store) UpdateGroup(ctx context.Context, input UpdateGroupInput) (Group, error) {
	group, err := s.GetGroup(ctx, input.ID, input.WorkspaceID)
	if err != nil {
		return Group{}, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		group.Name = name
	}
	if input.Description != nil {
		group.Description = strings.TrimSpace(*input.Description)
	}
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE groups SET name = ?, description = ? WHERE id = ? AND workspace_id = ?`,
		group.Name, group.Description, group.ID, group.WorkspaceID,
	); err != nil {
		return Group{}, fmt.Errorf("update group: %w", err)
	}
	return group, nil
}

func (s *Store) DeleteGroup(ctx context.Context, id, workspaceID string) error {
	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM groups WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// AddGroupMembers adds every listed user to the group. Users already in the
// group are skipped rather than treated as an error.
func (s *Store) AddGroupMembers(ctx context.Context, groupID, workspaceID string, userIDs []string) (Group, error) {
	group, err := s.GetGroup(ctx, groupID, workspaceID)
	if err != nil {
		return Group{}, err
	}
	now := time.Now().UTC().Unix()
	for _, userID := range userIDs {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			continue
		}
		if _, err := s.GetUser(ctx, userID, workspaceID); err != nil {
			return Group{}, err
		}
		if _, err := s.db.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO group_members (group_id, user_id, created_at_unix) VALUES (?, ?, ?)`,
			group.ID, userID, now,
		); err != nil {
			return Group{}, fmt.Errorf("insert group member: %w", err)
		}
	}
	members, err := s.groupMemberIDs(ctx, group.ID)
	if err != nil {
		return Group{}, err
	}
	group.MemberIDs = members
	return group, nil
}

func (s *Store) RemoveGroupMember(ctx context.Context, groupID, workspaceID, userID string) (Group, error) {
	group, err := s.GetGroup(ctx, groupID, workspaceID)
	if err != nil {
		return Group{}, err
	}
	if _, err := s.db.ExecContext(
		ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`,
		group.ID, strings.TrimSpace(userID),
	); err != nil {
		return Group{}, fmt.Errorf("remove group member: %w", err)
	}
	members, err := s.groupMemberIDs(ctx, group.ID)
	if err != nil {
		return Group{}, err
	}
	group.MemberIDs = members
	return group, nil
}

func (s *Store) groupMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY created_at_unix ASC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanGroup(scanner rowScanner) (Group, error) {
	var group Group
	var createdAtUnix int64
	if err := scanner.Scan(&group.ID, &group.WorkspaceID, &group.Name, &group.Description, &createdAtUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Group{}, ErrGroupNotFound
		}
		return Group{}, fmt.Errorf("scan group: %w", err)
	}
	group.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	group.MemberIDs = []string{}
	return group, nil
}
