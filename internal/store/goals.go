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

var ErrGoalNotFound = errors.New("goal not found")

type Goal struct {
	ID          string
	WorkspaceID string
	SpaceID     string
	Name        string
	Horizon     string
	Keywords    []string
	CreatedAt   time.Time
}

type CreateGoalInput struct {
	WorkspaceID string
	SpaceID     string
	Name        string
	Horizon     string
	Keywords    []string
}

func (s *Store) CreateGoal(ctx context.Context, input CreateGoalInput) (Goal, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	name := strings.TrimSpace(input.Name)
	if workspaceID == "" || name == "" {
		return Goal{}, fmt.Errorf("workspace id and name are required")
	}
	now := time.Now().UTC()
	goal := Goal{
		ID:          "gol_" + uuid.NewString(),
		WorkspaceID: workspaceID,
		SpaceID:     strings.TrimSpace(input.SpaceID),
		Name:        name,
		Horizon:     strings.TrimSpace(input.Horizon),
		Keywords:    normalizeKeywords(input.Keywords),
		CreatedAt:   now,
	}
	encoded, err := json.Marshal(goal.Keywords)
	if err != nil {
		return Goal{}, fmt.Errorf("encode goal keywords: %w", err)
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO goals (id, workspace_id, space_id, name, horizon, keywords_json, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		goal.ID, goal.WorkspaceID, nullIfEmpty(goal.SpaceID), goal.Name, goal.Horizon, string(encoded), now.Unix(),
	); err != nil {
		return Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return goal, nil
}

func (s *Store) GetGoal(ctx context.Context, id, workspaceID string) (Goal, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, workspace_id, COALESCE(space_id, ''), name, horizon, keywords_json, created_at_unix
		 FROM goals WHERE id = ? AND workspace_id = ?`,
		strings.TrimSpace(id), strings.TrimSpace(workspaceID),
	)
	return scanGoal(row)
}

func (s *Store) ListGoals(ctx context.Context, workspaceID string, limit int) ([]Goal, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, workspace_id, COALESCE(space_id, ''), name, horizon, keywords_json, created_at_unix
		 FROM goals WHERE workspace_id = ? ORDER BY created_at_unix ASC LIMIT ?`,
		strings.TrimSpace(workspaceID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	goals := []Goal{}
	for rows.Next() {
		goal, scanErr := scanGoal(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		goals = append(goals, goal)
	}
	return goals, rows.Err()
}

type UpdateGoalInput struct {
	ID          string
	WorkspaceID string
	Name        string
	Horizon     string
	Keywords    []string
}

func (s *Store) UpdateGoal(ctx context.Context, input UpdateGoalInput) (Goal, error) {
	goal, err := s.GetGoal(ctx, input.ID, input.WorkspaceID)
	if err != nil {
		return Goal{}, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		goal.Name = name
	}
	if horizon := strings.TrimSpace(input.Horizon); horizon != "" {
		goal.Horizon = horizon
	}
	if input.Keywords != nil {
		goal.Keywords = normalizeKeywords(input.Keywords)
	}
	encoded, err := json.Marshal(goal.Keywords)
	if err != nil {
		return Goal{}, fmt.Errorf("encode goal keywords: %w", err)
	}
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE goals SET name = ?, horizon = ?, keywords_json = ? WHERE id = ? AND workspace_id = ?`,
		goal.Name, goal.Horizon, string(encoded), goal.ID, goal.WorkspaceID,
	); err != nil {
		return Goal{}, fmt.Errorf("update goal: %w", err)
	}
	return goal, nil
}

func scanGoal(scanner rowScanner) (Goal, error) {
	var goal Goal
	var keywordsJSON string
	var createdAtUnix int64
	if err := scanner.Scan(&goal.ID, &goal.WorkspaceID, &goal.SpaceID, &goal.Name, &goal.Horizon, &keywordsJSON, &createdAtUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Goal{}, ErrGoalNotFound
		}
		return Goal{}, fmt.Errorf("scan goal: %w", err)
	}
	goal.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	goal.Keywords = []string{}
	if strings.TrimSpace(keywordsJSON) != "" {
		if err := json.Unmarshal([]byte(keywordsJSON), &goal.Keywords); err != nil {
			return Goal{}, fmt.Errorf("decode goal keywords: %w", err)
		}
	}
	return goal, nil
}

func normalizeKeywords(keywords []string) []string {
	out := []string{}
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		out = append(out, keyword)
	}
	return out
}
