package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type ApprovalRecord struct {
	Token        string
	OwnerUserID  string
	Method       string
	ParamsDigest string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

func (s *Store) SaveApproval(ctx context.Context, record ApprovalRecord) error {
	token := strings.TrimSpace(record.Token)
	if token == "" {
		return fmt.Errorf("approval token is required")
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO agent_approvals (token, owner_user_id, method, params_digest, expires_at_unix, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		token, record.OwnerUserID, record.Method, record.ParamsDigest,
		record.ExpiresAt.Unix(), record.CreatedAt.Unix(),
	); err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

// ConsumeApproval deletes the approval only when every binding matches and
// the record has not expired. A single conditional delete keeps consumption
// atomic under concurrent callers.
func (s *Store) ConsumeApproval(ctx context.Context, token, ownerUserID, method, paramsDigest string, now time.Time) (bool, error) {
	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM agent_approvals
		 WHERE token = ? AND owner_user_id = ? AND method = ? AND params_digest = ? AND expires_at_unix > ?`,
		strings.TrimSpace(token), ownerUserID, method, paramsDigest, now.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("consume approval: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume approval: %w", err)
	}
	return affected == 1, nil
}

// DeleteApproval removes a pending approval on behalf of its owner. The
// owner binding keeps one user's token from being destroyed by another.
func (s *Store) DeleteApproval(ctx context.Context, token, ownerUserID string) (bool, error) {
	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM agent_approvals WHERE token = ? AND owner_user_id = ?`,
		strings.TrimSpace(token), ownerUserID,
	)
	if err != nil {
		return false, fmt.Errorf("delete approval: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete approval: %w", err)
	}
	return affected == 1, nil
}

func (s *Store) PurgeExpiredApprovals(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM agent_approvals WHERE expires_at_unix <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge approvals: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}
