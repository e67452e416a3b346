package approval

import (
	"context"
	"sync"
	"time"

	"github.com/ravendocs/raven-agent/internal/store"
)

// MemoryStore keeps pending approvals in process memory. It backs the ledger
// when no database is wired in, and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]store.ApprovalRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]store.ApprovalRecord{}}
}

func (m *MemoryStore) SaveApproval(_ context.Context, record store.ApprovalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.Token] = record
	return nil
}

func (m *MemoryStore) ConsumeApproval(_ context.Context, token, ownerUserID, method, paramsDigest string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[token]
	if !ok {
		return false, nil
	}
	if record.OwnerUserID != ownerUserID || record.Method != method || record.ParamsDigest != paramsDigest {
		return false, nil
	}
	if !record.ExpiresAt.After(now) {
		delete(m.records, token)
		return false, nil
	}
	delete(m.records, token)
	return true, nil
}

// Len reports the number of pending approvals.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
