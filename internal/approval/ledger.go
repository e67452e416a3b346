package approval

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/ravendocs/raven-agent/internal/dispatch"
	"github.com/ravendocs/raven-agent/internal/store"
)

// Store persists pending approvals. The sqlite store and the in-memory store
// both satisfy it.
type Store interface {
	SaveApproval(ctx context.Context, record store.ApprovalRecord) error
	ConsumeApproval(ctx context.Context, token, ownerUserID, method, paramsDigest string, now time.Time) (bool, error)
}

// Grant is a pending approval handed back to the caller. The token is the
// only capability needed to later confirm the action.
type Grant struct {
	Token     string
	Method    dispatch.Method
	ExpiresAt time.Time
}

type Ledger struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewLedger(s Store, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  s,
		logger: logger.With("component", "approval"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create mints a single-use approval bound to the owner, the method and a
// digest of the exact parameters.
func (l *Ledger) Create(ctx context.Context, ownerUserID string, method dispatch.Method, params map[string]any, ttl time.Duration) (Grant, error) {
	token, err := newToken()
	if err != nil {
		return Grant{}, fmt.Errorf("mint approval token: %w", err)
	}
	digest, err := paramsDigest(params)
	if err != nil {
		return Grant{}, fmt.Errorf("digest approval params: %w", err)
	}
	now := l.now()
	record := store.ApprovalRecord{
		Token:        token,
		OwnerUserID:  ownerUserID,
		Method:       method.String(),
		ParamsDigest: digest,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
	}
	if err := l.store.SaveApproval(ctx, record); err != nil {
		return Grant{}, fmt.Errorf("save approval: %w", err)
	}
	l.logger.Info("approval created", "method", method.String(), "owner", ownerUserID, "expires_at", record.ExpiresAt)
	return Grant{Token: token, Method: method, ExpiresAt: record.ExpiresAt}, nil
}

// Consume atomically spends the token. Every failure mode collapses to
// false: missing token, wrong owner, wrong method, changed params, expiry,
// or a storage error. Callers get one bit and nothing to probe.
func (l *Ledger) Consume(ctx context.Context, ownerUserID string, method dispatch.Method, params map[string]any, token string) bool {
	digest, err := paramsDigest(params)
	if err != nil {
		l.logger.Warn("approval digest failed", "method", method.String(), "error", err)
		return false
	}
	ok, err := l.store.ConsumeApproval(ctx, token, ownerUserID, method.String(), digest, l.now())
	if err != nil {
		l.logger.Warn("approval consume failed", "method", method.String(), "error", err)
		return false
	}
	if ok {
		l.logger.Info("approval consumed", "method", method.String(), "owner", ownerUserID)
	}
	return ok
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// paramsDigest hashes a canonical rendering of the parameters. The
// approvalToken key is excluded so a request carrying its own token digests
// to the same value it was approved under. encoding/json emits map keys in
// sorted order and jcs settles number and string formatting, so two
// semantically equal parameter sets always share a digest.
func paramsDigest(params map[string]any) (string, error) {
	filtered := make(map[string]any, len(params))
	for key, value := range params {
		if key == "approvalToken" {
			continue
		}
		filtered[key] = value
	}
	encoded, err := json.Marshal(filtered)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(encoded)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
