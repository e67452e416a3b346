package approval

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ravendocs/raven-agent/internal/dispatch"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLedger(NewMemoryStore(), logger)
}

func TestLedgerRoundTripOnce(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	params := map[string]any{"taskId": "tsk_1", "workspaceId": "ws_1"}

	grant, err := ledger.Create(ctx, "usr_1", dispatch.MethodTaskDelete, params, 5*time.Minute)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(grant.Token) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", grant.Token)
	}

	if !ledger.Consume(ctx, "usr_1", dispatch.MethodTaskDelete, params, grant.Token) {
		t.Fatal("expected first consume to succeed")
	}
	if ledger.Consume(ctx, "usr_1", dispatch.MethodTaskDelete, params, grant.Token) {
		t.Fatal("expected second consume to fail")
	}
}

func TestLedgerRejectsTamperedParams(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	grant, err := ledger.Create(ctx, "usr_1", dispatch.MethodTaskDelete, map[string]any{"taskId": "tsk_1"}, 5*time.Minute)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ledger.Consume(ctx, "usr_1", dispatch.MethodTaskDelete, map[string]any{"taskId": "tsk_2"}, grant.Token) {
		t.Fatal("expected changed params to be rejected")
	}
}

func TestLedgerRejectsWrongOwnerAndMethod(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	params := map[string]any{"pageId": "pg_1"}

	grant, err := ledger.Create(ctx, "usr_1", dispatch.MethodPageDelete, params, 5*time.Minute)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ledger.Consume(ctx, "usr_2", dispatch.MethodPageDelete, params, grant.Token) {
		t.Fatal("expected wrong owner to be rejected")
	}
	if ledger.Consume(ctx, "usr_1", dispatch.MethodPageUpdate, params, grant.Token) {
		t.Fatal("expected wrong method to be rejected")
	}
}

func TestLedgerExpiry(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	params := map[string]any{"spaceId": "spc_1"}

	grant, err := ledger.Create(ctx, "usr_1", dispatch.MethodSpaceDelete, params, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ledger.Consume(ctx, "usr_1", dispatch.MethodSpaceDelete, params, grant.Token) {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestDigestIgnoresKeyOrderAndApprovalToken(t *testing.T) {
	first, err := paramsDigest(map[string]any{"a": 1, "b": "two", "approvalToken": "tok"})
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	second, err := paramsDigest(map[string]any{"b": "two", "a": 1})
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical digests, got %s and %s", first, second)
	}

	third, err := paramsDigest(map[string]any{"a": 2, "b": "two"})
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if first == third {
		t.Fatal("expected different params to produce different digests")
	}
}
