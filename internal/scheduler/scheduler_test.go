package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ravendocs/raven-agent/internal/dispatch"
	"github.com/ravendocs/raven-agent/internal/loop"
	"github.com/ravendocs/raven-agent/internal/store"
)

type fakeSource struct {
	workspaces []store.Workspace
	purged     int64
}

func (f *fakeSource) ListWorkspaces(context.Context, int) ([]store.Workspace, error) {
	return f.workspaces, nil
}

func (f *fakeSource) PurgeExpiredApprovals(context.Context, time.Time) (int64, error) {
	return f.purged, nil
}

type recordingRunner struct {
	mu   sync.Mutex
	runs []dispatch.User
	err  error
}

func (r *recordingRunner) Run(_ context.Context, user dispatch.User, _ string) (loop.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, user)
	return loop.Result{Summary: "ok"}, r.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweepRunsOnlyOptedInWorkspaces(t *testing.T) {
	source := &fakeSource{workspaces: []store.Workspace{
		{
			ID:          "ws_on",
			OwnerUserID: "usr_owner",
			Settings: map[string]any{"agent": map[string]any{
				"enabled":              true,
				"enableAutonomousLoop": true,
			}},
		},
		{
			ID:          "ws_off",
			OwnerUserID: "usr_other",
			Settings:    map[string]any{"agent": map[string]any{"enabled": true}},
		},
		{ID: "ws_default", OwnerUserID: "usr_third"},
	}}
	runner := &recordingRunner{}

	s := New(source, runner, testLogger())
	s.Sweep(context.Background())

	if len(runner.runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runner.runs))
	}
	if runner.runs[0].ID != "usr_owner" || runner.runs[0].WorkspaceID != "ws_on" {
		t.Fatalf("unexpected acting user: %+v", runner.runs[0])
	}
}

func TestSweepSkipsOwnerlessWorkspace(t *testing.T) {
	source := &fakeSource{workspaces: []store.Workspace{
		{
			ID: "ws_orphan",
			Settings: map[string]any{"agent": map[string]any{
				"enabled":              true,
				"enableAutonomousLoop": true,
			}},
		},
	}}
	runner := &recordingRunner{}

	s := New(source, runner, testLogger())
	s.Sweep(context.Background())

	if len(runner.runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runner.runs))
	}
}

func TestSweepContinuesPastRunnerFailure(t *testing.T) {
	enabled := map[string]any{"agent": map[string]any{
		"enabled":              true,
		"enableAutonomousLoop": true,
	}}
	source := &fakeSource{workspaces: []store.Workspace{
		{ID: "ws_a", OwnerUserID: "usr_a", Settings: enabled},
		{ID: "ws_b", OwnerUserID: "usr_b", Settings: enabled},
	}}
	runner := &recordingRunner{err: loop.ErrForbidden}

	s := New(source, runner, testLogger())
	s.Sweep(context.Background())

	if len(runner.runs) != 2 {
		t.Fatalf("expected both workspaces attempted, got %d", len(runner.runs))
	}
}

func TestRegisterValidatesExpression(t *testing.T) {
	s := New(&fakeSource{}, &recordingRunner{}, testLogger())
	if err := s.Register("not a cron"); err == nil {
		t.Fatal("expected invalid expression to fail")
	}

	s = New(&fakeSource{}, &recordingRunner{}, testLogger())
	if err := s.Register("0 */6 * * *"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.Entries() != 2 {
		t.Fatalf("expected loop and purge entries, got %d", s.Entries())
	}
}
