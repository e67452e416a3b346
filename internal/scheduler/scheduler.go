// Package scheduler runs the autonomous loop on a cron cadence for every
// workspace that has opted in, and sweeps expired approval tokens.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ravendocs/raven-agent/internal/agent"
	"github.com/ravendocs/raven-agent/internal/dispatch"
	"github.com/ravendocs/raven-agent/internal/loop"
	"github.com/ravendocs/raven-agent/internal/store"
)

// WorkspaceSource lists workspaces and their agent settings for the sweep.
type WorkspaceSource interface {
	ListWorkspaces(ctx context.Context, limit int) ([]store.Workspace, error)
	PurgeExpiredApprovals(ctx context.Context, now time.Time) (int64, error)
}

// LoopRunner is satisfied by *loop.Runner.
type LoopRunner interface {
	Run(ctx context.Context, user dispatch.User, spaceID string) (loop.Result, error)
}

type Scheduler struct {
	cron   *cron.Cron
	store  WorkspaceSource
	runner LoopRunner
	logger *slog.Logger
}

func New(ws WorkspaceSource, runner LoopRunner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		store:  ws,
		runner: runner,
		logger: logger.With("component", "scheduler"),
	}
}

// Register adds the loop sweep under the given cron expression, plus an
// hourly purge of expired approval tokens.
func (s *Scheduler) Register(expr string) error {
	if _, err := s.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("registering loop cron %q: %w", expr, err)
	}
	if _, err := s.cron.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if purged, err := s.store.PurgeExpiredApprovals(ctx, time.Now()); err != nil {
			s.logger.Warn("approval purge failed", "error", err)
		} else if purged > 0 {
			s.logger.Info("purged expired approvals", "count", purged)
		}
	}); err != nil {
		return fmt.Errorf("registering purge cron: %w", err)
	}
	return nil
}

// Sweep runs one loop pass for each workspace with the autonomous loop
// enabled, acting as the workspace owner. Failures in one workspace do not
// stop the sweep.
func (s *Scheduler) Sweep(ctx context.Context) {
	workspaces, err := s.store.ListWorkspaces(ctx, 200)
	if err != nil {
		s.logger.Error("workspace list failed", "error", err)
		return
	}
	for _, workspace := range workspaces {
		raw, _ := workspace.Settings["agent"].(map[string]any)
		settings := agent.ResolveSettings(raw)
		if !settings.Enabled || !settings.EnableAutonomousLoop {
			continue
		}
		if workspace.OwnerUserID == "" {
			s.logger.Warn("workspace has no owner, skipping", "workspace", workspace.ID)
			continue
		}
		user := dispatch.User{ID: workspace.OwnerUserID, WorkspaceID: workspace.ID}
		result, err := s.runner.Run(ctx, user, "")
		if err != nil {
			if errors.Is(err, loop.ErrForbidden) {
				continue
			}
			s.logger.Warn("scheduled loop run failed", "workspace", workspace.ID, "error", err)
			continue
		}
		s.logger.Info("scheduled loop run complete",
			"workspace", workspace.ID, "actions", len(result.Actions))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Entries reports the number of registered cron entries.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
