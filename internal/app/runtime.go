// Package app wires the store, policy, ledger, dispatcher, planner, HTTP API
// and scheduler into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ravendocs/raven-agent/internal/agent"
	"github.com/ravendocs/raven-agent/internal/approval"
	"github.com/ravendocs/raven-agent/internal/config"
	"github.com/ravendocs/raven-agent/internal/dispatch"
	"github.com/ravendocs/raven-agent/internal/httpapi"
	"github.com/ravendocs/raven-agent/internal/llm"
	"github.com/ravendocs/raven-agent/internal/llm/openai"
	"github.com/ravendocs/raven-agent/internal/loop"
	"github.com/ravendocs/raven-agent/internal/mcpadapter"
	"github.com/ravendocs/raven-agent/internal/scheduler"
	"github.com/ravendocs/raven-agent/internal/store"
)

type Runtime struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *store.Store
	policy     *agent.Policy
	ledger     *approval.Ledger
	dispatcher *dispatch.Dispatcher
	adapter    *mcpadapter.Adapter
	hub        *httpapi.Hub
	scheduler  *scheduler.Scheduler
	httpServer *http.Server
}

func New(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	sqlStore, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		sqlStore.Close()
		return nil, err
	}

	policy := buildPolicy(cfg)
	ledger := approval.NewLedger(sqlStore, logger)
	dispatcher := dispatch.NewDispatcher(sqlStore, sqlStore, logger)
	planner := buildPlanner(cfg, logger)

	chat := agent.NewChat(sqlStore, planner, logger)
	runner := loop.NewRunner(sqlStore, policy, ledger, dispatcher, planner, loop.Config{
		MaxActions:  cfg.LoopMaxActions,
		ApprovalTTL: time.Duration(cfg.LoopApprovalTTL) * time.Second,
	}, logger)
	adapter := mcpadapter.New(policy, ledger, dispatcher, sqlStore,
		time.Duration(cfg.ApprovalTTLSeconds)*time.Second, logger)
	hub := httpapi.NewHub(logger)

	handler := httpapi.NewRouter(httpapi.Dependencies{
		Config:     cfg,
		Store:      sqlStore,
		Chat:       chat,
		Runner:     runner,
		Ledger:     ledger,
		Dispatcher: dispatcher,
		Hub:        hub,
		Logger:     logger,
	})

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		store:      sqlStore,
		policy:     policy,
		ledger:     ledger,
		dispatcher: dispatcher,
		adapter:    adapter,
		hub:        hub,
		scheduler:  scheduler.New(sqlStore, runner, logger),
		httpServer: &http.Server{Addr: cfg.HTTPAddr, Handler: handler},
	}, nil
}

// buildPolicy applies the operator overrides: a replacement mandatory set, or
// disabling mandatory approvals entirely. Permission flags always apply.
func buildPolicy(cfg config.Config) *agent.Policy {
	policyCfg := agent.DefaultPolicyConfig()
	if !cfg.ApprovalEnabled {
		policyCfg = policyCfg.WithoutMandatoryApprovals()
	} else if methods, ok := cfg.ApprovalMethods(); ok {
		policyCfg = policyCfg.WithMandatoryMethods(methods)
	}
	return agent.NewPolicy(policyCfg)
}

func buildPlanner(cfg config.Config, logger *slog.Logger) *plannerAdapter {
	client := openai.New(openai.Config{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		Timeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
	}, logger)
	return &plannerAdapter{inner: client}
}

// plannerAdapter bridges llm.Planner to the narrower signatures the chat and
// loop packages declare.
type plannerAdapter struct {
	inner llm.Planner
}

func (p *plannerAdapter) Complete(ctx context.Context, workspaceID, userID, prompt string) (string, error) {
	return p.inner.Complete(ctx, llm.PromptInput{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Text:        prompt,
	})
}

// MCPAdapter exposes the tool surface for the stdio protocol server.
func (r *Runtime) MCPAdapter() *mcpadapter.Adapter {
	return r.adapter
}

func (r *Runtime) Run(ctx context.Context) error {
	r.logger.Info("raven-agent starting", "addr", r.cfg.HTTPAddr, "db", r.cfg.DBPath)

	group, groupCtx := errgroup.WithContext(ctx)

	if r.cfg.SchedulerEnabled {
		if err := r.scheduler.Register(r.cfg.LoopCronExpr); err != nil {
			return err
		}
		r.scheduler.Start()
		group.Go(func() error {
			<-groupCtx.Done()
			r.scheduler.Stop()
			return nil
		})
	}

	group.Go(func() error {
		err := r.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return r.httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func (r *Runtime) Close() {
	r.hub.Close()
	if err := r.store.Close(); err != nil {
		r.logger.Error("store close failed", "error", err)
	}
}
