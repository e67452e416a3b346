package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ravendocs/raven-agent/internal/app"
	"github.com/ravendocs/raven-agent/internal/config"
	"github.com/ravendocs/raven-agent/internal/dispatch"
	"github.com/ravendocs/raven-agent/internal/mcpadapter"
)

const version = "0.1.0"

func NewRoot(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "raven-agent",
		Short: "Raven Agent is the workspace agent service for Raven Docs",
	}

	root.AddCommand(newServeCommand(logger))
	root.AddCommand(newMCPCommand(logger))
	root.AddCommand(newVersionCommand())

	return root
}

func newServeCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the autonomous-loop scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			runtime, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer runtime.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runtime.Run(ctx)
		},
	}
}

func newMCPCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the tool protocol server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := sessionUserFromEnv()
			if err != nil {
				return err
			}
			runtime, err := app.New(config.FromEnv(), logger)
			if err != nil {
				return err
			}
			defer runtime.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return mcpadapter.NewServer(runtime.MCPAdapter(), user, logger).Run(ctx)
		},
	}
}

// sessionUserFromEnv resolves the acting identity for a stdio session. The
// server is single-user: every tool call runs as this user in this workspace.
func sessionUserFromEnv() (dispatch.User, error) {
	userID := strings.TrimSpace(os.Getenv("RAVEN_AGENT_USER_ID"))
	workspaceID := strings.TrimSpace(os.Getenv("RAVEN_AGENT_WORKSPACE_ID"))
	if userID == "" || workspaceID == "" {
		return dispatch.User{}, fmt.Errorf("RAVEN_AGENT_USER_ID and RAVEN_AGENT_WORKSPACE_ID are required")
	}
	return dispatch.User{ID: userID, WorkspaceID: workspaceID}, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}
