package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ravendocs/raven-agent/internal/store"
)

// ErrChatForbidden is returned when the workspace has chat disabled or the
// caller cannot read the target space.
var ErrChatForbidden = errors.New("agent chat not permitted")

const chatSystemPrompt = `You are the workspace assistant for a collaborative wiki. ` +
	`Answer from the provided workspace context. Be brief and concrete.`

const chatFallbackReply = "The agent is unavailable right now. Please try again later."

type ChatStore interface {
	GetWorkspace(ctx context.Context, id string) (store.Workspace, error)
	CheckSpaceAccess(ctx context.Context, userID, workspaceID, spaceID string) error
	TriageCounts(ctx context.Context, workspaceID string) (map[string]int, error)
	QueryMemories(ctx context.Context, input store.QueryMemoriesInput) ([]store.Memory, error)
	IngestMemory(ctx context.Context, input store.IngestMemoryInput) (store.Memory, error)
}

type ChatPlanner interface {
	Complete(ctx context.Context, workspaceID, userID, prompt string) (string, error)
}

// Chat answers user messages with workspace context. The model being down
// degrades to a canned reply rather than an error.
type Chat struct {
	store   ChatStore
	planner ChatPlanner
	logger  *slog.Logger
}

func NewChat(cs ChatStore, planner ChatPlanner, logger *slog.Logger) *Chat {
	return &Chat{store: cs, planner: planner, logger: logger.With("component", "chat")}
}

func (c *Chat) Send(ctx context.Context, userID, workspaceID, spaceID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("message is required")
	}
	workspace, err := c.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return "", fmt.Errorf("load workspace: %w", err)
	}
	settings := ResolveSettings(agentSettingsOf(workspace))
	if !settings.Enabled || !settings.AllowAgentChat {
		return "", ErrChatForbidden
	}
	if err := c.store.CheckSpaceAccess(ctx, userID, workspaceID, spaceID); err != nil {
		if errors.Is(err, store.ErrAccessDenied) {
			return "", ErrChatForbidden
		}
		return "", fmt.Errorf("check space access: %w", err)
	}

	prompt := c.buildPrompt(ctx, workspaceID, message)
	reply, err := c.planner.Complete(ctx, workspaceID, userID, prompt)
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			c.logger.Warn("chat completion failed", "workspace", workspaceID, "error", err)
		}
		reply = chatFallbackReply
	}

	if settings.EnableMemoryAutoIngest {
		c.ingest(ctx, workspaceID, spaceID, "user", message)
		c.ingest(ctx, workspaceID, spaceID, "assistant", reply)
	}
	return reply, nil
}

func (c *Chat) buildPrompt(ctx context.Context, workspaceID, message string) string {
	var builder strings.Builder
	builder.WriteString(chatSystemPrompt)
	builder.WriteString("\n\n")
	if counts, err := c.store.TriageCounts(ctx, workspaceID); err == nil && len(counts) > 0 {
		builder.WriteString("Task counts by status:\n")
		for status, count := range counts {
			fmt.Fprintf(&builder, "- %s: %d\n", status, count)
		}
	}
	if memories, err := c.store.QueryMemories(ctx, store.QueryMemoriesInput{WorkspaceID: workspaceID, Tag: "chat", Limit: 5}); err == nil && len(memories) > 0 {
		builder.WriteString("Recent conversation notes:\n")
		for _, memory := range memories {
			fmt.Fprintf(&builder, "- %s\n", memory.Summary)
		}
	}
	builder.WriteString("\nUser message:\n")
	builder.WriteString(message)
	return builder.String()
}

func (c *Chat) ingest(ctx context.Context, workspaceID, spaceID, role, text string) {
	if _, err := c.store.IngestMemory(ctx, store.IngestMemoryInput{
		WorkspaceID: workspaceID,
		SpaceID:     spaceID,
		Source:      role,
		Summary:     truncateSummary(text),
		Content:     map[string]any{"text": text},
		Tags:        []string{"chat", role},
	}); err != nil {
		c.logger.Warn("chat memory ingest failed", "workspace", workspaceID, "error", err)
	}
}

func agentSettingsOf(workspace store.Workspace) map[string]any {
	raw, _ := workspace.Settings["agent"].(map[string]any)
	return raw
}

func truncateSummary(text string) string {
	const max = 160
	if len(text) <= max {
		return text
	}
	return text[:max]
}
