package llm

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("llm unavailable")

// PromptInput carries one completion request. SystemPrompt frames the
// assistant's role; Text is the task-specific prompt body.
type PromptInput struct {
	WorkspaceID  string
	UserID       string
	SystemPrompt string
	Text         string
}

// Planner produces model completions. The loop runner and the chat service
// both consume it; tests substitute a stub.
type Planner interface {
	Complete(ctx context.Context, input PromptInput) (string, error)
}
