package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ravendocs/raven-agent/internal/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCompleteSuccess(t *testing.T) {
	var receivedAuth string
	var receivedModel string
	var receivedMessages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		receivedAuth = req.Header.Get("Authorization")
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		receivedModel = body.Model
		receivedMessages = body.Messages
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  planned reply  "}},
			},
		})
	}))
	defer server.Close()

	client := New(Config{APIKey: "secret", BaseURL: server.URL, Model: "gpt-4o"}, testLogger())
	reply, err := client.Complete(context.Background(), llm.PromptInput{
		WorkspaceID:  "ws_1",
		UserID:       "usr_1",
		SystemPrompt: "You are the workspace agent.",
		Text:         "plan something",
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply != "planned reply" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if receivedAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header: %q", receivedAuth)
	}
	if receivedModel != "gpt-4o" {
		t.Fatalf("unexpected model: %q", receivedModel)
	}
	if len(receivedMessages) != 2 || receivedMessages[0].Role != "system" || receivedMessages[1].Content != "plan something" {
		t.Fatalf("unexpected messages: %+v", receivedMessages)
	}
}

func TestCompleteMissingAPIKeyIsUnavailable(t *testing.T) {
	client := New(Config{BaseURL: "https://api.openai.com/v1"}, testLogger())
	_, err := client.Complete(context.Background(), llm.PromptInput{Text: "hi"})
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCompleteLocalEndpointNeedsNoKey(t *testing.T) {
	if requiresAPIKey("http://localhost:11434/v1") {
		t.Fatal("localhost should not require a key")
	}
	if requiresAPIKey("http://ollama:11434/v1") {
		t.Fatal("ollama should not require a key")
	}
	if !requiresAPIKey("https://api.openai.com/v1") {
		t.Fatal("hosted endpoint should require a key")
	}
}

func TestCompleteUpstreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(Config{APIKey: "secret", BaseURL: server.URL}, testLogger())
	if _, err := client.Complete(context.Background(), llm.PromptInput{Text: "hi"}); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}
