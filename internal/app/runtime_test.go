package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/ravendocs/raven-agent/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Environment:        "test",
		HTTPAddr:           "127.0.0.1:0",
		DBPath:             filepath.Join(t.TempDir(), "raven-agent", "meta.sqlite"),
		ApprovalEnabled:    true,
		ApprovalTTLSeconds: 300,
		LoopMaxActions:     3,
		LoopApprovalTTL:    600,
		LoopCronExpr:       "0 */6 * * *",
		LLMBaseURL:         "http://localhost:11434/v1",
		LLMModel:           "test-model",
		LLMTimeoutSec:      5,
	}
}

func TestNewCreatesDatabaseDirectory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runtime, err := New(testConfig(t), logger)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer runtime.Close()

	if runtime.MCPAdapter() == nil {
		t.Fatal("expected protocol adapter")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(t)
	cfg.SchedulerEnabled = true

	runtime, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer runtime.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runtime.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil && err != http.ErrServerClosed {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runtime did not stop after cancel")
	}
}
