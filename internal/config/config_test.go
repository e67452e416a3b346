package config

import (
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"RAVEN_AGENT_ENV",
		"RAVEN_AGENT_HTTP_ADDR",
		"RAVEN_AGENT_DATA_DIR",
		"RAVEN_AGENT_DB_PATH",
		"RAVEN_AGENT_APPROVAL_ENABLED",
		"RAVEN_AGENT_APPROVAL_METHODS",
		"RAVEN_AGENT_APPROVAL_TTL_SECONDS",
		"RAVEN_AGENT_LOOP_MAX_ACTIONS",
		"RAVEN_AGENT_LOOP_APPROVAL_TTL_SECONDS",
		"RAVEN_AGENT_LOOP_CRON",
		"RAVEN_AGENT_SCHEDULER_ENABLED",
		"RAVEN_AGENT_LLM_PROVIDER",
		"RAVEN_AGENT_LLM_BASE_URL",
		"RAVEN_AGENT_LLM_API_KEY",
		"RAVEN_AGENT_LLM_MODEL",
		"RAVEN_AGENT_LLM_TIMEOUT_SECONDS",
	} {
		t.Setenv(name, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()
	if cfg.Environment != "development" {
		t.Fatalf("unexpected environment: %q", cfg.Environment)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr: %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != filepath.Join("/data", "raven-agent", "meta.sqlite") {
		t.Fatalf("unexpected db path: %q", cfg.DBPath)
	}
	if !cfg.ApprovalEnabled {
		t.Fatal("expected approvals enabled by default")
	}
	if cfg.ApprovalTTLSeconds != 300 {
		t.Fatalf("unexpected approval ttl: %d", cfg.ApprovalTTLSeconds)
	}
	if cfg.LoopMaxActions != 3 || cfg.LoopApprovalTTL != 600 {
		t.Fatalf("unexpected loop limits: %d %d", cfg.LoopMaxActions, cfg.LoopApprovalTTL)
	}
	if cfg.LoopCronExpr != "0 */6 * * *" {
		t.Fatalf("unexpected cron: %q", cfg.LoopCronExpr)
	}
	if !cfg.SchedulerEnabled {
		t.Fatal("expected scheduler enabled by default")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAVEN_AGENT_DATA_DIR", "/var/lib")
	t.Setenv("RAVEN_AGENT_APPROVAL_ENABLED", "false")
	t.Setenv("RAVEN_AGENT_LOOP_MAX_ACTIONS", "5")
	t.Setenv("RAVEN_AGENT_APPROVAL_TTL_SECONDS", "not-a-number")

	cfg := FromEnv()
	if cfg.DBPath != filepath.Join("/var/lib", "raven-agent", "meta.sqlite") {
		t.Fatalf("unexpected db path: %q", cfg.DBPath)
	}
	if cfg.ApprovalEnabled {
		t.Fatal("expected approvals disabled")
	}
	if cfg.LoopMaxActions != 5 {
		t.Fatalf("unexpected loop max: %d", cfg.LoopMaxActions)
	}
	// Unparseable numbers fall back to the default.
	if cfg.ApprovalTTLSeconds != 300 {
		t.Fatalf("unexpected approval ttl: %d", cfg.ApprovalTTLSeconds)
	}
}

func TestApprovalMethodsParsing(t *testing.T) {
	cfg := Config{}
	if _, ok := cfg.ApprovalMethods(); ok {
		t.Fatal("expected no override when unset")
	}

	cfg.ApprovalMethodsCSV = "task.delete, page.delete,,  workspace.delete "
	methods, ok := cfg.ApprovalMethods()
	if !ok {
		t.Fatal("expected override")
	}
	want := []string{"task.delete", "page.delete", "workspace.delete"}
	if len(methods) != len(want) {
		t.Fatalf("expected %d methods, got %v", len(want), methods)
	}
	for i, method := range want {
		if methods[i] != method {
			t.Fatalf("expected %q at %d, got %q", method, i, methods[i])
		}
	}
}
