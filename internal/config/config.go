package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	Environment string
	HTTPAddr    string
	DataDir     string
	DBPath      string

	ApprovalEnabled    bool
	ApprovalMethodsCSV string
	ApprovalTTLSeconds int

	LoopMaxActions   int
	LoopApprovalTTL  int
	LoopCronExpr     string
	SchedulerEnabled bool

	LLMProvider   string // openai-compatible
	LLMBaseURL    string
	LLMAPIKey     string
	LLMModel      string
	LLMTimeoutSec int
}

func FromEnv() Config {
	dataDir := stringOrDefault("RAVEN_AGENT_DATA_DIR", "/data")
	dbPath := stringOrDefault("RAVEN_AGENT_DB_PATH", filepath.Join(dataDir, "raven-agent", "meta.sqlite"))

	return Config{
		Environment: stringOrDefault("RAVEN_AGENT_ENV", "development"),
		HTTPAddr:    stringOrDefault("RAVEN_AGENT_HTTP_ADDR", ":8080"),
		DataDir:     dataDir,
		DBPath:      dbPath,

		ApprovalEnabled:    boolOrDefault("RAVEN_AGENT_APPROVAL_ENABLED", true),
		ApprovalMethodsCSV: strings.TrimSpace(os.Getenv("RAVEN_AGENT_APPROVAL_METHODS")),
		ApprovalTTLSeconds: intOrDefault("RAVEN_AGENT_APPROVAL_TTL_SECONDS", 300),

		LoopMaxActions:   intOrDefault("RAVEN_AGENT_LOOP_MAX_ACTIONS", 3),
		LoopApprovalTTL:  intOrDefault("RAVEN_AGENT_LOOP_APPROVAL_TTL_SECONDS", 600),
		LoopCronExpr:     stringOrDefault("RAVEN_AGENT_LOOP_CRON", "0 */6 * * *"),
		SchedulerEnabled: boolOrDefault("RAVEN_AGENT_SCHEDULER_ENABLED", true),

		LLMProvider:   stringOrDefault("RAVEN_AGENT_LLM_PROVIDER", "openai"),
		LLMBaseURL:    stringOrDefault("RAVEN_AGENT_LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:     strings.TrimSpace(os.Getenv("RAVEN_AGENT_LLM_API_KEY")),
		LLMModel:      stringOrDefault("RAVEN_AGENT_LLM_MODEL", "gpt-4o"),
		LLMTimeoutSec: intOrDefault("RAVEN_AGENT_LLM_TIMEOUT_SECONDS", 60),
	}
}

// ApprovalMethods parses the operator override for the mandatory-approval set.
// An empty slice with ok=false means no override was configured.
func (c Config) ApprovalMethods() (methods []string, ok bool) {
	if c.ApprovalMethodsCSV == "" {
		return nil, false
	}
	for _, entry := range strings.Split(c.ApprovalMethodsCSV, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		methods = append(methods, entry)
	}
	return methods, true
}

func stringOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func boolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
