package agent

// Settings holds the per-workspace agent configuration. The stored shape is a
// free-form JSON object under the workspace settings "agent" key, so unknown
// keys are ignored and missing keys fall back to defaults.
type Settings struct {
	Enabled                  bool
	EnableDailySummary       bool
	EnableAutoTriage         bool
	EnableMemoryAutoIngest   bool
	EnableGoalAutoLink       bool
	EnablePlannerLoop        bool
	EnableProactiveQuestions bool
	EnableAutonomousLoop     bool
	EnableMemoryInsights     bool

	AllowAgentChat       bool
	AllowReads           bool
	AllowTaskWrites      bool
	AllowPageWrites      bool
	AllowProjectWrites   bool
	AllowGoalWrites      bool
	AllowSpaceWrites     bool
	AllowWorkspaceWrites bool
}

// DefaultSettings keeps the autonomous loop and every write pipeline off
// until an admin opts in. The agent itself, chat and the read/insight
// pipelines work out of the box.
func DefaultSettings() Settings {
	return Settings{
		Enabled:                  true,
		EnableDailySummary:       true,
		EnableAutoTriage:         true,
		EnableMemoryAutoIngest:   true,
		EnableGoalAutoLink:       true,
		EnablePlannerLoop:        true,
		EnableProactiveQuestions: true,
		EnableMemoryInsights:     true,
		AllowAgentChat:           true,
		AllowReads:               true,
	}
}

// ResolveSettings overlays a workspace's stored agent settings object onto the
// defaults. Non-boolean values are ignored.
func ResolveSettings(raw map[string]any) Settings {
	settings := DefaultSettings()
	if raw == nil {
		return settings
	}
	overlay := func(key string, target *bool) {
		if value, ok := raw[key].(bool); ok {
			*target = value
		}
	}
	overlay("enabled", &settings.Enabled)
	overlay("enableDailySummary", &settings.EnableDailySummary)
	overlay("enableAutoTriage", &settings.EnableAutoTriage)
	overlay("enableMemoryAutoIngest", &settings.EnableMemoryAutoIngest)
	overlay("enableGoalAutoLink", &settings.EnableGoalAutoLink)
	overlay("enablePlannerLoop", &settings.EnablePlannerLoop)
	overlay("enableProactiveQuestions", &settings.EnableProactiveQuestions)
	overlay("enableAutonomousLoop", &settings.EnableAutonomousLoop)
	overlay("enableMemoryInsights", &settings.EnableMemoryInsights)
	overlay("allowAgentChat", &settings.AllowAgentChat)
	overlay("allowReads", &settings.AllowReads)
	overlay("allowTaskWrites", &settings.AllowTaskWrites)
	overlay("allowPageWrites", &settings.AllowPageWrites)
	overlay("allowProjectWrites", &settings.AllowProjectWrites)
	overlay("allowGoalWrites", &settings.AllowGoalWrites)
	overlay("allowSpaceWrites", &settings.AllowSpaceWrites)
	overlay("allowWorkspaceWrites", &settings.AllowWorkspaceWrites)
	return settings
}
