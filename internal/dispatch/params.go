package dispatch

import (
	"encoding/json"
	"strings"
)

func strParam(params map[string]any, key string) string {
	value, _ := params[key].(string)
	return strings.TrimSpace(value)
}

// intParam accepts the numeric shapes JSON decoding produces.
func intParam(params map[string]any, key string) int {
	switch value := params[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	case json.Number:
		parsed, err := value.Int64()
		if err != nil {
			return 0
		}
		return int(parsed)
	default:
		return 0
	}
}

func mapParam(params map[string]any, key string) map[string]any {
	value, _ := params[key].(map[string]any)
	return value
}

func strsParam(params map[string]any, key string) []string {
	var out []string
	switch value := params[key].(type) {
	case []string:
		for _, entry := range value {
			if entry = strings.TrimSpace(entry); entry != "" {
				out = append(out, entry)
			}
		}
	case []any:
		for _, entry := range value {
			if s, ok := entry.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// optStrPtr returns nil when the key is absent so callers can distinguish
// "not provided" from "set to empty".
func optStrPtr(params map[string]any, key string) *string {
	raw, ok := params[key]
	if !ok {
		return nil
	}
	value, _ := raw.(string)
	value = strings.TrimSpace(value)
	return &value
}

// triStateStrPtr handles keys where an explicit JSON null carries meaning:
// absent → nil, null or empty → pointer to "", value → pointer to it.
func triStateStrPtr(params map[string]any, key string) *string {
	raw, ok := params[key]
	if !ok {
		return nil
	}
	empty := ""
	if raw == nil {
		return &empty
	}
	value, _ := raw.(string)
	value = strings.TrimSpace(value)
	return &value
}
