package mcpadapter

import (
	"strings"

	"github.com/ravendocs/raven-agent/internal/dispatch"
)

// fillerKeys are argument names some clients inject to satisfy "no empty
// arguments" heuristics. They carry no meaning and are dropped.
var fillerKeys = map[string]bool{
	"random_string": true,
}

// Translate maps an external tool call onto an internal method and its
// parameter shape. The returned params are a fresh map; the caller may
// mutate them. Explicit JSON nulls survive translation because downstream
// layers distinguish null from absent.
func Translate(toolName string, args map[string]any) (dispatch.Method, map[string]any, bool) {
	spec, ok := LookupTool(strings.TrimSpace(toolName))
	if !ok {
		return "", nil, false
	}

	params := make(map[string]any, len(args))
	for key, value := range args {
		if fillerKeys[key] {
			continue
		}
		params[key] = value
	}

	switch spec.Method {
	case dispatch.MethodCommentCreate:
		// The tool takes flat text; the method takes a content document.
		if text, ok := params["text"].(string); ok {
			delete(params, "text")
			params["content"] = map[string]any{"text": text}
		}
		if parent, ok := params["parentId"]; ok {
			delete(params, "parentId")
			params["parentCommentId"] = parent
		}
	case dispatch.MethodGroupAddMember:
		// Older clients send userId, newer ones userIds. Emit both so either
		// downstream shape works.
		if userID, ok := params["userId"].(string); ok && strings.TrimSpace(userID) != "" {
			if _, exists := params["userIds"]; !exists {
				params["userIds"] = []any{userID}
			}
		}
	case dispatch.MethodPageMove:
		if spaceID, ok := params["spaceId"]; ok {
			delete(params, "spaceId")
			params["targetSpaceId"] = spaceID
		}
	}

	return spec.Method, params, true
}
