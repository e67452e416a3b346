package mcpadapter

import (
	"testing"

	"github.com/ravendocs/raven-agent/internal/dispatch"
)

func TestTranslateUnknownTool(t *testing.T) {
	if _, _, ok := Translate("space_transmogrify", nil); ok {
		t.Fatal("expected unknown tool to fail translation")
	}
}

func TestTranslateStripsFiller(t *testing.T) {
	_, params, ok := Translate("space_list", map[string]any{"random_string": "x", "limit": float64(5)})
	if !ok {
		t.Fatal("expected translation to succeed")
	}
	if _, exists := params["random_string"]; exists {
		t.Fatal("expected filler key to be stripped")
	}
	if params["limit"] != float64(5) {
		t.Fatalf("expected limit preserved, got %v", params["limit"])
	}
}

func TestTranslateCommentCreateReshapes(t *testing.T) {
	method, params, ok := Translate("comment_create", map[string]any{
		"pageId":   "pg_1",
		"text":     "Nice work",
		"parentId": "cmt_9",
	})
	if !ok || method != dispatch.MethodCommentCreate {
		t.Fatalf("unexpected translation: %v %v", method, ok)
	}
	content, isMap := params["content"].(map[string]any)
	if !isMap || content["text"] != "Nice work" {
		t.Fatalf("expected text wrapped into content, got %v", params["content"])
	}
	if _, exists := params["text"]; exists {
		t.Fatal("expected flat text key removed")
	}
	if params["parentCommentId"] != "cmt_9" {
		t.Fatalf("expected parentId renamed, got %v", params["parentCommentId"])
	}
	if _, exists := params["parentId"]; exists {
		t.Fatal("expected parentId removed")
	}
}

func TestTranslateGroupAddMemberKeepsBothShapes(t *testing.T) {
	method, params, ok := Translate("group_addMember", map[string]any{
		"groupId": "grp_1",
		"userId":  "usr_1",
	})
	if !ok || method != dispatch.MethodGroupAddMember {
		t.Fatalf("unexpected translation: %v %v", method, ok)
	}
	if params["userId"] != "usr_1" {
		t.Fatalf("expected userId kept, got %v", params["userId"])
	}
	userIDs, isSlice := params["userIds"].([]any)
	if !isSlice || len(userIDs) != 1 || userIDs[0] != "usr_1" {
		t.Fatalf("expected userIds mirror, got %v", params["userIds"])
	}
}

func TestTranslatePageMoveRenamesSpace(t *testing.T) {
	_, params, ok := Translate("page_move", map[string]any{
		"pageId":  "pg_1",
		"spaceId": "spc_2",
	})
	if !ok {
		t.Fatal("expected translation to succeed")
	}
	if params["targetSpaceId"] != "spc_2" {
		t.Fatalf("expected spaceId renamed, got %v", params["targetSpaceId"])
	}
	if _, exists := params["spaceId"]; exists {
		t.Fatal("expected spaceId removed")
	}
}

func TestTranslatePreservesExplicitNullParent(t *testing.T) {
	_, params, ok := Translate("page_move", map[string]any{
		"pageId":   "pg_1",
		"parentId": nil,
	})
	if !ok {
		t.Fatal("expected translation to succeed")
	}
	value, exists := params["parentId"]
	if !exists || value != nil {
		t.Fatalf("expected explicit null preserved, got exists=%v value=%v", exists, value)
	}
}

func TestCatalogMethodsAllParse(t *testing.T) {
	for _, spec := range Catalog() {
		if _, ok := dispatch.ParseMethod(spec.Method.String()); !ok {
			t.Fatalf("tool %s maps to unregistered method %s", spec.Name, spec.Method)
		}
	}
}
