package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ravendocs/raven-agent/internal/agent"
	"github.com/ravendocs/raven-agent/internal/dispatch"
	"github.com/ravendocs/raven-agent/internal/loop"
	"github.com/ravendocs/raven-agent/internal/store"
)

type chatRequest struct {
	SpaceID string `json:"spaceId"`
	Message string `json:"message"`
}

func (r *router) handleChat(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	user, ok := actingUser(req)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity headers"})
		return
	}
	var payload chatRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	reply, err := r.deps.Chat.Send(req.Context(), user.ID, user.WorkspaceID, payload.SpaceID, payload.Message)
	if err != nil {
		if errors.Is(err, agent.ErrChatForbidden) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "agent chat not permitted"})
			return
		}
		r.deps.Logger.Error("chat failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "chat failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

type loopRequest struct {
	SpaceID string `json:"spaceId"`
}

func (r *router) handleLoop(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	user, ok := actingUser(req)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity headers"})
		return
	}
	var payload loopRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	result, err := r.deps.Runner.Run(req.Context(), user, strings.TrimSpace(payload.SpaceID))
	if err != nil {
		if errors.Is(err, loop.ErrForbidden) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "autonomous loop not permitted"})
			return
		}
		r.deps.Logger.Error("loop run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "loop run failed"})
		return
	}
	r.publishApprovalEvents(user, result)
	writeJSON(w, http.StatusOK, result)
}

func (r *router) publishApprovalEvents(user dispatch.User, result loop.Result) {
	if r.deps.Hub == nil {
		return
	}
	for _, action := range result.Actions {
		if token, ok := strings.CutPrefix(action.Status, "approval:"); ok {
			r.deps.Hub.Publish(user.WorkspaceID, map[string]any{
				"event":       "approval.created",
				"workspaceId": user.WorkspaceID,
				"method":      action.Method,
				"token":       token,
			})
		}
	}
}

type approvalConfirmRequest struct {
	Token  string         `json:"token"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// handleApprovalConfirm spends the token and, on success, executes the
// approved action as the confirming user.
func (r *router) handleApprovalConfirm(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	user, ok := actingUser(req)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity headers"})
		return
	}
	var payload approvalConfirmRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	method, ok := dispatch.ParseMethod(strings.TrimSpace(payload.Method))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown method"})
		return
	}
	if payload.Params == nil {
		payload.Params = map[string]any{}
	}
	if !r.deps.Ledger.Consume(req.Context(), user.ID, method, payload.Params, payload.Token) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "approval could not be confirmed"})
		return
	}
	result, rpcErr := r.deps.Dispatcher.Dispatch(req.Context(), method, payload.Params, user)
	if rpcErr != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": rpcErr.Message, "code": rpcErr.Code})
		return
	}
	if r.deps.Hub != nil {
		r.deps.Hub.Publish(user.WorkspaceID, map[string]any{
			"event":       "approval.confirmed",
			"workspaceId": user.WorkspaceID,
			"method":      method.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": true, "result": result})
}

type approvalRejectRequest struct {
	Token string `json:"token"`
}

func (r *router) handleApprovalReject(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	user, ok := actingUser(req)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity headers"})
		return
	}
	var payload approvalRejectRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if strings.TrimSpace(payload.Token) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}
	// Only the token's owner can reject it.
	rejected, err := r.deps.Store.DeleteApproval(req.Context(), payload.Token, user.ID)
	if err != nil {
		r.deps.Logger.Error("approval reject failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reject failed"})
		return
	}
	if !rejected {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "approval not found"})
		return
	}
	if r.deps.Hub != nil {
		r.deps.Hub.Publish(user.WorkspaceID, map[string]any{
			"event":       "approval.rejected",
			"workspaceId": user.WorkspaceID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rejected": true})
}

func (r *router) handleMemories(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	user, ok := actingUser(req)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity headers"})
		return
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	memories, err := r.deps.Store.QueryMemories(req.Context(), store.QueryMemoriesInput{
		WorkspaceID: user.WorkspaceID,
		Tag:         req.URL.Query().Get("tag"),
		Limit:       limit,
	})
	if err != nil {
		r.deps.Logger.Error("memory query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "memory query failed"})
		return
	}
	items := make([]map[string]any, 0, len(memories))
	for _, memory := range memories {
		items = append(items, map[string]any{
			"id":        memory.ID,
			"source":    memory.Source,
			"summary":   memory.Summary,
			"tags":      memory.Tags,
			"createdAt": memory.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": items})
}
