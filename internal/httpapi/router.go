package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ravendocs/raven-agent/internal/agent"
	"github.com/ravendocs/raven-agent/internal/approval"
	"github.com/ravendocs/raven-agent/internal/config"
	"github.com/ravendocs/raven-agent/internal/dispatch"
	"github.com/ravendocs/raven-agent/internal/loop"
	"github.com/ravendocs/raven-agent/internal/store"
)

type Dependencies struct {
	Config     config.Config
	Store      *store.Store
	Chat       *agent.Chat
	Runner     *loop.Runner
	Ledger     *approval.Ledger
	Dispatcher *dispatch.Dispatcher
	Hub        *Hub
	Logger     *slog.Logger
}

type router struct {
	deps Dependencies
}

func NewRouter(deps Dependencies) http.Handler {
	rt := &router{deps: deps}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.handleHealth)
	mux.HandleFunc("/readyz", rt.handleReady)
	mux.HandleFunc("/api/v1/info", rt.handleInfo)
	mux.HandleFunc("/api/v1/agent/chat", rt.handleChat)
	mux.HandleFunc("/api/v1/agent/loop", rt.handleLoop)
	mux.HandleFunc("/api/v1/agent/approvals/confirm", rt.handleApprovalConfirm)
	mux.HandleFunc("/api/v1/agent/approvals/reject", rt.handleApprovalReject)
	mux.HandleFunc("/api/v1/agent/memories", rt.handleMemories)
	if deps.Hub != nil {
		mux.HandleFunc("/api/v1/agent/approvals/ws", rt.handleApprovalFeed)
	}
	return mux
}

// handleApprovalFeed subscribes the caller to their workspace's approval
// events.
func (r *router) handleApprovalFeed(w http.ResponseWriter, req *http.Request) {
	user, ok := actingUser(req)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity headers"})
		return
	}
	r.deps.Hub.Subscribe(w, req, user.WorkspaceID)
}

func (r *router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *router) handleReady(w http.ResponseWriter, req *http.Request) {
	if err := r.deps.Store.Ping(req.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not-ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (r *router) handleInfo(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "raven-agent",
		"environment": r.deps.Config.Environment,
	})
}

// actingUser resolves the authenticated caller from gateway headers. The
// surrounding deployment terminates auth; these headers are trusted input.
func actingUser(req *http.Request) (dispatch.User, bool) {
	userID := strings.TrimSpace(req.Header.Get("X-Raven-User"))
	workspaceID := strings.TrimSpace(req.Header.Get("X-Raven-Workspace"))
	if userID == "" || workspaceID == "" {
		return dispatch.User{}, false
	}
	return dispatch.User{ID: userID, WorkspaceID: workspaceID}, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
