package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans approval lifecycle events out to websocket subscribers. Each
// subscriber only sees its own workspace's events. Slow or dead connections
// are dropped rather than blocking publishers.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu   sync.Mutex
	subs map[*subscriber]bool
}

// subscriber serializes writes: gorilla/websocket allows at most one
// concurrent writer per connection.
type subscriber struct {
	conn        *websocket.Conn
	workspaceID string
	writeMu     sync.Mutex
}

func (s *subscriber) send(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Auth terminates at the gateway; origins were already vetted.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With("component", "approvalhub"),
		subs:   map[*subscriber]bool{},
	}
}

// Subscribe upgrades the request and registers the connection under the
// caller's workspace.
func (h *Hub) Subscribe(w http.ResponseWriter, req *http.Request, workspaceID string) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	sub := &subscriber{conn: conn, workspaceID: workspaceID}
	h.mu.Lock()
	h.subs[sub] = true
	h.mu.Unlock()

	// Drain reads to notice the peer closing.
	go func() {
		defer h.drop(sub)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish sends an event to every subscriber of the given workspace.
func (h *Hub) Publish(workspaceID string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("event encode failed", "error", err)
		return
	}
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		if sub.workspaceID == workspaceID {
			subs = append(subs, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.send(payload); err != nil {
			h.drop(sub)
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = map[*subscriber]bool{}
	h.mu.Unlock()
	for _, sub := range subs {
		sub.conn.Close()
	}
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
	}
	h.mu.Unlock()
	sub.conn.Close()
}
