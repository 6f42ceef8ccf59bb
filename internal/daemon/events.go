package daemon

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/0ximu/mu/internal/worker"
)

// eventPayload is the wire shape of a graph mutation, matching the
// fixed payload spec.md §6 defines for /events subscribers.
type eventPayload struct {
	Type     string `json:"type"`
	NodeID   string `json:"node_id"`
	NodeType string `json:"node_type"`
	FilePath string `json:"file_path"`
	Version  uint64 `json:"version"`
}

// subscriber is one connected /events client. id is a process-local
// identifier minted at subscribe time and stable for the life of the
// connection; a reconnect from the same host gets a fresh id, so log
// lines tell the two connections apart where the remote address would
// not.
type subscriber struct {
	id uuid.UUID
	ch chan eventPayload
}

// hub fans out worker events from every open project to connected
// /events subscribers over a websocket connection.
type hub struct {
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*websocket.Conn]*subscriber
}

func newHub() *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subs: make(map[*websocket.Conn]*subscriber),
	}
}

// watch subscribes to a project's worker and republishes every event
// onto the hub's connected clients, translating the worker's internal
// Event shape into the public wire payload.
func (h *hub) watch(w *worker.Worker) {
	ch := w.Subscribe()
	for ev := range ch {
		h.broadcast(eventPayload{
			Type:     string(ev.Kind),
			NodeID:   ev.NodeID,
			NodeType: ev.NodeType,
			FilePath: ev.FilePath,
			Version:  ev.Version,
		})
	}
}

func (h *hub) connectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub) broadcast(ev eventPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			slog.Warn("daemon.events_subscriber_full", "subscriber", sub.id)
		}
	}
}

func (h *hub) serveHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("daemon.events_upgrade", "err", err)
		return
	}

	sub := &subscriber{id: uuid.New(), ch: make(chan eventPayload, 64)}
	h.mu.Lock()
	h.subs[conn] = sub
	h.mu.Unlock()
	slog.Info("daemon.events_subscribed", "subscriber", sub.id, "remote", conn.RemoteAddr())

	defer func() {
		h.mu.Lock()
		delete(h.subs, conn)
		h.mu.Unlock()
		close(sub.ch)
		conn.Close()
	}()

	for ev := range sub.ch {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
