package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vk/seqci/internal/dag"
)

// nodeEvent is the wire format for node state transitions pushed to
// connected status clients.
type nodeEvent struct {
	Node  string    `json:"node"`
	State string    `json:"state"`
	Time  time.Time `json:"time"`
	Error string    `json:"error,omitempty"`
}

// statusHub fans node state changes out to websocket subscribers. It is
// always constructed; when no status server is started it simply has no
// subscribers and broadcasts are no-ops.
type statusHub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newStatusHub(logger *slog.Logger) *statusHub {
	return &statusHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// NodeStateChanged implements the executor's state callback.
func (h *statusHub) NodeStateChanged(node *dag.Node) {
	ev := nodeEvent{
		Node:  node.ID,
		State: node.State().String(),
		Time:  time.Now().UTC(),
	}
	if node.Error != nil {
		ev.Error = node.Error.Error()
	}
	h.broadcast(ev)
}

func (h *statusHub) broadcast(ev nodeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Debug("Dropping status subscriber.", "error", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

func (h *statusHub) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed.", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("Status subscriber connected.", "remote", conn.RemoteAddr())

	// Drain (and discard) client frames so pings are answered and closes
	// are noticed.
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.conns, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *statusHub) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// startStatusServer serves the health and event endpoints until the process
// exits. It runs in its own goroutine; a listen failure is logged, not fatal,
// because the run itself does not depend on the status surface.
func (a *App) startStatusServer(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.status.handleHealthz)
	mux.HandleFunc("/events", a.status.handleEvents)

	addr := fmt.Sprintf(":%d", port)
	a.logger.Info("Status server listening.", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		a.logger.Error("Status server stopped.", "error", err)
	}
}
