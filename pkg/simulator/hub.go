package simulator

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pipeboard/pipeboard/pkg/events"
	pblog "github.com/pipeboard/pipeboard/pkg/log"
)

// Hub fans server events out to every WebSocket subscriber of a canvas.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The simulator is a local development counterpart.
				return true
			},
		},
		logger: pblog.WithModule("simulator"),
		conns:  make(map[string]map[*websocket.Conn]bool),
	}
}

// ServeHTTP upgrades GET /ws/{canvasId} and keeps the connection registered
// until the peer goes away. Inbound frames are ignored; the stream is
// server-to-client only.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	canvasID := strings.TrimPrefix(r.URL.Path, "/ws/")
	if canvasID == "" || strings.Contains(canvasID, "/") {
		http.NotFound(w, r)

		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)

		return
	}

	h.register(canvasID, conn)
	defer h.unregister(canvasID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast delivers one event to every subscriber of the canvas. Dead
// connections are dropped on write failure.
func (h *Hub) Broadcast(canvasID string, event events.ServerEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns[canvasID] {
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(h.conns[canvasID], conn)
		}
	}
}

func (h *Hub) subscribers(canvasID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.conns[canvasID])
}

func (h *Hub) register(canvasID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[canvasID] == nil {
		h.conns[canvasID] = make(map[*websocket.Conn]bool)
	}

	h.conns[canvasID][conn] = true
	h.logger.Debug("subscriber connected", "canvas_id", canvasID)
}

func (h *Hub) unregister(canvasID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns[canvasID], conn)
	conn.Close()
	h.logger.Debug("subscriber disconnected", "canvas_id", canvasID)
}
