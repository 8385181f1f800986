package preview

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// Live-reload message types sent to connected pages.
const (
	MessageReload = "reload" // Full page reload.
	MessageCSS    = "css"    // Only stylesheets changed; swap them in place.
	MessageError  = "error"  // The last build failed.
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
	sendBuffer     = 8
)

// Message is the JSON payload pushed over the live-reload socket.
type Message struct {
	Type    string   `json:"type"`
	Changed []string `json:"changed,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Compile-time interface satisfaction check.
var _ driven.Reloader = (*Hub)(nil)

// Hub tracks live-reload websocket clients and broadcasts build results to
// them.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Reload tells clients to refresh. When every changed output is a
// stylesheet, clients swap stylesheets instead of reloading.
func (h *Hub) Reload(changed []string) {
	msgType := MessageCSS
	if len(changed) == 0 {
		msgType = MessageReload
	}
	for _, p := range changed {
		if path.Ext(p) != ".css" {
			msgType = MessageReload
			break
		}
	}
	h.broadcast(Message{Type: msgType, Changed: changed})
}

// BuildFailed tells clients the last build failed.
func (h *Hub) BuildFailed(err error) {
	h.broadcast(Message{Type: MessageError, Error: err.Error()})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcast queues msg for every client. Clients whose queue is full miss the
// message; the next one reloads them anyway.
func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode live-reload message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("live-reload client too slow, dropping message", "remote", c.conn.RemoteAddr())
		}
	}
}

// ServeHTTP upgrades the request to a websocket and keeps the client
// registered until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("live-reload upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)
	go h.writeLoop(c)

	// Clients never send anything meaningful; reading detects disconnects.
	conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("live-reload client error", "error", err)
			}
			break
		}
	}
	h.remove(c)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
