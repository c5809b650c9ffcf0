// Package notifyhub pushes session events (expired, cancelled,
// downloaded) to connected owners over WebSocket.
package notifyhub

import (
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/shareflow/shareflow-go/types"
)

// client wraps a connection with its write lock. Broadcasts come from
// request handlers and the sweeper goroutine at the same time, and a
// websocket connection allows only one concurrent writer.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) send(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub holds WebSocket connections grouped by session and broadcasts
// notifications to the owners watching that session.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]*client
}

// New creates a new notify hub.
func New() *Hub {
	return &Hub{
		conns: make(map[string]map[*websocket.Conn]*client),
	}
}

// Register adds a WebSocket connection watching the given session.
func (h *Hub) Register(sessionId string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[sessionId]
	if !ok {
		set = make(map[*websocket.Conn]*client)
		h.conns[sessionId] = set
	}
	set[conn] = &client{conn: conn}
}

// Unregister removes a WebSocket connection.
func (h *Hub) Unregister(sessionId string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[sessionId]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.conns, sessionId)
	}
}

// Broadcast sends the notification as JSON to every connection watching
// its session. Safe to call from any goroutine. Implements
// session.Notifier.
func (h *Hub) Broadcast(n *types.Notification) {
	if n == nil {
		return
	}
	payload, err := sonic.Marshal(n)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.conns[n.SessionId]))
	for _, c := range h.conns[n.SessionId] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.send(payload)
	}
}
