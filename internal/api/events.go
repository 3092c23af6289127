package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/storyreel/storyreel/internal/command"
	"github.com/storyreel/storyreel/internal/editor"
	"github.com/storyreel/storyreel/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// ClientMessage is sent by event stream clients. Type "key" carries a key
// press for the shortcut dispatcher.
type ClientMessage struct {
	Type string           `json:"type"`
	Key  command.KeyEvent `json:"key"`
}

// ServerMessage wraps replies that are not editor events.
type ServerMessage struct {
	Type     string           `json:"type"`
	Snapshot *editor.Snapshot `json:"snapshot,omitempty"`
	Action   string           `json:"action,omitempty"`
	Error    string           `json:"error,omitempty"`
	Code     string           `json:"code,omitempty"`
}

// Hub fans editor events out to websocket clients.
type Hub struct {
	editor     *editor.Editor
	dispatcher *command.Dispatcher
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	mu          sync.Mutex
	clients     map[*wsClient]struct{}
	closed      bool
	unsubscribe func()
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

func NewHub(ed *editor.Editor, dispatcher *command.Dispatcher, logger *slog.Logger) *Hub {
	h := &Hub{
		editor:     ed,
		dispatcher: dispatcher,
		logger:     logging.WithComponent(logging.OrDiscard(logger), "events"),
		clients:    make(map[*wsClient]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || isAllowedOrigin(origin)
		},
	}
	if ed != nil {
		h.unsubscribe = ed.Subscribe(h.publish)
	}
	return h
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) publish(ev editor.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode event", "type", ev.Type, "error", err)
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow consumer; it reconnects and starts from a fresh snapshot.
			h.logger.Warn("dropping slow event client")
			delete(h.clients, c)
			c.close()
		}
	}
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects. The first message is a full snapshot.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("event client connected", "clients", h.Len())

	if h.editor != nil {
		snap := h.editor.Snapshot()
		h.sendTo(c, ServerMessage{Type: "snapshot", Snapshot: &snap})
	}

	go h.writePump(c)
	h.readPump(r.Context(), c)
}

func (h *Hub) sendTo(c *wsClient, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) readPump(ctx context.Context, c *wsClient) {
	defer h.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("event client read failed", "error", err)
			}
			return
		}
		h.handleMessage(ctx, c, msg)
	}
}

func (h *Hub) handleMessage(ctx context.Context, c *wsClient, msg ClientMessage) {
	switch msg.Type {
	case "key":
		if h.dispatcher == nil {
			h.sendTo(c, ServerMessage{Type: "error", Error: "keyboard dispatch is not configured", Code: "UNAVAILABLE"})
			return
		}
		action, handled, err := h.dispatcher.Dispatch(ctx, msg.Key)
		if err != nil {
			_, code := errorStatus(err)
			h.sendTo(c, ServerMessage{Type: "error", Action: string(action), Error: err.Error(), Code: code})
			return
		}
		if handled {
			h.sendTo(c, ServerMessage{Type: "ack", Action: string(action)})
		}
	case "snapshot":
		if h.editor != nil {
			snap := h.editor.Snapshot()
			h.sendTo(c, ServerMessage{Type: "snapshot", Snapshot: &snap})
		}
	default:
		h.sendTo(c, ServerMessage{Type: "error", Error: "unknown message type", Code: "BAD_REQUEST"})
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and stops listening for editor events.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	for c := range clients {
		c.close()
	}
}
