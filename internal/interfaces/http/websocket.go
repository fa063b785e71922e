package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/baccarun/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 64
)

// WSMessage is the frame pushed to stream clients
type WSMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Update    *session.Update `json:"update,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// subscription is what a client may send to narrow its stream
type subscription struct {
	Type       string   `json:"type"`
	SessionIDs []string `json:"session_ids"`
}

// Client is one websocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	sessions map[string]bool
}

// Hub fans session updates out to websocket clients
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *WSMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	metrics  *MetricsRegistry
}

// NewHub creates a hub; metrics may be nil
func NewHub(metrics *MetricsRegistry) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *WSMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		metrics: metrics,
	}
}

// Run dispatches until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.observe(n)
			log.Debug().Int("clients", n).Msg("Stream client registered")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.observe(n)
			log.Debug().Int("clients", n).Msg("Stream client unregistered")

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Error().Err(err).Msg("Failed to marshal stream message")
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				if !c.wants(msg.SessionID) {
					continue
				}
				select {
				case c.send <- data:
				default:
					// slow consumer
					close(c.send)
					delete(h.clients, c)
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.observe(n)
		}
	}
}

// Publish queues an update for delivery; it drops the update when the hub is saturated
func (h *Hub) Publish(u session.Update) {
	msg := &WSMessage{Type: "update", SessionID: u.SessionID, Update: &u, Timestamp: time.Now().Unix()}
	select {
	case h.broadcast <- msg:
	default:
		log.Warn().Str("session", u.SessionID).Msg("Stream backlog full, update dropped")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection; ?session_id= pre-subscribes to one session
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &Client{hub: h, conn: conn, send: make(chan []byte, clientSendSize), sessions: map[string]bool{}}
	if id := r.URL.Query().Get("session_id"); id != "" {
		c.sessions[id] = true
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) observe(n int) {
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(n))
	}
}

func (c *Client) wants(sessionID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions) == 0 || c.sessions[sessionID]
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var sub subscription
	if err := json.Unmarshal(message, &sub); err != nil {
		log.Debug().Err(err).Msg("Ignoring malformed client message")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch sub.Type {
	case "subscribe":
		for _, id := range sub.SessionIDs {
			c.sessions[id] = true
		}
	case "unsubscribe":
		if len(sub.SessionIDs) == 0 {
			c.sessions = map[string]bool{}
			return
		}
		for _, id := range sub.SessionIDs {
			delete(c.sessions, id)
		}
	}
}
