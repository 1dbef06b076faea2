// Package stream broadcasts simulation state to websocket viewers.
package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/rockets/game"
	"github.com/pthm-cable/rockets/telemetry"
)

// Message types sent to viewers.
const (
	TypeConfig     = "config"
	TypeState      = "state"
	TypeGeneration = "generation"
)

const (
	defaultBuffer = 16
	writeTimeout  = 5 * time.Second
)

// Message is the envelope of every frame sent to a viewer.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Info is sent once when a viewer connects.
type Info struct {
	RunID      string  `json:"run_id"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Lifespan   int     `json:"lifespan"`
	Population int     `json:"population"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub fans messages out to connected viewers. Publishing never blocks: a
// viewer whose queue is full is dropped.
type Hub struct {
	logger   *slog.Logger
	info     Info
	buffer   int
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a hub that greets each viewer with info.
func NewHub(logger *slog.Logger, info Info) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:   logger,
		info:     info,
		buffer:   defaultBuffer,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the viewer until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.buffer)}
	hello, err := encode(TypeConfig, h.info)
	if err != nil {
		h.logger.Error("encoding config message", "error", err)
		conn.Close()
		return
	}
	c.send <- hello

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("viewer connected", "remote", r.RemoteAddr, "viewers", h.Clients())

	go h.writeLoop(c)

	// Viewers only listen; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.drop(c)
	h.logger.Info("viewer disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("viewer write failed", "error", err)
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Publish encodes data once and queues it for every viewer.
func (h *Hub) Publish(msgType string, data any) {
	msg, err := encode(msgType, data)
	if err != nil {
		h.logger.Error("encoding stream message", "type", msgType, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			c.close()
			h.logger.Warn("dropping slow viewer", "type", msgType)
		}
	}
}

// PublishState sends a simulation snapshot.
func (h *Hub) PublishState(snap game.Snapshot) {
	h.Publish(TypeState, snap)
}

// PublishGeneration sends the stats of a finished generation.
func (h *Hub) PublishGeneration(stats telemetry.GenerationStats) {
	h.Publish(TypeGeneration, stats)
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func encode(msgType string, data any) ([]byte, error) {
	return json.Marshal(Message{Type: msgType, Data: data})
}
