package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantrail/riskledger/internal/batch"
	"github.com/quantrail/riskledger/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second

	// Per-client buffered events; a client that cannot keep up is
	// dropped rather than allowed to stall the run.
	clientBuffer = 64
)

// Event is one message on the run progress stream
type Event struct {
	Type   string      `json:"type"` // "job" or "report"
	Job    interface{} `json:"job,omitempty"`
	Report interface{} `json:"report,omitempty"`
}

// Hub broadcasts batch run progress to connected websocket clients.
// It implements the orchestrator's notifier interface.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	clients map[*client]bool
	mu      sync.Mutex
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// NewHub creates a new run progress hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  log,
		clients: make(map[*client]bool),
	}
}

// NotifyJob broadcasts a job lifecycle event
func (h *Hub) NotifyJob(record batch.JobRecord) {
	h.broadcast(Event{Type: "job", Job: record})
}

// NotifyReport broadcasts the final run report
func (h *Hub) NotifyReport(report *batch.RunReport) {
	h.broadcast(Event{Type: "report", Report: report})
}

// ServeWS upgrades the connection and registers the client
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan Event, clientBuffer),
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	h.logger.WithField("remote", conn.RemoteAddr().String()).Debug("Run progress client connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			// Slow consumer, disconnect it
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// writeLoop pushes events and pings to one client
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
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

// readLoop drains incoming frames so pings/pongs and closes are
// processed; clients have nothing meaningful to send.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
