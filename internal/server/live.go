package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// EventType identifies a live feed message.
type EventType string

const (
	// EventHello is sent to a client right after it connects.
	EventHello EventType = "hello"

	// EventToggle announces a committed toggle.
	EventToggle EventType = "toggle"
)

// Event is a live feed message.
type Event struct {
	Type      EventType `json:"type"`
	Date      string    `json:"date,omitempty"`
	Completed bool      `json:"completed"`
	Clients   int       `json:"clients,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// writeTimeout bounds a single send to one client.
const writeTimeout = 5 * time.Second

// Hub fans toggle events out to connected WebSocket clients so every open
// calendar sees changes made elsewhere.
type Hub struct {
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	events chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	start  sync.Once

	logger *slog.Logger
}

// NewHub creates a hub. Events are queued until Run starts the broadcast
// loop.
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		events:  make(chan Event, 100),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Run starts the broadcast loop. Later calls, and calls after Close, do
// nothing.
func (h *Hub) Run() {
	h.start.Do(func() {
		if h.ctx.Err() != nil {
			return
		}
		h.wg.Add(1)
		go h.broadcastLoop()
	})
}

// Publish queues ev for every client. It never blocks; when the queue is
// full the event is dropped.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	select {
	case h.events <- ev:
	case <-h.ctx.Done():
	default:
		h.logger.Warn("live feed queue full, dropping event", "type", ev.Type, "date", ev.Date)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and stops the broadcast loop.
func (h *Hub) Close() {
	h.cancel()
	h.start.Do(func() {})

	h.clientsMu.Lock()
	for conn := range h.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(h.clients, conn)
	}
	h.clientsMu.Unlock()

	h.wg.Wait()
}

// ServeHTTP upgrades the request to a WebSocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.clientsMu.Unlock()

	h.logger.Debug("live client connected", "clients", count)

	h.send(conn, Event{Type: EventHello, Clients: count, Timestamp: time.Now().UTC()})

	// Clients never send; reading only detects disconnects.
	defer h.removeClient(conn)
	for {
		if _, _, err := conn.Read(h.ctx); err != nil {
			return
		}
	}
}

func (h *Hub) broadcastLoop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return
		case ev := <-h.events:
			h.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				clients = append(clients, conn)
			}
			h.clientsMu.RUnlock()

			for _, conn := range clients {
				h.send(conn, ev)
			}
		}
	}
}

func (h *Hub) send(conn *websocket.Conn, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshaling live event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		h.logger.Debug("live client write failed", "error", err)
		h.removeClient(conn)
	}
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.clientsMu.Lock()
	if _, ok := h.clients[conn]; !ok {
		h.clientsMu.Unlock()
		return
	}
	delete(h.clients, conn)
	count := len(h.clients)
	h.clientsMu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")
	h.logger.Debug("live client disconnected", "clients", count)
}
