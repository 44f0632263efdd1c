package services

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"hydramind/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StateFunc wraps a snapshot with view and presentation data
type StateFunc func(*models.Snapshot) models.DashboardState

// wsMessage is the envelope pushed to browsers
type wsMessage struct {
	Type    string                `json:"type"`
	Payload models.DashboardState `json:"payload"`
}

// Hub keeps the connected dashboard clients and pushes state to them.
// A client whose send buffer is full is dropped.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	state   StateFunc
	metrics *PromMetrics
	logger  *zap.Logger
}

func NewHub(state StateFunc, metrics *PromMetrics, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		state:      state,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.metrics.SetWebSocketClients(0)
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetWebSocketClients(n)
			h.logger.Debug("WebSocket client registered", zap.String("remote", client.remote))

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.logger.Warn("WebSocket client send buffer full, removing", zap.String("remote", client.remote))
					delete(h.clients, client)
					close(client.send)
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetWebSocketClients(n)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.metrics.SetWebSocketClients(n)
		h.logger.Debug("WebSocket client unregistered", zap.String("remote", client.remote))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Observe is a store Observer. It never blocks the store.
func (h *Hub) Observe(snapshot *models.Snapshot) {
	h.Broadcast(h.state(snapshot))
}

// Broadcast pushes a dashboard state to every client
func (h *Hub) Broadcast(state models.DashboardState) {
	message, err := encodeState(state)
	if err != nil {
		h.logger.Error("Error marshalling dashboard state", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		h.logger.Warn("WebSocket broadcast queue full, dropping state")
	}
}

// ServeWS upgrades the request and sends the current state first
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial models.DashboardState) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade error", zap.Error(err))
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 32),
		remote: conn.RemoteAddr().String(),
	}

	if message, err := encodeState(initial); err == nil {
		client.send <- message
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func encodeState(state models.DashboardState) ([]byte, error) {
	return json.Marshal(wsMessage{Type: "snapshot", Payload: state})
}
