package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"github.com/crateful/linernotes/pkg/types"
)

// WebSocketHub manages WebSocket connections and broadcasts messages.
type WebSocketHub struct {
	clients    map[clientInterface]bool
	broadcast  chan interface{}
	register   chan clientInterface
	unregister chan clientInterface
	origins    []string
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
}

// clientInterface allows for both real clients and mock clients.
type clientInterface interface {
	getSendChannel() chan []byte
	close()
}

// Client represents a WebSocket connection.
type Client struct {
	hub  *WebSocketHub
	conn *websocket.Conn
	send chan []byte
}

func (c *Client) getSendChannel() chan []byte {
	return c.send
}

func (c *Client) close() {
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}
}

// NewWebSocketHub creates a hub that accepts upgrades from the given origin
// hosts (host:port). With none given, local development origins for the
// default port are allowed.
func NewWebSocketHub(originHosts ...string) *WebSocketHub {
	if len(originHosts) == 0 {
		originHosts = []string{"localhost:6464", "127.0.0.1:6464"}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketHub{
		clients:    make(map[clientInterface]bool),
		broadcast:  make(chan interface{}, 256),
		register:   make(chan clientInterface),
		unregister: make(chan clientInterface),
		origins:    originHosts,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run starts the hub's message processing loop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client connected (total: %d)", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.getSendChannel())
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected (total: %d)", count)

		case message := <-h.broadcast:
			// Full Lock because the default branch may delete from the map.
			h.mu.Lock()
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("ERROR: Failed to marshal WebSocket message: %v", err)
				h.mu.Unlock()
				continue
			}

			for client := range h.clients {
				sendChan := client.getSendChannel()
				select {
				case sendChan <- data:
				default:
					// Client's send channel is full, disconnect them
					close(sendChan)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			log.Println("WebSocket hub stopping...")
			return
		}
	}
}

// Stop gracefully shuts down the hub.
func (h *WebSocketHub) Stop() {
	h.cancel()

	h.mu.Lock()
	for client := range h.clients {
		close(client.getSendChannel())
		client.close()
	}
	h.clients = make(map[clientInterface]bool)
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients.
func (h *WebSocketHub) Broadcast(message interface{}) {
	select {
	case h.broadcast <- message:
	default:
		log.Println("WARNING: WebSocket broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub.
func (h *WebSocketHub) Register(client clientInterface) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *WebSocketHub) Unregister(client clientInterface) {
	h.unregister <- client
}

// ServeHTTP handles WebSocket upgrade requests for GET /ws.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Validate Origin header against the configured hosts
	origin := r.Header.Get("Origin")
	if origin != "" && !h.originAllowed(origin) {
		http.Error(w, "Forbidden: invalid origin", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		log.Printf("ERROR: WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.Register(client)

	go client.writePump()
	go client.readPump()
}

// originAllowed reports whether the Origin header names a configured host.
func (h *WebSocketHub) originAllowed(origin string) bool {
	for _, host := range h.origins {
		if origin == "http://"+host || origin == "https://"+host {
			return true
		}
	}
	return false
}

// writePump sends messages to the WebSocket connection.
func (c *Client) writePump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, message)
		cancel()

		if err != nil {
			log.Printf("ERROR: WebSocket write failed: %v", err)
			return
		}
	}
}

// readPump reads messages from the WebSocket connection.
// Currently just drains messages to detect disconnections.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, _, err := c.conn.Read(context.Background())
		if err != nil {
			// Connection closed
			return
		}
	}
}

// EventBridge adapts the network builder's lifecycle callbacks into hub
// broadcasts and keeps the lifetime counters served by /api/stats.
type EventBridge struct {
	hub       *WebSocketHub
	started   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

var _ GenerationTotalsGetter = (*EventBridge)(nil)

// NewEventBridge creates a bridge over the given hub. hub may be nil, which
// keeps the counters without broadcasting.
func NewEventBridge(hub *WebSocketHub) *EventBridge {
	return &EventBridge{hub: hub}
}

// GenerationStarted broadcasts a generation_started event.
func (b *EventBridge) GenerationStarted(runID, artistName string) {
	b.started.Add(1)
	b.send(types.GenerationEvent{
		Type:       types.EventGenerationStarted,
		RunID:      runID,
		ArtistName: artistName,
		Timestamp:  time.Now(),
	})
}

// SourceSelected broadcasts the adapter that won the fallback chain.
func (b *EventBridge) SourceSelected(runID, artistName, source string, candidates int) {
	b.send(types.GenerationEvent{
		Type:       types.EventSourceSelected,
		RunID:      runID,
		ArtistName: artistName,
		Source:     source,
		Candidates: candidates,
		Timestamp:  time.Now(),
	})
}

// GenerationCompleted broadcasts the finished node and link counts.
func (b *EventBridge) GenerationCompleted(runID, artistName string, nodes, links int) {
	b.completed.Add(1)
	b.send(types.GenerationEvent{
		Type:       types.EventGenerationCompleted,
		RunID:      runID,
		ArtistName: artistName,
		Nodes:      nodes,
		Links:      links,
		Timestamp:  time.Now(),
	})
}

// GenerationFailed broadcasts the failure reason.
func (b *EventBridge) GenerationFailed(runID, artistName, reason string) {
	b.failed.Add(1)
	b.send(types.GenerationEvent{
		Type:       types.EventGenerationFailed,
		RunID:      runID,
		ArtistName: artistName,
		Error:      reason,
		Timestamp:  time.Now(),
	})
}

// GenerationTotals reports builds started, completed and failed since
// process start.
func (b *EventBridge) GenerationTotals() (started, completed, failed int) {
	return int(b.started.Load()), int(b.completed.Load()), int(b.failed.Load())
}

func (b *EventBridge) send(event types.GenerationEvent) {
	if b.hub != nil {
		b.hub.Broadcast(event)
	}
}

// MockClient is a mock client for testing.
type MockClient struct {
	SendChan chan []byte
}

func (m *MockClient) getSendChannel() chan []byte {
	return m.SendChan
}

func (m *MockClient) close() {
	// No-op for mock client
}
