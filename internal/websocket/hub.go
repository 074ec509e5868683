package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// ClientGauge receives the number of connected clients
type ClientGauge interface {
	RecordWebsocketClients(count int)
}

// Hub maintains the set of active clients and pushes scenario results to
// the clients subscribed to a portfolio
type Hub struct {
	clients       map[*Client]bool
	publish       chan envelope
	register      chan *Client
	unregister    chan *Client
	subscriptions map[string]map[*Client]bool // portfolio ID -> clients
	gauge         ClientGauge
	done          chan struct{}
	log           *logger.Logger
	mu            sync.RWMutex
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	id            string
	subscriptions map[string]bool // portfolios this client is subscribed to
	closed        bool
	mu            sync.Mutex
}

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Portfolio string      `json:"portfolio,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ID        string      `json:"id,omitempty"`
}

// Subscription request message
type SubscriptionMessage struct {
	Type       string   `json:"type"`
	Portfolios []string `json:"portfolios"`
	ID         string   `json:"id,omitempty"`
}

type envelope struct {
	portfolio string
	data      []byte
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// NewHub creates a new WebSocket hub. gauge may be nil.
func NewHub(gauge ClientGauge) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		publish:       make(chan envelope, 256),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscriptions: make(map[string]map[*Client]bool),
		gauge:         gauge,
		done:          make(chan struct{}),
		log:           logger.GetLogger("websocket.hub"),
	}
}

// Run starts the WebSocket hub
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("Starting WebSocket hub")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.log.Info("WebSocket hub shutting down")
			h.mu.Lock()
			for client := range h.clients {
				h.removeClientLocked(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.recordClients()
			h.log.Infof("Client %s registered", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			removed := h.removeClientLocked(client)
			h.mu.Unlock()
			if removed {
				h.recordClients()
				h.log.Infof("Client %s unregistered", client.id)
			}

		case env := <-h.publish:
			h.deliver(env)
		}
	}
}

// HandleWebSocket handles WebSocket upgrade and client management
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, 256),
		id:            uuid.NewString(),
		subscriptions: make(map[string]bool),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// PublishScenarioRun sends a completed scenario run to the subscribers of
// its portfolio
func (h *Hub) PublishScenarioRun(run *models.ScenarioRun) {
	if run == nil || run.PortfolioID == "" {
		return
	}
	h.Publish(run.PortfolioID, "scenario_run", run)
}

// Publish queues a message for the subscribers of portfolioID. Messages are
// dropped when the hub is saturated.
func (h *Hub) Publish(portfolioID, msgType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: msgType, Portfolio: portfolioID, Data: data})
	if err != nil {
		h.log.Errorf("Failed to marshal %s for portfolio %s: %v", msgType, portfolioID, err)
		return
	}

	select {
	case h.publish <- envelope{portfolio: portfolioID, data: payload}:
	default:
		h.log.Warnf("Publish queue full, dropping %s for portfolio %s", msgType, portfolioID)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients subscribed to portfolioID
func (h *Hub) SubscriberCount(portfolioID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[portfolioID])
}

func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.subscriptions[env.portfolio] {
		if !client.trySend(env.data) {
			h.log.Warnf("Client %s is not keeping up, disconnecting", client.id)
			h.removeClientLocked(client)
		}
	}
}

// removeClientLocked drops the client and all its subscriptions. h.mu must
// be held.
func (h *Hub) removeClientLocked(client *Client) bool {
	if _, ok := h.clients[client]; !ok {
		return false
	}
	delete(h.clients, client)

	for portfolio := range client.subscribed() {
		if clients, exists := h.subscriptions[portfolio]; exists {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.subscriptions, portfolio)
			}
		}
	}

	client.close()
	return true
}

func (h *Hub) recordClients() {
	if h.gauge != nil {
		h.gauge.RecordWebsocketClients(h.ClientCount())
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageData, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Errorf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(messageData)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// handleMessage handles incoming messages from the client
func (c *Client) handleMessage(messageData []byte) {
	var msg SubscriptionMessage
	if err := json.Unmarshal(messageData, &msg); err != nil {
		c.sendError("Invalid message format", "")
		return
	}

	switch msg.Type {
	case "subscribe":
		c.handleSubscription(msg)
	case "unsubscribe":
		c.handleUnsubscription(msg)
	case "ping":
		c.sendMessage(Message{Type: "pong", ID: msg.ID})
	default:
		c.sendError("Unknown message type", msg.ID)
	}
}

// handleSubscription handles subscription requests
func (c *Client) handleSubscription(msg SubscriptionMessage) {
	c.hub.mu.Lock()
	if !c.hub.clients[c] {
		c.hub.mu.Unlock()
		return
	}
	c.mu.Lock()
	for _, portfolio := range msg.Portfolios {
		c.subscriptions[portfolio] = true

		if c.hub.subscriptions[portfolio] == nil {
			c.hub.subscriptions[portfolio] = make(map[*Client]bool)
		}
		c.hub.subscriptions[portfolio][c] = true
	}
	c.mu.Unlock()
	c.hub.mu.Unlock()

	c.sendMessage(Message{
		Type: "subscription_confirmed",
		Data: map[string]interface{}{
			"portfolios": msg.Portfolios,
		},
		ID: msg.ID,
	})
}

// handleUnsubscription handles unsubscription requests
func (c *Client) handleUnsubscription(msg SubscriptionMessage) {
	c.hub.mu.Lock()
	c.mu.Lock()
	for _, portfolio := range msg.Portfolios {
		delete(c.subscriptions, portfolio)

		if clients, exists := c.hub.subscriptions[portfolio]; exists {
			delete(clients, c)
			if len(clients) == 0 {
				delete(c.hub.subscriptions, portfolio)
			}
		}
	}
	c.mu.Unlock()
	c.hub.mu.Unlock()

	c.sendMessage(Message{
		Type: "unsubscription_confirmed",
		Data: map[string]interface{}{
			"portfolios": msg.Portfolios,
		},
		ID: msg.ID,
	})
}

// sendMessage sends a message to the client, dropping it if the client's
// buffer is full
func (c *Client) sendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Errorf("Failed to marshal message: %v", err)
		return
	}

	if !c.trySend(data) {
		c.hub.log.Warnf("Dropping %s message for client %s", msg.Type, c.id)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(errorMsg, id string) {
	c.sendMessage(Message{
		Type:  "error",
		Error: errorMsg,
		ID:    id,
	})
}

func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) subscribed() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]bool, len(c.subscriptions))
	for p := range c.subscriptions {
		out[p] = true
	}
	return out
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
