package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Define notification types
const (
	NotificationTypeWalletCredit  = "wallet_credit"
	NotificationTypeCycleComplete = "cycle_complete"
)

// sendBuffer is the per-client queue depth; notifications past it are
// dropped rather than blocking a distribution.
const sendBuffer = 16

// Notification represents a message sent over WebSocket
type Notification struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	UserID  string      `json:"userID,omitempty"`
}

// Client represents a connected WebSocket client. All connection
// writes go through the send channel: gorilla/websocket allows only
// one concurrent writer per connection, and two distributions can
// credit the same user at the same time.
type Client struct {
	ID     string
	UserID primitive.ObjectID
	Conn   *websocket.Conn

	send chan Notification
	done chan struct{}
	once sync.Once
}

// NewClient wraps a connection for hub registration
func NewClient(id string, userID primitive.ObjectID, conn *websocket.Conn) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Conn:   conn,
		send:   make(chan Notification, sendBuffer),
		done:   make(chan struct{}),
	}
}

// close is idempotent; both the reader goroutine and the hub reach it
func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// writePump drains the send queue onto the connection. Runs as the
// connection's only writer.
func (c *Client) writePump() {
	for {
		select {
		case notification := <-c.send:
			if err := c.Conn.WriteJSON(notification); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// enqueue hands a notification to the client's writer without
// blocking. Returns false when the client is gone or its queue is
// full.
func (c *Client) enqueue(notification Notification) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- notification:
		return true
	default:
		return false
	}
}

// Hub maintains the set of active clients and delivers notifications
type Hub struct {
	clients    map[primitive.ObjectID]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[primitive.ObjectID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = client
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.UserID]; ok && current.ID == client.ID {
				delete(h.clients, client.UserID)
			}
			h.mu.Unlock()
			client.close()
		}
	}
}

// SendToUser queues a message for a specific user
func (h *Hub) SendToUser(userID primitive.ObjectID, notification Notification) error {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user not connected")
	}
	if !client.enqueue(notification) {
		return fmt.Errorf("client not accepting messages")
	}
	return nil
}
