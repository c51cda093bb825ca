package engine

import (
	"sync"

	"github.com/gorilla/websocket"

	"pong/internal/models"
)

// Client wraps one live websocket connection. All writes go through Send,
// which serializes access to the connection.
type Client struct {
	Conn *websocket.Conn
	mu   sync.Mutex
	hook func(models.Event)
}

func NewClient(conn *websocket.Conn) *Client { return &Client{Conn: conn} }

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.Event)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send is fire-and-forget: a failed write is left for the read loop to
// notice as a closed connection.
func (c *Client) Send(evt models.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hook != nil {
		c.hook(evt)
		return
	}
	if c.Conn == nil {
		return
	}
	_ = c.Conn.WriteJSON(evt)
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Conn != nil {
		_ = c.Conn.Close()
	}
}
