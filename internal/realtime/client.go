package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBuffer     = 32
)

// Client is one WebSocket connection of a user. A user may have several.
type Client struct {
	ID     uuid.UUID
	UserID string
	conn   *websocket.Conn
	send   chan []byte
	// latest holds at most one state frame; a newer one replaces it
	latest chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		latest: make(chan []byte, 1),
	}
}

// Enqueue queues a frame without blocking. It reports false when the client
// is closed or its buffer is full.
func (c *Client) Enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Replace queues msg as the client's current state, superseding a state frame
// that has not been written yet. It never drops msg for a slow client.
func (c *Client) Replace(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case <-c.latest:
	default:
	}
	c.latest <- msg
	return true
}

// Outbound exposes queued frames; it is closed once the client is unregistered
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump hands every inbound frame to handle until the connection fails or ctx ends
func (c *Client) readPump(ctx context.Context, handle func(ctx context.Context, frame []byte)) error {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		handle(ctx, frame)
	}
}

// writePump drains the send queue to the socket and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case msg := <-c.latest:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
