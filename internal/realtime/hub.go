package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub tracks the connected clients of this instance, keyed by user
type Hub struct {
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	userClients map[string]map[*Client]struct{}
	mu          sync.RWMutex
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		userClients: make(map[string]map[*Client]struct{}),
		logger:      logger,
	}
}

// Run processes registrations until ctx is done, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for userID, clients := range h.userClients {
				for c := range clients {
					c.close()
				}
				delete(h.userClients, userID)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if _, ok := h.userClients[c.UserID]; !ok {
				h.userClients[c.UserID] = make(map[*Client]struct{})
			}
			h.userClients[c.UserID][c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("user_id", c.UserID), zap.String("client_id", c.ID.String()))

		case c := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.userClients[c.UserID]; ok {
				if _, ok := clients[c]; ok {
					delete(clients, c)
					if len(clients) == 0 {
						delete(h.userClients, c.UserID)
					}
					h.logger.Debug("client unregistered", zap.String("user_id", c.UserID), zap.String("client_id", c.ID.String()))
				}
			}
			h.mu.Unlock()
			c.close()
		}
	}
}

// Register adds c; it is a no-op once the hub has stopped
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.close()
	}
}

// Unregister removes c and closes its send queue
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
		c.close()
	}
}

// SendToUser delivers ev to every client of userID on this instance. Clients
// whose queue is full are disconnected.
func (h *Hub) SendToUser(userID string, ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.String("type", ev.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	var slow []*Client
	for c := range h.userClients[userID] {
		if !c.Enqueue(msg) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client", zap.String("user_id", userID), zap.String("client_id", c.ID.String()))
		go h.Unregister(c)
	}
}

// Connected returns the number of clients of userID
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID])
}
