package services

import (
	"sync"
	"time"
)

// UserEvent is a server-sent event addressed to one user, or to everyone when UserID is 0
type UserEvent struct {
	UserID    uint        `json:"-"`
	Type      string      `json:"type"` // notification, payment, milestone
	Data      interface{} `json:"data"`
	CreatedAt time.Time   `json:"created_at"`
}

type sseClient struct {
	userID uint
	ch     chan UserEvent
}

// SSEHub manages SSE client connections and event broadcasting
type SSEHub struct {
	clients map[string]*sseClient
	mu      sync.RWMutex
}

// NewSSEHub creates a new SSE hub instance
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]*sseClient),
	}
}

// Subscribe registers a new client for userID and returns a channel for receiving events
func (h *SSEHub) Subscribe(clientID string, userID uint) <-chan UserEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Create buffered channel to prevent blocking
	ch := make(chan UserEvent, 100)
	h.clients[clientID] = &sseClient{userID: userID, ch: ch}
	return ch
}

// Unsubscribe removes a client from the hub
func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.ch)
		delete(h.clients, clientID)
	}
}

// Publish delivers an event to the matching clients
func (h *SSEHub) Publish(event UserEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if event.UserID != 0 && c.userID != event.UserID {
			continue
		}
		// Non-blocking send - drop event if client buffer is full
		select {
		case c.ch <- event:
		default:
			// Client is slow, skip this event
		}
	}
}

// ClientCount returns the number of connected clients
func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Global SSE Hub instance
var globalSSEHub *SSEHub
var sseHubOnce sync.Once

// GetSSEHub returns the global SSE hub singleton
func GetSSEHub() *SSEHub {
	sseHubOnce.Do(func() {
		globalSSEHub = NewSSEHub()
	})
	return globalSSEHub
}

// PublishUserEvent is a convenience function to push an event to one user
func PublishUserEvent(userID uint, eventType string, data interface{}) {
	GetSSEHub().Publish(UserEvent{
		UserID: userID,
		Type:   eventType,
		Data:   data,
	})
}
