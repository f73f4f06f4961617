// Package chat relays realtime messaging events over websockets.
package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/whomimohshukla/freelancehub/internal/metrics"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
)

// Event types
const (
	TypeMessageSend = "message:send"
	TypeMessageNew  = "message:new"
	TypeMessageRead = "message:read"
	TypeTyping      = "typing"
	TypePresence    = "presence"
	TypeNotify      = "notification"
	TypeError       = "error"
	TypePing        = "ping"
	TypePong        = "pong"
)

// Envelope is the frame exchanged with clients
type Envelope struct {
	Type           string          `json:"type"`
	ConversationID uint            `json:"conversation_id,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(eventType string, conversationID uint, data interface{}) Envelope {
	env := Envelope{Type: eventType, ConversationID: conversationID}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			env.Data = raw
		}
	}
	return env
}

// Handler reacts to client frames; implemented by the messaging service
type Handler interface {
	HandleClientEvent(ctx context.Context, userID uint, env *Envelope) error
	UserOnline(userID uint, online bool)
}

type Options struct {
	MaxMessageBytes int
	PingInterval    time.Duration
}

// Hub tracks the websocket clients of this instance
type Hub struct {
	opts       Options
	instanceID string
	upgrader   websocket.Upgrader

	// presenceMu orders online/offline callbacks the same way as the registry changes
	presenceMu sync.Mutex

	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
	handler Handler
	relay   Relay

	wg     sync.WaitGroup
	closed bool
}

func NewHub(opts Options) *Hub {
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 4000
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	return &Hub{
		opts:       opts,
		instanceID: uuid.NewString(),
		clients:    make(map[uint]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is checked by CORS on the REST side; the token query parameter authenticates
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) SetHandler(handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

func (h *Hub) getHandler() Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handler
}

// ServeWS upgrades the request and runs the client until it disconnects
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uint) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 64),
	}
	if !h.register(c) {
		conn.Close()
		return nil
	}

	go c.writePump()
	go c.readPump()
	return nil
}

func (h *Hub) register(c *Client) bool {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	// read and write pumps
	h.wg.Add(2)
	first := len(set) == 1
	handler := h.handler
	h.mu.Unlock()

	metrics.WebsocketConnections.Inc()
	if first && handler != nil {
		handler.UserOnline(c.userID, true)
	}
	return true
}

func (h *Hub) unregister(c *Client) {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := set[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	last := len(set) == 0
	if last {
		delete(h.clients, c.userID)
	}
	handler := h.handler
	h.mu.Unlock()

	close(c.send)
	metrics.WebsocketConnections.Dec()
	if last && handler != nil {
		handler.UserOnline(c.userID, false)
	}
}

// SendToUser delivers to every local connection of userID and to other instances
func (h *Hub) SendToUser(userID uint, env Envelope) {
	h.SendToUsers([]uint{userID}, env)
}

func (h *Hub) SendToUsers(userIDs []uint, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		logger.Errorf("[Chat] marshal %s: %v", env.Type, err)
		return
	}
	h.deliverLocal(userIDs, data)

	if relay := h.getRelay(); relay != nil {
		msg, _ := json.Marshal(relayMessage{Origin: h.instanceID, UserIDs: userIDs, Frame: data})
		if err := relay.Publish(context.Background(), msg); err != nil {
			logger.Warn().Err(err).Msg("[Chat] relay publish failed")
		}
	}
}

func (h *Hub) deliverLocal(userIDs []uint, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range userIDs {
		for c := range h.clients[id] {
			// Drop the frame for a client that is not keeping up
			select {
			case c.send <- frame:
			default:
			}
		}
	}
}

// IsOnline reports whether userID has a connection on this instance
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// ClientCount returns the number of open connections on this instance
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Close disconnects every client and waits for their goroutines
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var conns []*websocket.Conn
	for _, set := range h.clients {
		for c := range set {
			conns = append(conns, c.conn)
		}
	}
	relay := h.relay
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		conn.Close()
	}
	if relay != nil {
		_ = relay.Close()
	}
	h.wg.Wait()
}

// Global hub instance
var (
	globalHub *Hub
	hubOnce   sync.Once
)

// Init creates the global hub with opts; later calls return the same hub
func Init(opts Options) *Hub {
	hubOnce.Do(func() {
		globalHub = NewHub(opts)
	})
	return globalHub
}

// GetHub returns the global hub, creating one with defaults when Init was not called
func GetHub() *Hub {
	return Init(Options{})
}
