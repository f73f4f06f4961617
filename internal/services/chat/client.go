package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
)

const writeWait = 10 * time.Second

// Client is one websocket connection of a user
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uint
	send   chan []byte
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		c.hub.wg.Done()
	}()

	pongWait := c.hub.opts.PingInterval * 2
	// frame overhead on top of the message content limit
	c.conn.SetReadLimit(int64(c.hub.opts.MaxMessageBytes) + 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Uint("user_id", c.userID).Msg("[Chat] connection closed")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			c.sendError("invalid frame")
			continue
		}
		c.handle(&env)
	}
}

func (c *Client) handle(env *Envelope) {
	if env.Type == TypePing {
		c.sendEnvelope(NewEnvelope(TypePong, 0, nil))
		return
	}

	handler := c.hub.getHandler()
	if handler == nil {
		c.sendError("realtime messaging unavailable")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := handler.HandleClientEvent(ctx, c.userID, env); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Client) sendError(msg string) {
	c.sendEnvelope(NewEnvelope(TypeError, 0, map[string]string{"message": msg}))
}

// sendEnvelope queues a frame for this connection only
func (c *Client) sendEnvelope(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	// unregister removes the client under the lock before closing send
	if _, ok := c.hub.clients[c.userID][c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.wg.Done()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
