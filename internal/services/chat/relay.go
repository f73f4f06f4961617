package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
)

// RelayChannel is the pub/sub channel shared by every instance
const RelayChannel = "chat:events"

// Relay fans hub frames out to the other server instances
type Relay interface {
	Publish(ctx context.Context, msg []byte) error
	Subscribe(ctx context.Context) (<-chan []byte, error)
	Close() error
}

type relayMessage struct {
	Origin  string          `json:"origin"`
	UserIDs []uint          `json:"user_ids"`
	Frame   json.RawMessage `json:"frame"`
}

// RedisRelay implements Relay over Redis pub/sub
type RedisRelay struct {
	client *redis.Client
	pubsub *redis.PubSub
}

func NewRedisRelay(cfg *config.RedisConfig) (*RedisRelay, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisRelay{client: client}, nil
}

func (r *RedisRelay) Publish(ctx context.Context, msg []byte) error {
	return r.client.Publish(ctx, RelayChannel, msg).Err()
}

func (r *RedisRelay) Subscribe(ctx context.Context) (<-chan []byte, error) {
	r.pubsub = r.client.Subscribe(ctx, RelayChannel)
	// Wait for the subscription confirmation before reading messages
	if _, err := r.pubsub.Receive(ctx); err != nil {
		r.pubsub.Close()
		return nil, err
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		for msg := range r.pubsub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (r *RedisRelay) Close() error {
	if r.pubsub != nil {
		_ = r.pubsub.Close()
	}
	return r.client.Close()
}

func (h *Hub) getRelay() Relay {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.relay
}

// AttachRelay subscribes to the relay and delivers frames published by other instances
// until ctx is done or the relay closes.
func (h *Hub) AttachRelay(ctx context.Context, relay Relay) error {
	frames, err := relay.Subscribe(ctx)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.relay = relay
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case data, ok := <-frames:
				if !ok {
					return
				}
				var msg relayMessage
				if err := json.Unmarshal(data, &msg); err != nil {
					logger.Warn().Err(err).Msg("[Chat] bad relay frame")
					continue
				}
				if msg.Origin == h.instanceID {
					continue
				}
				h.deliverLocal(msg.UserIDs, msg.Frame)
			}
		}
	}()
	logger.Infof("[Chat] Redis relay attached on %s", RelayChannel)
	return nil
}
