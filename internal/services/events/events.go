// Package events publishes marketplace domain events to other systems.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/metrics"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
)

// Routing keys
const (
	ProjectPublished  = "project.published"
	ProposalSubmitted = "proposal.submitted"
	ProposalAccepted  = "proposal.accepted"
	MilestoneApproved = "milestone.approved"
	PaymentHeld       = "payment.held"
	PaymentReleased   = "payment.released"
	PaymentRefunded   = "payment.refunded"
	ReviewCreated     = "review.created"
)

// Envelope wraps every published payload
type Envelope struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

func NewEnvelope(routingKey string, data interface{}) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
	Close() error
}

// NoopPublisher drops events; used when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

var (
	defaultPublisher Publisher = NoopPublisher{}
	publisherMu      sync.RWMutex
)

// Init connects to the broker when enabled and installs the result as the default publisher.
// A broker that cannot be reached degrades to NoopPublisher.
func Init(cfg *config.AMQPConfig) Publisher {
	var p Publisher = NoopPublisher{}
	if cfg.Enabled {
		amqpPub, err := NewAMQPPublisher(cfg.URL, cfg.Exchange)
		if err != nil {
			logger.Warnf("[Events] AMQP unavailable, domain events disabled: %v", err)
		} else {
			logger.Infof("[Events] Publishing to exchange %s", cfg.Exchange)
			p = amqpPub
		}
	}
	SetDefault(p)
	return p
}

func SetDefault(p Publisher) {
	publisherMu.Lock()
	defer publisherMu.Unlock()
	defaultPublisher = p
}

func Default() Publisher {
	publisherMu.RLock()
	defer publisherMu.RUnlock()
	return defaultPublisher
}

// Emit publishes through the default publisher. Failures are logged and counted, never returned:
// the database transaction that produced the event has already committed.
func Emit(ctx context.Context, routingKey string, payload interface{}) {
	err := Default().Publish(ctx, routingKey, payload)
	metrics.IncDomainEvent(routingKey, err)
	if err != nil {
		logger.Warn().Err(err).Str("routing_key", routingKey).Msg("[Events] publish failed")
	}
}
