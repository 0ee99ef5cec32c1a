// Package events defines the domain event envelope emitted after committed
// order and payment mutations.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	OrderCreated       = "order.created"
	OrderUpdated       = "order.updated"
	OrderDeleted       = "order.deleted"
	OrderDetailCreated = "order_detail.created"
	PaymentInitiated   = "payment.initiated"
	PaymentResolved    = "payment.resolved"
)

const (
	producerName = "storefront-api"
	version      = 1
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // user id or gateway order id
	Payload       json.RawMessage `json:"payload"`
}

// Validate rejects envelopes that cannot be routed.
func (e Envelope) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if len(e.Payload) == 0 {
		return fmt.Errorf("payload is required")
	}
	return nil
}

// New wraps payload in a fresh envelope.
func New(eventType, correlationID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  version,
		OccurredAt:    time.Now().UTC(),
		Producer:      producerName,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}

// Publisher delivers envelopes somewhere durable.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Emit builds and publishes an event. Failures are logged, never returned:
// the mutation that produced the event has already committed.
func Emit(ctx context.Context, pub Publisher, eventType, correlationID string, payload any) {
	if pub == nil {
		return
	}
	env, err := New(eventType, correlationID, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("build event")
		return
	}
	if err := pub.Publish(ctx, env); err != nil {
		log.Warn().Err(err).
			Str("event_type", eventType).
			Str("event_id", env.EventID).
			Msg("publish event")
	}
}

// LogPublisher writes events to the log only. Used when neither Redis nor Kafka is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, env Envelope) error {
	log.Info().
		Str("event_type", env.EventType).
		Str("event_id", env.EventID).
		Str("correlation_id", env.CorrelationID).
		RawJSON("payload", env.Payload).
		Msg("event")
	return nil
}

// Memory keeps published envelopes in memory.
type Memory struct {
	mu     sync.Mutex
	events []Envelope
}

func (m *Memory) Publish(_ context.Context, env Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, env)
	return nil
}

// Types returns the event types in publish order.
func (m *Memory) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

// Last returns the most recent envelope.
func (m *Memory) Last() (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return Envelope{}, false
	}
	return m.events[len(m.events)-1], true
}
