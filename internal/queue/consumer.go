package queue

import (
	"context"
	"encoding/json"
	"strings"

	"storefront/internal/events"
	"storefront/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads the event topic and keeps an audit trail in the database.
// Redelivered events hit the unique event_id and are skipped.
type Consumer struct {
	r  messageReader
	db *gorm.DB
}

func NewConsumer(brokers []string, topic, groupID string, db *gorm.DB) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		db: db,
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("consumer read")
			}
			return
		}
		c.handle(ctx, m)
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		log.Warn().Err(err).Int64("offset", m.Offset).Msg("consumer unmarshal")
		return
	}
	if err := env.Validate(); err != nil {
		log.Warn().Err(err).Int64("offset", m.Offset).Msg("consumer invalid envelope")
		return
	}

	rec := &model.EventRecord{
		EventID:       env.EventID,
		EventType:     env.EventType,
		CorrelationID: env.CorrelationID,
		OccurredAt:    env.OccurredAt,
		Payload:       string(env.Payload),
	}
	if err := c.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errorsLikeUnique(err) {
			return
		}
		log.Error().Err(err).Str("event_id", env.EventID).Msg("consumer db create")
	}
}

func errorsLikeUnique(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") || strings.Contains(s, "unique") || strings.Contains(s, "duplicate key")
}
