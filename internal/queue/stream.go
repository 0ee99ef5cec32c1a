package queue

import (
	"context"

	"storefront/internal/events"

	rd "github.com/redis/go-redis/v9"
)

// StreamPublisher appends envelopes to a Redis stream. Relay drains it into Kafka,
// so request handlers never wait on the broker.
type StreamPublisher struct {
	rdb    *rd.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(rdb *rd.Client, stream string) *StreamPublisher {
	return &StreamPublisher{rdb: rdb, stream: stream, maxLen: 100000}
}

func (p *StreamPublisher) Publish(ctx context.Context, env events.Envelope) error {
	values, err := streamValues(env)
	if err != nil {
		return err
	}
	return p.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Err()
}
