package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/events"

	"github.com/rs/zerolog/log"
	rd "github.com/redis/go-redis/v9"
)

// Relay forwards the Redis stream outbox to Kafka.
// A message is ACKed only after Kafka accepted it; failures stay pending for retry.
type Relay struct {
	rdb  *rd.Client
	sink events.Publisher

	stream   string
	group    string
	consumer string
}

func NewRelay(rdb *rd.Client, sink events.Publisher, stream, group, consumer string) *Relay {
	return &Relay{
		rdb:      rdb,
		sink:     sink,
		stream:   stream,
		group:    group,
		consumer: consumer,
	}
}

func (r *Relay) Run(ctx context.Context) {
	if err := r.ensureGroup(ctx); err != nil {
		log.Error().Err(err).Str("stream", r.stream).Msg("relay ensure group")
		return
	}
	log.Info().Str("stream", r.stream).Str("group", r.group).Msg("relay started")

	for {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.poll(ctx, 2*time.Second); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			log.Warn().Err(err).Msg("relay poll")
			time.Sleep(300 * time.Millisecond)
		}
	}
}

// poll handles this consumer's pending entries first, then new ones. It returns
// how many entries were forwarded or dropped.
func (r *Relay) poll(ctx context.Context, block time.Duration) (int, error) {
	msgs, err := r.readGroup(ctx, "0", -1)
	if err != nil {
		return 0, fmt.Errorf("read pending: %w", err)
	}
	if len(msgs) == 0 {
		msgs, err = r.readGroup(ctx, ">", block)
		if err != nil {
			return 0, fmt.Errorf("read new: %w", err)
		}
	}

	done := 0
	for _, xm := range msgs {
		if err := r.processOne(ctx, xm); err != nil {
			// not ACKed, the entry is retried on the next pending read
			log.Warn().Err(err).Str("id", xm.ID).Msg("relay process message")
			time.Sleep(200 * time.Millisecond)
			break
		}
		done++
	}
	return done, nil
}

func (r *Relay) ensureGroup(ctx context.Context) error {
	err := r.rdb.XGroupCreateMkStream(ctx, r.stream, r.group, "0").Err()
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

// readGroup never blocks when block is negative.
func (r *Relay) readGroup(ctx context.Context, streamID string, block time.Duration) ([]rd.XMessage, error) {
	streams, err := r.rdb.XReadGroup(ctx, &rd.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{r.stream, streamID},
		Count:    16,
		Block:    block,
		NoAck:    false,
	}).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]rd.XMessage, 0, 16)
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	return out, nil
}

func (r *Relay) processOne(ctx context.Context, xm rd.XMessage) error {
	env, err := parseStreamEnvelope(xm.Values)
	if err != nil {
		// malformed entries are dropped so they cannot block the stream
		log.Warn().Err(err).Str("id", xm.ID).Msg("relay drop malformed entry")
		if ackErr := r.ackAndDelete(ctx, xm.ID); ackErr != nil {
			return fmt.Errorf("parse failed: %v, ack failed: %w", err, ackErr)
		}
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.sink.Publish(pubCtx, env); err != nil {
		return err
	}
	return r.ackAndDelete(ctx, xm.ID)
}

func (r *Relay) ackAndDelete(ctx context.Context, id string) error {
	pipe := r.rdb.TxPipeline()
	pipe.XAck(ctx, r.stream, r.group, id)
	pipe.XDel(ctx, r.stream, id)
	_, err := pipe.Exec(ctx)
	return err
}
