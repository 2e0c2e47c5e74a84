package cache

import (
	"context"
	"strconv"

	"collateral-loan-engine/internal/domain/event"

	"github.com/redis/go-redis/v9"
)

// StreamPublisher appends outbox events to a Redis stream.
type StreamPublisher struct {
	rdb    *redis.Client
	stream string
}

func NewStreamPublisher(rdb *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{rdb: rdb, stream: stream}
}

func (p *StreamPublisher) Publish(ctx context.Context, e event.Event) error {
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event_id":   e.EventID,
			"type":       string(e.Type),
			"loan_id":    strconv.FormatUint(e.LoanID, 10),
			"payload":    e.Payload,
			"created_at": e.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		},
	}).Err()
}
