package outbox

import (
	"context"
	"time"

	"collateral-loan-engine/internal/domain/event"

	"github.com/rs/zerolog"
)

// Publisher delivers one outbox record downstream.
type Publisher interface {
	Publish(ctx context.Context, e event.Event) error
}

// Relay moves committed loan events from the outbox table to a Publisher.
// Delivery is at-least-once; consumers dedupe on event_id.
type Relay struct {
	events       event.Repository
	pub          Publisher
	pollInterval time.Duration
	batchSize    int
	nowFn        func() time.Time
	log          zerolog.Logger
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option { return func(r *Relay) { r.pollInterval = d } }

func WithBatchSize(n int) Option { return func(r *Relay) { r.batchSize = n } }

func WithLogger(l zerolog.Logger) Option { return func(r *Relay) { r.log = l } }

func WithClock(now func() time.Time) Option { return func(r *Relay) { r.nowFn = now } }

func NewRelay(events event.Repository, pub Publisher, opts ...Option) *Relay {
	r := &Relay{
		events:       events,
		pub:          pub,
		pollInterval: time.Second,
		batchSize:    100,
		nowFn:        time.Now,
		log:          zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	interval := r.pollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn().Err(err).Msg("outbox relay: batch failed")
			}
		}
	}
}

// RunOnce publishes one batch in id order. It stops at the first publish
// failure; everything delivered before it is still marked published.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	batch := r.batchSize
	if batch <= 0 {
		batch = 100
	}
	pending, err := r.events.ListUnpublished(ctx, batch)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	sent := make([]uint64, 0, len(pending))
	var pubErr error
	for _, e := range pending {
		if pubErr = r.pub.Publish(ctx, e); pubErr != nil {
			break
		}
		sent = append(sent, e.ID)
	}
	if err := r.events.MarkPublished(ctx, sent, r.nowFn()); err != nil {
		return 0, err
	}
	if len(sent) > 0 {
		r.log.Debug().Int("count", len(sent)).Msg("outbox relay: published")
	}
	return len(sent), pubErr
}
