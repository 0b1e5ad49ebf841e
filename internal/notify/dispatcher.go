package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/events"
)

// Dispatcher fans emitted events out to webhook endpoints by enqueueing one
// delivery task per subscribed endpoint. It implements
// events.DeliveryScheduler.
type Dispatcher struct {
	Client    *asynq.Client
	Endpoints []Endpoint
	MaxRetry  int
	Logger    zerolog.Logger
}

// Schedule enqueues deliveries for every endpoint subscribed to the topic.
func (d *Dispatcher) Schedule(ctx context.Context, event events.Event) error {
	if d == nil || d.Client == nil || len(d.Endpoints) == 0 {
		return nil
	}
	var joined error
	for _, ep := range d.Endpoints {
		if !ep.Subscribed(event.Topic) {
			continue
		}
		task, err := NewDeliveryTask(event, ep, d.MaxRetry)
		if err != nil {
			joined = errors.Join(joined, err)
			continue
		}
		if _, err := d.Client.EnqueueContext(ctx, task); err != nil {
			joined = errors.Join(joined, fmt.Errorf("notify: enqueue delivery to %s: %w", ep.URL, err))
			continue
		}
		d.Logger.Debug().
			Str("topic", event.Topic).
			Str("endpoint", ep.URL).
			Msg("webhook delivery enqueued")
	}
	return joined
}
