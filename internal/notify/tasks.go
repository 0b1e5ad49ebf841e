package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-pos/internal/events"
)

// TaskWebhookDelivery is the asynq task type for outbound webhook deliveries.
const TaskWebhookDelivery = "webhook:deliver"

// QueueDefault is the asynq queue all notification tasks go to.
const QueueDefault = "default"

// Endpoint is a configured webhook receiver.
type Endpoint struct {
	URL    string
	Secret string
	Topics []string
}

// Subscribed reports whether the endpoint wants the topic. An empty topic
// list means all topics.
func (e Endpoint) Subscribed(topic string) bool {
	if len(e.Topics) == 0 {
		return true
	}
	for _, t := range e.Topics {
		if strings.EqualFold(strings.TrimSpace(t), topic) {
			return true
		}
	}
	return false
}

// NewDeliveryTask builds the asynq task for delivering an event to one
// endpoint. The secret travels with the task so the worker does not need the
// endpoint registry.
func NewDeliveryTask(ev events.Event, ep Endpoint, maxRetry int) (*asynq.Task, error) {
	body, err := json.Marshal(struct {
		Event    events.Event `json:"event"`
		Endpoint string       `json:"endpoint"`
		Secret   string       `json:"secret"`
	}{Event: ev, Endpoint: ep.URL, Secret: ep.Secret})
	if err != nil {
		return nil, fmt.Errorf("notify: encode delivery task: %w", err)
	}
	if maxRetry <= 0 {
		maxRetry = 5
	}
	return asynq.NewTask(TaskWebhookDelivery, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(30*time.Second),
	), nil
}
