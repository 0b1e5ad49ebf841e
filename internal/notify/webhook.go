package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/obs"
)

// SignBody produces the hex HMAC-SHA256 signature receivers verify. The
// timestamp is part of the signed input so captured requests cannot be
// replayed later.
func SignBody(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Deliverer performs the actual webhook POST for a delivery task.
type Deliverer struct {
	Client  *http.Client
	Logger  zerolog.Logger
	Timeout time.Duration
}

func (d *Deliverer) httpClient() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// HandleDelivery is the asynq handler for TaskWebhookDelivery. Returning an
// error lets asynq retry with its own backoff; a 2xx response completes the
// task.
func (d *Deliverer) HandleDelivery(ctx context.Context, task *asynq.Task) error {
	var payload struct {
		Event    events.Event `json:"event"`
		Endpoint string       `json:"endpoint"`
		Secret   string       `json:"secret"`
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// malformed payloads will never succeed; drop instead of retrying
		d.Logger.Error().Err(err).Msg("dropping malformed webhook delivery task")
		return nil
	}

	body, err := json.Marshal(payload.Event)
	if err != nil {
		return fmt.Errorf("notify: encode event body: %w", err)
	}
	now := time.Now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, payload.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Topic", payload.Event.Topic)
	req.Header.Set("X-Webhook-Timestamp", strconv.FormatInt(now, 10))
	if payload.Secret != "" {
		req.Header.Set("X-Webhook-Signature", SignBody(payload.Secret, now, body))
	}

	resp, err := d.httpClient().Do(req)
	if err != nil {
		d.count("error")
		return fmt.Errorf("notify: deliver to %s: %w", payload.Endpoint, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.count("rejected")
		return fmt.Errorf("notify: %s responded %d", payload.Endpoint, resp.StatusCode)
	}

	d.count("delivered")
	d.Logger.Info().
		Str("endpoint", payload.Endpoint).
		Str("topic", payload.Event.Topic).
		Int64("event_id", payload.Event.ID).
		Msg("webhook delivered")
	return nil
}

func (d *Deliverer) count(result string) {
	if obs.WebhookDeliveriesTotal != nil {
		obs.WebhookDeliveriesTotal.WithLabelValues(result).Inc()
	}
}
