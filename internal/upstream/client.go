package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/resilience"
)

// Doer performs an HTTP round trip.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the retail orders API. Read paths (orders, customer search)
// go through a retrying client; the order update path uses a single-attempt
// client because the operation is not idempotent on the remote side.
type Client struct {
	baseURL string
	token   string
	read    Doer
	write   Doer
	logger  zerolog.Logger
}

// Config carries the knobs for constructing a Client.
type Config struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	MaxAttempts int
	Breaker     *resilience.Breaker
	Logger      zerolog.Logger
}

// New builds a Client from cfg. A zero MaxAttempts defaults to 3 for reads.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	base := &http.Client{}
	read := &resilience.HTTPClient{
		Base:        base,
		Breaker:     cfg.Breaker,
		MaxAttempts: attempts,
		Timeout:     timeout,
		BackoffBase: 200 * time.Millisecond,
		JitterPct:   0.2,
		Target:      "retail-api",
		Logger:      &cfg.Logger,
	}
	write := &resilience.HTTPClient{
		Base:        base,
		Breaker:     cfg.Breaker,
		MaxAttempts: 1,
		Timeout:     timeout,
		Target:      "retail-api",
		Logger:      &cfg.Logger,
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		read:    read,
		write:   write,
		logger:  cfg.Logger,
	}
}

// Customer is a customer record as returned by the retail API search endpoint.
type Customer struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	MembershipTier string  `json:"membership_tier"`
	Points         int64   `json:"points"`
	Balance        float64 `json:"balance"`
}

// FetchOrder retrieves an order by id. The decoded payload is returned as-is
// so the caller can run it through the shape normalizer.
func (c *Client) FetchOrder(ctx context.Context, orderID int64) (map[string]any, error) {
	return c.doJSON(ctx, c.read, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), nil)
}

// UpdateOrder applies the reconciliation payload to an order. It is never
// retried: a timed-out update may still have been applied remotely.
func (c *Client) UpdateOrder(ctx context.Context, orderID int64, payload any) (map[string]any, error) {
	return c.doJSON(ctx, c.write, http.MethodPut, fmt.Sprintf("/orders/%d", orderID), payload)
}

// SearchCustomers queries customers by name or phone.
func (c *Client) SearchCustomers(ctx context.Context, query string, page, perPage int) ([]Customer, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	body, err := c.doJSON(ctx, c.read, http.MethodGet, "/customers?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	raw, ok := body["data"]
	if !ok {
		raw = body["customers"]
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("upstream: re-encode customer list: %w", err)
	}
	var out []Customer
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, fmt.Errorf("upstream: decode customer list: %w", err)
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, doer Doer, method, path string, payload any) (map[string]any, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("upstream: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := doer.Do(req)
	if err != nil {
		return nil, &Error{Status: 0, Message: "Unable to reach the orders service", cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("upstream: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, Classify(resp.StatusCode, raw)
	}

	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("upstream: decode response: %w", err)
		}
	}
	return out, nil
}
