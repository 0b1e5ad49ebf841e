package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Doer performs a single HTTP round trip.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient wraps a base client with retries, per-attempt timeouts and an
// optional circuit breaker. Responses with a 5xx status count as failures;
// 4xx responses are returned as-is without retrying since they indicate a
// caller problem, not a dependency problem.
type HTTPClient struct {
	Base        Doer
	Breaker     *Breaker
	MaxAttempts int
	Timeout     time.Duration
	BackoffBase time.Duration
	JitterPct   float64
	Target      string
	Logger      *zerolog.Logger

	// Fallback, when set, is invoked after all attempts are exhausted or
	// the breaker rejects the request.
	Fallback func(ctx context.Context, req *http.Request, err error) (*http.Response, error)
}

// Do executes the request with the configured policy. Request bodies are
// buffered up front so retries can replay them.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	base := c.Base
	if base == nil {
		base = http.DefaultClient
	}
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("resilience: buffer request body: %w", err)
		}
		body = b
	}

	ctx := req.Context()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		if c.Breaker != nil && !c.Breaker.Allow() {
			lastErr = ErrOpenCircuit
			break
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if c.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		}

		attemptReq := req.Clone(attemptCtx)
		if body != nil {
			attemptReq.Body = io.NopCloser(bytes.NewReader(body))
			attemptReq.ContentLength = int64(len(body))
		}

		resp, err := base.Do(attemptReq)
		switch {
		case err != nil:
			if cancel != nil {
				cancel()
			}
			c.report(false)
			lastErr = err
		case resp.StatusCode >= 500:
			resp.Body.Close()
			if cancel != nil {
				cancel()
			}
			c.report(false)
			lastErr = fmt.Errorf("resilience: %s responded %d", c.target(), resp.StatusCode)
		default:
			c.report(true)
			if cancel != nil {
				resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
			}
			return resp, nil
		}

		if attempt < attempts {
			wait := Backoff(c.BackoffBase, attempt, c.JitterPct)
			if c.Logger != nil {
				c.Logger.Warn().
					Str("target", c.target()).
					Int("attempt", attempt).
					Dur("backoff", wait).
					Err(lastErr).
					Msg("retrying upstream request")
			}
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = attempts
			case <-time.After(wait):
			}
		}
	}

	if c.Fallback != nil {
		return c.Fallback(ctx, req, lastErr)
	}
	if lastErr == nil {
		lastErr = errors.New("resilience: request not attempted")
	}
	return nil, lastErr
}

func (c *HTTPClient) report(success bool) {
	if c.Breaker != nil {
		c.Breaker.Report(success)
	}
}

func (c *HTTPClient) target() string {
	if c.Target != "" {
		return c.Target
	}
	return "upstream"
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
