package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"manifestrecon/internal/config"
)

const userAgent = "manifestrecon/0.1.0"

// Upserter delivers a single row.
type Upserter interface {
	Upsert(ctx context.Context, row Row) error
}

// StatusError reports a non-2xx response from the mirror endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mirror returned %d: %s", e.Code, e.Body)
}

// Retryable reports whether the response is worth another attempt.
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// HTTPClient posts rows as JSON to <endpoint>/rows/<sheet>.
type HTTPClient struct {
	endpoint   string
	token      string
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
	sleep      func(context.Context, time.Duration) error
}

// NewHTTPClient builds a client from the mirror configuration.
func NewHTTPClient(cfg *config.Config) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.Mirror.Endpoint), "/")
	if base == "" {
		return nil, errors.New("mirror endpoint is required")
	}
	endpoint, err := url.JoinPath(base, "rows", url.PathEscape(cfg.Mirror.Sheet))
	if err != nil {
		return nil, fmt.Errorf("mirror endpoint: %w", err)
	}
	timeout := time.Duration(cfg.Mirror.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxRetries := cfg.Mirror.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &HTTPClient{
		endpoint:   endpoint,
		token:      strings.TrimSpace(cfg.Mirror.APIToken),
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		baseDelay:  time.Duration(cfg.Mirror.BaseDelayMS) * time.Millisecond,
		sleep:      sleepContext,
	}, nil
}

// Upsert sends row, retrying 429/5xx responses and transport errors. Every
// attempt reuses the same Idempotency-Key so the remote side can deduplicate.
func (c *HTTPClient) Upsert(ctx context.Context, row Row) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	key := uuid.NewString()

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt-1)); err != nil {
				return err
			}
		}
		lastErr = c.send(ctx, payload, key)
		if lastErr == nil {
			return nil
		}
		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && !statusErr.Retryable() {
			return lastErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("mirror upsert gave up after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *HTTPClient) backoff(retry int) time.Duration {
	delay := c.baseDelay << retry
	jitter := time.Duration(rand.Int64N(int64(time.Second)))
	if c.baseDelay <= time.Millisecond {
		jitter = 0
	}
	return delay + jitter
}

func (c *HTTPClient) send(ctx context.Context, payload []byte, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build mirror request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mirror row: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
