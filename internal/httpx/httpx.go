package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// Client is a small wrapper around http.Client with sane defaults and a
// GET-and-decode session method used by pagination follow-ups.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string

	// MaxRetries bounds retry attempts for retryable statuses (429/5xx).
	// Zero means no retries.
	MaxRetries int
	// RetryBackoff is the initial backoff; it doubles per attempt with
	// jitter. Defaults to 500ms when unset and MaxRetries > 0.
	RetryBackoff time.Duration
}

func New(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
	return &Client{
		HTTP:         &http.Client{Timeout: timeout, Transport: transport},
		UserAgent:    "barprovider/1.0",
		MaxRetries:   3,
		RetryBackoff: 500 * time.Millisecond,
	}
}

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, string(e.Body))
}

// Retryable reports whether the status should trigger a retry.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return c.HTTP.Do(req.WithContext(ctx))
}

// GetJSON performs a GET and decodes the JSON body into v, retrying
// retryable statuses with exponential backoff and jitter.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	backoff := c.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			// backoff * (0.5 .. 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jitter):
			}
			backoff *= 2
		}

		err := c.getJSONOnce(ctx, url, v)
		if err == nil {
			return nil
		}
		lastErr = err

		serr, ok := err.(*StatusError)
		if !ok || !serr.Retryable() {
			return err
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) getJSONOnce(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return &StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
