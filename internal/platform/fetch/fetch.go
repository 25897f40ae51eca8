// Package fetch is the rate-limited, retrying JSON GET shared by the
// metadata provider clients.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// StatusError reports a non-200 response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type Getter struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

type Option func(*Getter)

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(g *Getter) { g.httpClient = c }
}

// WithBackoff sets the first retry delay. Later retries double it.
func WithBackoff(d time.Duration) Option {
	return func(g *Getter) { g.backoff = d }
}

func NewGetter(userAgent string, rps int, maxRetries int, opts ...Option) *Getter {
	if rps <= 0 {
		rps = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	g := &Getter{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GetJSON decodes the body of a GET to url into target. Transport errors,
// 429 and 5xx responses are retried with exponential backoff.
func (g *Getter) GetJSON(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= g.maxRetries; i++ {
		if i > 0 {
			wait := g.backoff * time.Duration(1<<uint(i-1))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		err := g.do(ctx, url, target)
		if err == nil {
			return nil
		}
		if se, ok := err.(*StatusError); ok && !se.retryable() {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}
	return fmt.Errorf("after %d retries: %w", g.maxRetries, lastErr)
}

func (g *Getter) do(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
