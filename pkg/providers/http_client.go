package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"
)

// HTTPClient is the shared HTTP machinery behind provider adapters:
// connection pooling, retry with exponential backoff, typed error
// mapping, and health tracking. Concrete adapters embed it and only
// translate payload shapes.
type HTTPClient struct {
	config Config
	client *http.Client

	healthMu sync.RWMutex
	health   Health
}

// consecutiveFailureThreshold is how many failed requests in a row mark
// the provider unhealthy.
const consecutiveFailureThreshold = 3

// NewHTTPClient creates the base client with a pooled transport.
func NewHTTPClient(config Config) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConns,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		health: Health{
			IsHealthy: true, // start optimistic
			LastCheck: time.Now(),
		},
	}
}

// Name returns the configured provider name.
func (c *HTTPClient) Name() string { return c.config.Name }

// Healthy reports the tracked health status.
func (c *HTTPClient) Healthy() bool {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health.IsHealthy
}

// GetHealth returns a snapshot of the tracked health.
func (c *HTTPClient) GetHealth() Health {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// updateHealth records a request outcome and flips the health flag after
// repeated consecutive failures.
func (c *HTTPClient) updateHealth(success bool, err error) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	c.health.LastCheck = time.Now()
	c.health.TotalRequests++

	if success {
		c.health.IsHealthy = true
		c.health.ConsecutiveFailures = 0
		c.health.LastError = nil
		return
	}

	c.health.FailedRequests++
	c.health.ConsecutiveFailures++
	c.health.LastError = err

	if c.health.ConsecutiveFailures >= consecutiveFailureThreshold {
		c.health.IsHealthy = false
		slog.Warn("provider marked unhealthy",
			"provider", c.config.Name,
			"consecutive_failures", c.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// DoJSON posts a JSON payload and decodes the JSON response, retrying
// transient failures (network errors, 5xx) with exponential backoff.
// 400/401/403/429 return immediately with typed errors. The context
// bounds the whole exchange including backoff waits.
func (c *HTTPClient) DoJSON(ctx context.Context, method, url string, reqBody, respBody any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			slog.Debug("retrying provider request",
				"provider", c.config.Name,
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				c.updateHealth(false, err)
				return &TimeoutError{Provider: c.config.Name, Timeout: c.config.Timeout}
			}
			// Network error, retryable.
			lastErr = err
			c.updateHealth(false, err)
			slog.Warn("provider request failed, will retry",
				"provider", c.config.Name,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = &ParseError{Provider: c.config.Name, Cause: fmt.Errorf("failed to read response: %w", readErr)}
			c.updateHealth(false, readErr)
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			c.updateHealth(true, nil)
			if err := json.Unmarshal(body, respBody); err != nil {
				return &ParseError{
					Provider:    c.config.Name,
					RawResponse: string(body),
					Cause:       err,
				}
			}
			return nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			err := &AuthError{Provider: c.config.Name, Message: string(body)}
			c.updateHealth(false, err)
			return err

		case resp.StatusCode == http.StatusTooManyRequests:
			err := &RateLimitError{
				Provider:   c.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(body),
			}
			c.updateHealth(false, err)
			return err

		case resp.StatusCode == http.StatusBadRequest:
			err := &ProviderError{Provider: c.config.Name, StatusCode: resp.StatusCode, Message: string(body)}
			c.updateHealth(false, err)
			return err

		default:
			// 5xx and anything unexpected, retryable.
			lastErr = &ProviderError{Provider: c.config.Name, StatusCode: resp.StatusCode, Message: string(body)}
			c.updateHealth(false, lastErr)
			slog.Warn("provider returned error status, will retry",
				"provider", c.config.Name,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	return lastErr
}

// parseRetryAfter parses a Retry-After header in either delay-seconds or
// HTTP-date form.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
