// Package upstream holds the HTTP plumbing shared by the open-data clients:
// a per-service rate limiter, request metrics, status checking and JSON decoding.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
	"golang.org/x/time/rate"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeEmpty   = "empty"
)

// Client performs single-attempt JSON GETs against one upstream service.
type Client struct {
	service    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// New creates a client for service, allowing at most rps requests per second.
func New(service string, timeout time.Duration, rps float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return &Client{
		service: service,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		metrics: metrics,
		logger:  logger.With("upstream", service),
	}
}

// Service returns the metric label of the upstream.
func (c *Client) Service() string { return c.service }

// GetJSON fetches fullURL and decodes the body into out. Non-200 responses
// and undecodable bodies are errors; nothing is retried.
func (c *Client) GetJSON(ctx context.Context, fullURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(c.service).Observe(time.Since(start).Seconds())
	if err != nil {
		c.observe(OutcomeError)
		return fmt.Errorf("%s request: %w", c.service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.observe(OutcomeError)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s API error: status %d: %s", c.service, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.observe(OutcomeError)
		return fmt.Errorf("decode %s response: %w", c.service, err)
	}

	c.logger.Debug("upstream request complete", "status", resp.StatusCode, "duration", time.Since(start))
	return nil
}

// ObserveEmpty records a well-formed response that carried no records.
func (c *Client) ObserveEmpty() { c.observe(OutcomeEmpty) }

// ObserveSuccess records a response that yielded at least one record.
func (c *Client) ObserveSuccess() { c.observe(OutcomeSuccess) }

// ObserveError records a response rejected after decoding.
func (c *Client) ObserveError() { c.observe(OutcomeError) }

func (c *Client) observe(outcome string) {
	c.metrics.UpstreamRequests.WithLabelValues(c.service, outcome).Inc()
}
