// Package client provides the HTTP transport for the Marvel API with
// bounded retry and error handling.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/ArturWagner/marvel-characters-df/pkg/logging"
)

// DefaultBaseURL is the fixed, versioned Marvel API base. It is
// injectable through Config for tests only.
const DefaultBaseURL = "https://gateway.marvel.com/v1/public/"

// Prometheus metrics for API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marvel_requests_total",
		Help: "Total Marvel API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marvel_request_duration_seconds",
		Help:    "Marvel API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})
)

// Config holds the transport configuration.
type Config struct {
	// BaseURL of the API, always ending in a slash.
	BaseURL string

	// Timeout per HTTP call.
	Timeout time.Duration

	// Retry policy for transient failures.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: 30 * time.Second,
		Retry:   DefaultRetryConfig(),
	}
}

// Client executes authenticated GET requests against the Marvel API.
// The underlying http.Client reuses connections across calls; no other
// state is retained between requests.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base URL must include a host")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}
	if cfg.Retry.MaxAttempts <= 0 {
		return nil, fmt.Errorf("retry max attempts must be positive (got %d)", cfg.Retry.MaxAttempts)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logging.NewLogger("client"),
	}, nil
}

// Get issues a GET against an endpoint (relative to the base URL, no
// leading slash) with the given query parameters and returns the raw
// response body on HTTP 200.
//
// Statuses in the retry policy's transient set, as well as network
// errors, are retried with exponential backoff; any other non-200
// status fails immediately. After exhausted retries or a non-retryable
// status the error is a *RequestFailedError carrying the response body.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	fullURL := c.config.BaseURL + strings.TrimPrefix(endpoint, "/")

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte
	var lastStatus int
	var lastBody []byte

	retryErr := retryWithBackoff(ctx, c.config.Retry, endpoint, c.logger, func() (error, bool) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err), false
		}
		req.URL.RawQuery = params.Encode()
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Network errors are transient unless the caller gave up.
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return err, ctx.Err() == nil
		}
		defer resp.Body.Close()

		lastStatus = resp.StatusCode
		lastBody, err = io.ReadAll(resp.Body)
		if err != nil {
			requestsTotal.WithLabelValues(endpoint, "read_error").Inc()
			return fmt.Errorf("read response body: %w", err), true
		}
		requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusOK {
			body = lastBody
			return nil, false
		}

		reqErr := &RequestFailedError{StatusCode: resp.StatusCode, Body: lastBody}
		if c.config.Retry.retryable(resp.StatusCode) {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Msg("Transient API error")
			return reqErr, true
		}

		c.logger.Error().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("API request rejected")
		return reqErr, false
	})

	if retryErr != nil {
		if errors.Is(retryErr, ErrRetryExhausted) {
			return nil, &RequestFailedError{StatusCode: lastStatus, Body: lastBody, Err: retryErr}
		}
		return nil, retryErr
	}

	return body, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
