// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package video is the REST client for the video calling provider.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

const (
	// BaseURL is the provider's video API base URL.
	BaseURL = "https://video.stream-io-api.com/api/v2"
	// DefaultCallType is the call type meetings are created with.
	DefaultCallType = "default"
	// DefaultClientTimeout is the default HTTP client timeout.
	DefaultClientTimeout = 30 * time.Second
	// Default retry configuration
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Config holds the configuration for the provider client.
type Config struct {
	APIKey    string
	APISecret string
	// CallType defaults to DefaultCallType.
	CallType string
	// AgentBridgeURL is the realtime agent bridge that joins agents to calls.
	AgentBridgeURL string
	// Optional: override base URL for testing
	BaseURL string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: retry configuration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Client talks to the provider REST API. It implements domain.VideoProvider.
type Client struct {
	httpClient *http.Client
	config     Config
	tokens     *TokenIssuer
	server     oauth2.TokenSource
}

var _ domain.VideoProvider = (*Client)(nil)

// NewClient creates a provider client.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" || config.APISecret == "" {
		return nil, errors.New("video provider api key and secret are required")
	}
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.CallType == "" {
		config.CallType = DefaultCallType
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = DefaultBackoffMultiplier
	}

	tokens := NewTokenIssuer(config.APISecret)
	return &Client{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		config: config,
		tokens: tokens,
		server: oauth2.ReuseTokenSource(nil, tokens.ServerTokenSource()),
	}, nil
}

// IsReady reports whether the client is configured.
func (c *Client) IsReady() bool {
	return c != nil && c.config.APIKey != ""
}

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("video provider error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("video provider error (status %d)", e.StatusCode)
}

// shouldRetry determines if an error or HTTP status code should be retried
func shouldRetry(statusCode int, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

// calculateBackoff calculates the backoff duration for a retry attempt with jitter
func (c *Client) calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.config.InitialBackoff
	}

	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffMultiplier, float64(attempt))
	if time.Duration(backoff) > c.config.MaxBackoff {
		backoff = float64(c.config.MaxBackoff)
	}

	// ±25% jitter
	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	withJitter := time.Duration(backoff + jitter)
	if withJitter < c.config.InitialBackoff {
		withJitter = c.config.InitialBackoff
	}
	return withJitter
}

// do performs an authenticated request with retries and decodes a JSON
// response into out when out is non-nil. It returns the raw response body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	endpoint := c.config.BaseURL + path
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt - 1)
			slog.WarnContext(ctx, "video provider request failed, retrying",
				"method", method,
				"path", path,
				"attempt", attempt,
				"backoff", backoff.String(),
				logging.ErrKey, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		status, respBody, err := c.send(ctx, method, endpoint, payload)
		if err == nil && status < http.StatusMultipleChoices {
			if out != nil && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, out); err != nil {
					return respBody, fmt.Errorf("failed to decode video provider response: %w", err)
				}
			}
			return respBody, nil
		}

		if err == nil {
			apiErr := &APIError{StatusCode: status}
			_ = json.Unmarshal(respBody, apiErr)
			err = apiErr
		}
		lastErr = err

		if !shouldRetry(status, err) {
			slog.ErrorContext(ctx, "video provider request failed (not retryable)",
				"method", method,
				"path", path,
				"status", status,
				logging.ErrKey, err)
			return nil, err
		}
	}

	slog.ErrorContext(ctx, "video provider request failed after all retries",
		"method", method,
		"path", path,
		"attempts", c.config.MaxRetries+1,
		logging.ErrKey, lastErr,
		logging.PriorityCritical())
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// send executes one request attempt.
func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte) (int, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.server.Token()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to sign server token: %w", err)
	}
	q := req.URL.Query()
	q.Set("api_key", c.config.APIKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", token.AccessToken)
	req.Header.Set("stream-auth-type", "jwt")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	slog.DebugContext(ctx, "video provider request completed",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start).String())
	return resp.StatusCode, respBody, nil
}

// callPath returns the API path of a call.
func (c *Client) callPath(callID string, suffix ...string) string {
	parts := append([]string{"/video/call", url.PathEscape(c.config.CallType), url.PathEscape(callID)}, suffix...)
	return strings.Join(parts, "/")
}
