// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
)

// Default models.
const (
	DefaultSummaryModel = "gpt-4o"
	DefaultCoachModel   = "gpt-4o-mini"

	// DefaultMaxTranscriptTokens leaves room for the prompt and the answer
	// inside a 128k context window.
	DefaultMaxTranscriptTokens = 100_000
)

// Config holds the OpenAI connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ChatCompleter is the part of the OpenAI client used by the service.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewClient builds an OpenAI client with traced transport.
func NewClient(cfg Config) (*openai.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	config.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return openai.NewClientWithConfig(config), nil
}

// classifyError maps OpenAI failures onto domain error types. Rate limits
// and server errors are worth retrying; other request errors are not.
func classifyError(message string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests, apiErr.HTTPStatusCode >= 500:
			return domain.NewUnavailableError(message, err)
		case apiErr.HTTPStatusCode >= 400:
			return domain.NewValidationError(message, err)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode >= 400 && reqErr.HTTPStatusCode < 500 &&
		reqErr.HTTPStatusCode != http.StatusTooManyRequests {
		return domain.NewValidationError(message, err)
	}
	return domain.NewUnavailableError(message, err)
}

func firstContent(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
