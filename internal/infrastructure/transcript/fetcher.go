// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package transcript downloads transcript artifacts from the provider CDN.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// UserAgent identifies the service to artifact hosts.
	UserAgent = "lfx-v2-coach-service/transcript-fetcher"
	// DefaultTimeout bounds a single download.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBytes caps transcript size.
	DefaultMaxBytes = 32 << 20
)

// HTTPFetcher implements domain.TranscriptFetcher over HTTP.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

var _ domain.TranscriptFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a fetcher. A zero timeout uses DefaultTimeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxBytes: DefaultMaxBytes,
	}
}

// Fetch downloads the artifact at url. Server errors, rate limiting and
// network failures are Unavailable errors and worth retrying; any other
// non-2xx status is a Validation error since retrying cannot fix it.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewValidationError("invalid transcript url", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, domain.NewUnavailableError("failed to download transcript", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := fmt.Errorf("transcript host returned %s", resp.Status)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, domain.NewUnavailableError("transcript host unavailable", statusErr)
		}
		return nil, domain.NewValidationError("transcript not retrievable", statusErr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, domain.NewUnavailableError("failed to read transcript", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, domain.NewValidationError(fmt.Sprintf("transcript exceeds %d bytes", f.maxBytes))
	}

	slog.DebugContext(ctx, "transcript downloaded", "bytes", len(body))
	return body, nil
}
