// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
)

// MaxWebhookBodyBytes bounds the webhook payload kept in memory.
const MaxWebhookBodyBytes = 1 << 20

// WebhookBodyCaptureMiddleware captures the raw request body for the provider
// webhook endpoint and stores it in the request context for signature
// verification. The signature covers the exact bytes, so the body must not be
// re-encoded before verification.
func WebhookBodyCaptureMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == constants.WebhookPath {
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes))
				if err != nil {
					var tooLarge *http.MaxBytesError
					if errors.As(err, &tooLarge) {
						writeJSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
						return
					}
					slog.DebugContext(r.Context(), "failed to read webhook body", logging.ErrKey, err)
					writeJSONError(w, http.StatusBadRequest, "Failed to read request body")
					return
				}
				_ = r.Body.Close()

				r.Body = io.NopCloser(bytes.NewReader(body))

				ctx := context.WithValue(r.Context(), constants.RawBodyContextID, body)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeJSONError writes the {"error": message} body the API uses for every
// failed request.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetRawBodyFromContext extracts the raw body from the context
func GetRawBodyFromContext(ctx context.Context) ([]byte, bool) {
	body, ok := ctx.Value(constants.RawBodyContextID).([]byte)
	return body, ok
}
