// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
)

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{name: "keeps caller request id", incoming: "req-123"},
		{name: "mints request id when missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromContext string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fromContext = RequestIDFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/meetings", nil)
			if tt.incoming != "" {
				req.Header.Set(constants.RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()

			RequestIDMiddleware()(handler).ServeHTTP(w, req)

			require.NotEmpty(t, fromContext)
			assert.Equal(t, fromContext, w.Header().Get(constants.RequestIDHeader))
			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, fromContext)
			}
		})
	}
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestAuthorizationMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "bearer scheme stripped", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "scheme is case insensitive", header: "bearer abc", want: "abc"},
		{name: "raw token kept", header: "abc", want: "abc"},
		{name: "no header", header: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = BearerTokenFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
			if tt.header != "" {
				req.Header.Set(constants.AuthorizationHeader, tt.header)
			}

			AuthorizationMiddleware()(handler).ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(logging.NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.InfoContext(r.Context(), "inside handler")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	})
	wrapped := RequestLoggerMiddleware()(handler)

	t.Run("logs request and response with request attributes", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodPost, "/api/meetings?page=2", nil)
		wrapped.ServeHTTP(httptest.NewRecorder(), req)

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 3)

		var inside map[string]any
		require.NoError(t, json.Unmarshal(lines[1], &inside))
		assert.Equal(t, "inside handler", inside["msg"])
		assert.Equal(t, http.MethodPost, inside["method"])
		assert.Equal(t, "/api/meetings", inside["path"])
		assert.Equal(t, "page=2", inside["query"])

		var response map[string]any
		require.NoError(t, json.Unmarshal(lines[2], &response))
		assert.Equal(t, "HTTP response", response["msg"])
		assert.EqualValues(t, http.StatusCreated, response["status"])
		assert.EqualValues(t, 2, response["bytes"])
	})

	t.Run("health checks are not logged", func(t *testing.T) {
		buf.Reset()
		for _, path := range []string{"/livez", "/readyz"} {
			wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		}
		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		// Only the handler's own line per request remains.
		assert.Len(t, lines, 2)
	})
}
