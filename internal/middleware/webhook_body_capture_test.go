// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
)

func TestWebhookBodyCaptureMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		body          string
		expectCapture bool
	}{
		{
			name:          "captures webhook request body",
			path:          constants.WebhookPath,
			body:          `{"type":"call.session_started","call":{"custom":{"meetingId":"m-1"}}}`,
			expectCapture: true,
		},
		{
			name:          "keeps body bytes exactly",
			path:          constants.WebhookPath,
			body:          "{ \"type\" :  \"call.ended\" }\n",
			expectCapture: true,
		},
		{
			name:          "does not capture other api paths",
			path:          "/api/meetings",
			body:          `{"name":"Mock interview"}`,
			expectCapture: false,
		},
		{
			name:          "handles empty webhook body",
			path:          constants.WebhookPath,
			body:          "",
			expectCapture: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedBody []byte
			var bodyFromContext []byte
			var contextHasBody bool

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				bodyFromContext, contextHasBody = GetRawBodyFromContext(r.Context())

				// The body stays readable for the next handler.
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				capturedBody = body

				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			WebhookBodyCaptureMiddleware()(handler).ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.body, string(capturedBody))

			if tt.expectCapture {
				assert.True(t, contextHasBody)
				assert.Equal(t, tt.body, string(bodyFromContext))
			} else {
				assert.False(t, contextHasBody)
			}
		})
	}
}

func TestWebhookBodyCaptureMiddleware_ReadFailure(t *testing.T) {
	tests := []struct {
		name        string
		body        io.Reader
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "oversized body",
			body:        strings.NewReader(strings.Repeat("a", MaxWebhookBodyBytes+1)),
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantMessage: "Request body too large",
		},
		{
			name:        "broken body stream",
			body:        iotest.ErrReader(errors.New("connection reset")),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Failed to read request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			req := httptest.NewRequest(http.MethodPost, constants.WebhookPath, tt.body)
			w := httptest.NewRecorder()

			WebhookBodyCaptureMiddleware()(handler).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantMessage, resp["error"])
			assert.False(t, called)
		})
	}
}

func TestGetRawBodyFromContext(t *testing.T) {
	tests := []struct {
		name          string
		ctx           context.Context
		expectedBody  []byte
		expectedFound bool
	}{
		{
			name:          "returns body when present in context",
			ctx:           context.WithValue(context.Background(), constants.RawBodyContextID, []byte(`{"test": "data"}`)),
			expectedBody:  []byte(`{"test": "data"}`),
			expectedFound: true,
		},
		{
			name:          "returns false when body not in context",
			ctx:           context.Background(),
			expectedFound: false,
		},
		{
			name:          "returns false when wrong type in context",
			ctx:           context.WithValue(context.Background(), constants.RawBodyContextID, "wrong type"),
			expectedFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, found := GetRawBodyFromContext(tt.ctx)

			assert.Equal(t, tt.expectedFound, found)
			assert.Equal(t, tt.expectedBody, body)
		})
	}
}
