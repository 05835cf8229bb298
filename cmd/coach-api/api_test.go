// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/infrastructure/auth"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
)

// stubAuth accepts the tokens it knows.
type stubAuth map[string]*auth.Principal

func (a stubAuth) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error) {
	p, err := a.ParseIdentity(ctx, token, logger)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (a stubAuth) ParseIdentity(_ context.Context, token string, _ *slog.Logger) (*auth.Principal, error) {
	p, ok := a[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return p, nil
}

type apiFixture struct {
	handler  http.Handler
	meetings *mocks.MemoryMeetingRepository
	agents   *mocks.MemoryAgentRepository
	users    *mocks.MemoryUserRepository
	video    *mocks.MockVideoProvider
	verifier *mocks.MockWebhookVerifier
	jobs     *mocks.MockJobScheduler
	coach    *mocks.MockCoach
}

func newAPIFixture(t *testing.T, meetings []*models.Meeting, agents []*models.Agent) *apiFixture {
	t.Helper()
	f := &apiFixture{
		meetings: mocks.NewMemoryMeetingRepository(meetings...),
		agents:   mocks.NewMemoryAgentRepository(agents...),
		users:    mocks.NewMemoryUserRepository(),
		video:    &mocks.MockVideoProvider{},
		verifier: &mocks.MockWebhookVerifier{},
		jobs:     &mocks.MockJobScheduler{},
		coach:    &mocks.MockCoach{},
	}
	cfg := service.DefaultServiceConfig()
	lifecycle := service.NewLifecycleService(f.meetings, f.jobs)

	svc := NewCoachAPI(
		service.NewAuthService(stubAuth{
			"alice-token": {ID: "alice", Name: "Alice", Email: "alice@example.com"},
			"bob-token":   {ID: "bob", Name: "Bob"},
		}),
		service.NewAgentService(f.agents, f.meetings),
		service.NewMeetingService(f.meetings, f.agents, f.users, f.video, &mocks.MockTranscriptFetcher{}, f.coach, f.jobs, lifecycle, cfg),
		service.NewWebhookService(f.verifier, lifecycle, f.agents, f.video, f.jobs, cfg),
	)
	f.handler = newHandler(svc)
	return f
}

func (f *apiFixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(constants.AuthorizationHeader, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func seedAgent(id, userID string) *models.Agent {
	created := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	return &models.Agent{
		ID:           id,
		Name:         "Interviewer " + id,
		UserID:       userID,
		Instructions: "Ask about system design",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func seedMeeting(id, userID, agentID string, status models.MeetingStatus) *models.Meeting {
	created := time.Date(2025, 3, 14, 13, 0, 0, 0, time.UTC)
	return &models.Meeting{
		ID:        id,
		Name:      "Mock interview " + id,
		UserID:    userID,
		AgentID:   agentID,
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	rec := f.do(http.MethodGet, "/livez", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())

	rec = f.do(http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
}

func TestReadyzUnavailable(t *testing.T) {
	svc := NewCoachAPI(service.NewAuthService(nil), nil, nil, nil)
	rec := httptest.NewRecorder()
	newHandler(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "service unavailable\n", rec.Body.String())
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newAPIFixture(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set(constants.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(constants.RequestIDHeader))
}

func TestAuthenticationRequired(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"unknown token", "mallory-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, "/api/agents", tt.token, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthorized", decodeJSON(t, rec)["error"])
		})
	}
}

func TestWebhook(t *testing.T) {
	unknownEvent := `{"type":"call.member_added","call_cid":"default:m-1"}`

	tests := []struct {
		name           string
		body           string
		signature      string
		apiKey         string
		verifyErr      error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "accepted",
			body:           unknownEvent,
			signature:      "sig",
			apiKey:         "key",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing signature",
			body:           unknownEvent,
			apiKey:         "key",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Missing signature or API key",
		},
		{
			name:           "bad signature",
			body:           unknownEvent,
			signature:      "forged",
			apiKey:         "key",
			verifyErr:      domain.ErrInvalidSignature,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "invalid signature",
		},
		{
			name:           "invalid json",
			body:           `{"type":`,
			signature:      "sig",
			apiKey:         "key",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid JSON",
		},
		{
			name:           "oversized body",
			body:           `{"type":"` + strings.Repeat("a", middleware.MaxWebhookBodyBytes) + `"}`,
			signature:      "sig",
			apiKey:         "key",
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedError:  "Request body too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, nil, nil)
			f.verifier.On("Verify", []byte(tt.body), tt.signature, tt.apiKey).Return(tt.verifyErr).Maybe()

			req := httptest.NewRequest(http.MethodPost, constants.WebhookPath, strings.NewReader(tt.body))
			if tt.signature != "" {
				req.Header.Set(constants.SignatureHeader, tt.signature)
			}
			if tt.apiKey != "" {
				req.Header.Set(constants.APIKeyHeader, tt.apiKey)
			}
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			body := decodeJSON(t, rec)
			if tt.expectedError == "" {
				assert.Equal(t, "ok", body["status"])
			} else {
				assert.Equal(t, tt.expectedError, body["error"])
			}
		})
	}
}

func TestWebhookSessionStartedActivatesMeeting(t *testing.T) {
	agent := seedAgent("agent-1", "alice")
	f := newAPIFixture(t, []*models.Meeting{seedMeeting("m-1", "alice", "agent-1", models.MeetingStatusUpcoming)}, []*models.Agent{agent})

	body := `{"type":"call.session_started","call_cid":"default:m-1","call":{"id":"m-1","custom":{"meetingId":"m-1"}}}`
	f.verifier.On("Verify", []byte(body), "sig", "key").Return(nil)
	f.video.On("ConnectAgent", mock.Anything, "m-1", mock.Anything).Return(nil)

	req := httptest.NewRequest(http.MethodPost, constants.WebhookPath, strings.NewReader(body))
	req.Header.Set(constants.SignatureHeader, "sig")
	req.Header.Set(constants.APIKeyHeader, "key")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.MeetingStatusActive, f.meetings.Snapshot("m-1").Status)
}

func TestAgentRoutes(t *testing.T) {
	f := newAPIFixture(t, nil, []*models.Agent{seedAgent("agent-bob", "bob")})

	rec := f.do(http.MethodPost, "/api/agents", "alice-token", `{"name":"Staff engineer","instructions":"Probe on tradeoffs"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeJSON(t, rec)
	agentID, _ := created["id"].(string)
	require.NotEmpty(t, agentID)
	assert.Equal(t, "Staff engineer", created["name"])
	assert.Equal(t, "alice", created["user_id"])

	rec = f.do(http.MethodGet, "/api/agents/"+agentID, "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeJSON(t, rec)["meeting_count"])

	rec = f.do(http.MethodGet, "/api/agents?search=staff", "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeJSON(t, rec)
	assert.EqualValues(t, 1, page["total"])

	rec = f.do(http.MethodPut, "/api/agents/"+agentID, "alice-token", `{"name":"Principal engineer","instructions":"Probe on tradeoffs"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Principal engineer", decodeJSON(t, rec)["name"])

	// Agents owned by someone else are invisible.
	rec = f.do(http.MethodGet, "/api/agents/agent-bob", "alice-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodDelete, "/api/agents/"+agentID, "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodGet, "/api/agents/"+agentID, "alice-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	tests := []struct {
		name          string
		method        string
		path          string
		body          string
		expectedError string
	}{
		{"missing body", http.MethodPost, "/api/agents", "", "request body is required"},
		{"malformed body", http.MethodPost, "/api/agents", `{"name":`, "invalid request body"},
		{"missing name", http.MethodPost, "/api/agents", `{"instructions":"x"}`, "Name is required"},
		{"non numeric page", http.MethodGet, "/api/meetings?page=two", "", "page must be an integer"},
		{"meeting without agent", http.MethodPost, "/api/meetings", `{"name":"Loop"}`, "Agent is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, "alice-token", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.expectedError, decodeJSON(t, rec)["error"])
		})
	}
}

func TestCreateMeeting(t *testing.T) {
	f := newAPIFixture(t, nil, []*models.Agent{seedAgent("agent-1", "alice")})
	f.video.On("CreateCall", mock.Anything, mock.AnythingOfType("models.CreateCallRequest")).Return(nil)
	f.video.On("UpsertUsers", mock.Anything, mock.Anything).Return(nil)

	rec := f.do(http.MethodPost, "/api/meetings", "alice-token", `{"name":"System design loop","agentId":"agent-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeJSON(t, rec)
	assert.Equal(t, "upcoming", body["status"])
	assert.Nil(t, body["duration"])
	agent, ok := body["agent"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "agent-1", agent["id"])
	f.video.AssertExpectations(t)
}

func TestCreateMeetingProviderFailure(t *testing.T) {
	f := newAPIFixture(t, nil, []*models.Agent{seedAgent("agent-1", "alice")})
	f.video.On("CreateCall", mock.Anything, mock.Anything).Return(errors.New("provider down"))

	rec := f.do(http.MethodPost, "/api/meetings", "alice-token", `{"name":"System design loop","agentId":"agent-1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeJSON(t, rec)["error"])

	rec = f.do(http.MethodGet, "/api/meetings", "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeJSON(t, rec)["total"])
}

func TestMeetingActions(t *testing.T) {
	agents := []*models.Agent{seedAgent("agent-1", "alice")}
	meetings := []*models.Meeting{
		seedMeeting("m-upcoming", "alice", "agent-1", models.MeetingStatusUpcoming),
		seedMeeting("m-done", "alice", "agent-1", models.MeetingStatusCompleted),
		seedMeeting("m-bob", "bob", "agent-1", models.MeetingStatusUpcoming),
	}

	t.Run("list filters by status", func(t *testing.T) {
		f := newAPIFixture(t, meetings, agents)
		rec := f.do(http.MethodGet, "/api/meetings?status=completed", "alice-token", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, decodeJSON(t, rec)["total"])
	})

	t.Run("complete queues the completion job", func(t *testing.T) {
		f := newAPIFixture(t, meetings, agents)
		f.jobs.On("Schedule", mock.Anything, models.JobMeetingsComplete, models.CompleteMeetingPayload{MeetingID: "m-upcoming"}, time.Duration(0)).
			Return("job-1", nil)

		rec := f.do(http.MethodPost, "/api/meetings/m-upcoming/complete", "alice-token", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decodeJSON(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Meeting completion triggered", body["message"])
		assert.Equal(t, "job-1", body["jobId"])
	})

	t.Run("cancel upcoming meeting", func(t *testing.T) {
		f := newAPIFixture(t, meetings, agents)
		f.video.On("EndCall", mock.Anything, "m-upcoming").Return(nil)

		rec := f.do(http.MethodPost, "/api/meetings/m-upcoming/cancel", "alice-token", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "cancelled", decodeJSON(t, rec)["status"])
	})

	t.Run("cancel completed meeting conflicts", func(t *testing.T) {
		f := newAPIFixture(t, meetings, agents)
		rec := f.do(http.MethodPost, "/api/meetings/m-done/cancel", "alice-token", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("meeting of another user is not found", func(t *testing.T) {
		f := newAPIFixture(t, meetings, agents)
		rec := f.do(http.MethodGet, "/api/meetings/m-bob", "alice-token", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("transcript of meeting without one is empty", func(t *testing.T) {
		f := newAPIFixture(t, meetings, agents)
		rec := f.do(http.MethodGet, "/api/meetings/m-upcoming/transcript", "alice-token", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})
}

func TestCreateVideoToken(t *testing.T) {
	f := newAPIFixture(t, nil, nil)
	f.video.On("UpsertUsers", mock.Anything, mock.Anything).Return(nil)
	f.video.On("CreateUserToken", "alice", mock.AnythingOfType("time.Duration")).
		Return(&models.VideoToken{Token: "tok", UserID: "alice", ExpiresAt: 1700000000}, nil)

	rec := f.do(http.MethodPost, "/api/video/token", "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)
	assert.Equal(t, "tok", body["token"])
	assert.Equal(t, "alice", body["userId"])

	user, err := f.users.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{domain.NewValidationError("bad"), http.StatusBadRequest},
		{domain.NewUnauthorizedError("nope"), http.StatusUnauthorized},
		{domain.ErrMeetingNotFound, http.StatusNotFound},
		{domain.NewConflictError("stale"), http.StatusConflict},
		{domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.expected, statusForError(tt.err))
		})
	}
}
