// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
)

// completionServer serves /v1/chat/completions and records the last request.
func completionServer(t *testing.T, status int, content string, got *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		if got != nil {
			require.NoError(t, json.Unmarshal(body, got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o",
			"choices": []map[string]any{},
		}
		if content != "" {
			resp["choices"] = []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *openai.Client {
	t.Helper()
	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)
	return client
}

func sampleTranscript() []models.SpeakerTranscriptItem {
	return []models.SpeakerTranscriptItem{
		{TranscriptItem: models.TranscriptItem{SpeakerID: "u1", Type: "speech", Text: "Tell me about yourself.", StartTs: 0, StopTs: 1500}, User: models.Speaker{ID: "u1", Name: "Coach"}},
		{TranscriptItem: models.TranscriptItem{SpeakerID: "u2", Type: "speech", Text: "I build distributed systems.", StartTs: 1600, StopTs: 4000}, User: models.Speaker{ID: "u2", Name: "Ada"}},
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{APIKey: "  "})
	assert.Error(t, err)
}

func TestOpenAISummarizer_Summarize(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := completionServer(t, http.StatusOK, "### Overview\nA short interview.", &got)
	s := NewOpenAISummarizer(newTestClient(t, srv), "", NewHeuristicTokenizer(), 0)

	summary, err := s.Summarize(context.Background(), sampleTranscript())
	require.NoError(t, err)
	assert.Equal(t, "### Overview\nA short interview.", summary)

	assert.Equal(t, DefaultSummaryModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.True(t, strings.HasPrefix(got.Messages[0].Content, "You are an expert summarizer."))
	assert.Contains(t, got.Messages[0].Content, "### Notes")
	assert.True(t, strings.HasPrefix(got.Messages[1].Content, summaryUserPrefix))

	var sent []models.SpeakerTranscriptItem
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(got.Messages[1].Content, summaryUserPrefix)), &sent))
	assert.Equal(t, sampleTranscript(), sent)
}

func TestOpenAISummarizer_EmptyOutput(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "", nil)
	s := NewOpenAISummarizer(newTestClient(t, srv), "gpt-4o", NewHeuristicTokenizer(), 0)

	summary, err := s.Summarize(context.Background(), sampleTranscript())
	require.NoError(t, err)
	assert.Equal(t, SummaryNotAvailable, summary)
}

func TestOpenAISummarizer_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType domain.ErrorType
	}{
		{"server error is retryable", http.StatusInternalServerError, domain.ErrorTypeUnavailable},
		{"rate limit is retryable", http.StatusTooManyRequests, domain.ErrorTypeUnavailable},
		{"bad request is permanent", http.StatusBadRequest, domain.ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := completionServer(t, tt.status, "", nil)
			s := NewOpenAISummarizer(newTestClient(t, srv), "", NewHeuristicTokenizer(), 0)

			_, err := s.Summarize(context.Background(), sampleTranscript())
			require.Error(t, err)
			assert.Equal(t, tt.wantType, domain.GetErrorType(err))
		})
	}
}

func TestOpenAISummarizer_NilClient(t *testing.T) {
	s := &OpenAISummarizer{}
	_, err := s.Summarize(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestOpenAISummarizer_FitTranscript(t *testing.T) {
	items := sampleTranscript()
	raw, err := json.Marshal(items[0])
	require.NoError(t, err)
	first := NewHeuristicTokenizer().Count(string(raw))

	s := NewOpenAISummarizer(nil, "", NewHeuristicTokenizer(), first)
	assert.Len(t, s.fitTranscript(items), 1)

	s = NewOpenAISummarizer(nil, "", NewHeuristicTokenizer(), first-1)
	assert.Empty(t, s.fitTranscript(items))

	s = NewOpenAISummarizer(nil, "", NewHeuristicTokenizer(), 0)
	assert.Len(t, s.fitTranscript(items), 2)
}

func TestOpenAISummarizer_NothingFits(t *testing.T) {
	items := sampleTranscript()
	raw, err := json.Marshal(items[0])
	require.NoError(t, err)
	first := NewHeuristicTokenizer().Count(string(raw))

	tests := []struct {
		name       string
		transcript []models.SpeakerTranscriptItem
		maxTokens  int
	}{
		{"first item over budget", items, first - 1},
		{"no items", []models.SpeakerTranscriptItem{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Errorf("unexpected completion request to %s", r.URL.Path)
			}))
			t.Cleanup(srv.Close)
			s := NewOpenAISummarizer(newTestClient(t, srv), "", NewHeuristicTokenizer(), tt.maxTokens)

			summary, err := s.Summarize(context.Background(), tt.transcript)
			assert.ErrorIs(t, err, models.ErrEmptyTranscript)
			assert.Empty(t, summary)
		})
	}
}

func TestOpenAICoach_Ask(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := completionServer(t, http.StatusOK, "Slow down when answering.", &got)
	c := NewOpenAICoach(newTestClient(t, srv), "", NewHeuristicTokenizer(), 0)

	answer, err := c.Ask(context.Background(), models.CoachRequest{
		MeetingName:     "Mock interview",
		AgentName:       "Interviewer",
		Instructions:    "Ask system design questions",
		DurationSeconds: 150,
		HasDuration:     true,
		Transcript:      "u1: hello",
		Question:        "How did I do?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Slow down when answering.", answer)

	assert.Equal(t, DefaultCoachModel, got.Model)
	assert.Equal(t, coachMaxTokens, got.MaxTokens)
	assert.InDelta(t, coachTemperature, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "How did I do?", got.Messages[1].Content)
	assert.Contains(t, got.Messages[0].Content, "- Duration: 3 minutes")
}

func TestOpenAICoach_Fallbacks(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "", nil)
	c := NewOpenAICoach(newTestClient(t, srv), "", NewHeuristicTokenizer(), 0)

	answer, err := c.Ask(context.Background(), models.CoachRequest{Question: "?"})
	require.NoError(t, err)
	assert.Equal(t, CoachFallbackAnswer, answer)

	failing := completionServer(t, http.StatusBadGateway, "", nil)
	c = NewOpenAICoach(newTestClient(t, failing), "", NewHeuristicTokenizer(), 0)
	_, err = c.Ask(context.Background(), models.CoachRequest{Question: "?"})
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
}

func TestCoachSystemPrompt(t *testing.T) {
	tests := []struct {
		name     string
		req      models.CoachRequest
		contains []string
	}{
		{
			name: "full context",
			req: models.CoachRequest{
				MeetingName: "Round 1", AgentName: "Ann", Instructions: "Be strict",
				Summary: "Went well", DurationSeconds: 89, HasDuration: true, Transcript: "u1: hi",
			},
			contains: []string{"- Name: Round 1", "- Agent: Ann", "- Agent Instructions: Be strict", "- Summary: Went well", "- Duration: 1 minutes", "Transcript:\nu1: hi"},
		},
		{
			name:     "missing data",
			req:      models.CoachRequest{MeetingName: "Round 2"},
			contains: []string{"- Summary: No summary available", "- Duration: Unknown minutes", "No transcript available for this meeting."},
		},
		{
			name:     "zero duration is unknown",
			req:      models.CoachRequest{HasDuration: true},
			contains: []string{"- Duration: Unknown minutes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := CoachSystemPrompt(tt.req)
			for _, want := range tt.contains {
				assert.Contains(t, prompt, want)
			}
			assert.True(t, strings.HasSuffix(prompt, "Be encouraging but honest in your assessment."))
		})
	}
}

func TestTokenizer_Heuristic(t *testing.T) {
	tok := NewHeuristicTokenizer()
	assert.False(t, tok.IsPrecise())
	assert.Equal(t, 0, tok.Count(""))
	assert.Equal(t, 1, tok.Count("hi"))
	assert.Equal(t, 3, tok.Count("hello world!"))

	out, cut := tok.Truncate("hello world!", 2)
	assert.True(t, cut)
	assert.Equal(t, "hello wo", out)

	out, cut = tok.Truncate("hello", 10)
	assert.False(t, cut)
	assert.Equal(t, "hello", out)

	out, cut = tok.Truncate("héllo", 0)
	assert.False(t, cut)
	assert.Equal(t, "héllo", out)

	// A cut inside a multi-byte rune backs off to the rune start.
	out, cut = tok.Truncate("aééé", 1)
	assert.True(t, cut)
	assert.Equal(t, "aé", out)
}

func TestModelToEncoding(t *testing.T) {
	tests := map[string]string{
		"gpt-4o":        "o200k_base",
		"GPT-4o-mini":   "o200k_base",
		"o3-mini":       "o200k_base",
		"gpt-4-turbo":   "cl100k_base",
		"gpt-3.5-turbo": "cl100k_base",
		"":              "cl100k_base",
	}
	for model, want := range tests {
		assert.Equal(t, want, modelToEncoding(model), model)
	}
}
