// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"encoding/json"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
)

// SummaryNotAvailable is stored when the model returns no text.
const SummaryNotAvailable = "Summary not available"

const summaryUserPrefix = "Summarize the following transcript: "

const summarySystemPrompt = `You are an expert summarizer. You write readable, concise, simple content. You are given a transcript of a meeting and you need to summarize it.

Use the following markdown structure for every output:

### Overview
Provide a detailed, engaging summary of the session's content. Focus on major features, user workflows, and any key takeaways. Write in a narrative style, using full sentences. Highlight unique or powerful aspects of the product, platform, or discussion.

### Notes
Break down key content into thematic sections with timestamp ranges. Each section should summarize key points, actions, or demos in bullet format.

Example:
#### Section Name
- Main point or demo shown here
- Another key insight or interaction
- Follow-up tool or explanation provided

#### Next Section
- Feature X automatically does Y
- Mention of integration with Z`

// OpenAISummarizer writes meeting summaries with a chat completion model.
type OpenAISummarizer struct {
	client    ChatCompleter
	model     string
	tokenizer *Tokenizer
	maxTokens int
}

// NewOpenAISummarizer creates a summarizer. An empty model selects
// DefaultSummaryModel; a nil tokenizer is derived from the model.
func NewOpenAISummarizer(client ChatCompleter, model string, tokenizer *Tokenizer, maxTranscriptTokens int) *OpenAISummarizer {
	if model == "" {
		model = DefaultSummaryModel
	}
	if tokenizer == nil {
		tokenizer = NewTokenizerForModel(model)
	}
	if maxTranscriptTokens <= 0 {
		maxTranscriptTokens = DefaultMaxTranscriptTokens
	}
	return &OpenAISummarizer{
		client:    client,
		model:     model,
		tokenizer: tokenizer,
		maxTokens: maxTranscriptTokens,
	}
}

// Summarize implements domain.Summarizer.
func (s *OpenAISummarizer) Summarize(ctx context.Context, transcript []models.SpeakerTranscriptItem) (string, error) {
	if s.client == nil {
		return "", domain.ErrServiceUnavailable
	}

	kept := s.fitTranscript(transcript)
	if len(kept) == 0 {
		slog.WarnContext(ctx, "no transcript items fit the token budget",
			"items", len(transcript),
			"max_tokens", s.maxTokens,
		)
		return "", models.ErrEmptyTranscript
	}
	if len(kept) < len(transcript) {
		slog.WarnContext(ctx, "transcript truncated to token budget",
			"items", len(transcript),
			"kept", len(kept),
			"max_tokens", s.maxTokens,
		)
	}
	body, err := json.Marshal(kept)
	if err != nil {
		return "", domain.NewInternalError("failed to encode transcript", err)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: summaryUserPrefix + string(body)},
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "summary completion failed", logging.ErrKey, err, "model", s.model)
		return "", classifyError("failed to summarize transcript", err)
	}

	summary := firstContent(resp)
	if summary == "" {
		return SummaryNotAvailable, nil
	}
	return summary, nil
}

// fitTranscript keeps the leading items whose encoded size fits the token
// budget, so the payload stays valid JSON.
func (s *OpenAISummarizer) fitTranscript(transcript []models.SpeakerTranscriptItem) []models.SpeakerTranscriptItem {
	used := 0
	for i, item := range transcript {
		raw, err := json.Marshal(item)
		if err != nil {
			return transcript[:i]
		}
		used += s.tokenizer.Count(string(raw))
		if used > s.maxTokens {
			return transcript[:i]
		}
	}
	return transcript
}
