// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
)

// CoachFallbackAnswer is returned when the model produces no text.
const CoachFallbackAnswer = "I couldn't generate a response. Please try again."

const (
	coachMaxTokens   = 500
	coachTemperature = 0.7
)

// OpenAICoach answers questions about a finished meeting.
type OpenAICoach struct {
	client    ChatCompleter
	model     string
	tokenizer *Tokenizer
	maxTokens int
}

// NewOpenAICoach creates a coach. An empty model selects DefaultCoachModel.
func NewOpenAICoach(client ChatCompleter, model string, tokenizer *Tokenizer, maxTranscriptTokens int) *OpenAICoach {
	if model == "" {
		model = DefaultCoachModel
	}
	if tokenizer == nil {
		tokenizer = NewTokenizerForModel(model)
	}
	if maxTranscriptTokens <= 0 {
		maxTranscriptTokens = DefaultMaxTranscriptTokens
	}
	return &OpenAICoach{client: client, model: model, tokenizer: tokenizer, maxTokens: maxTranscriptTokens}
}

// Ask implements domain.Coach.
func (c *OpenAICoach) Ask(ctx context.Context, req models.CoachRequest) (string, error) {
	if c.client == nil {
		return "", domain.ErrServiceUnavailable
	}
	transcript, truncated := c.tokenizer.Truncate(req.Transcript, c.maxTokens)
	if truncated {
		slog.WarnContext(ctx, "coach transcript truncated to token budget", "max_tokens", c.maxTokens)
	}
	req.Transcript = transcript

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: CoachSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Question},
		},
		MaxTokens:   coachMaxTokens,
		Temperature: coachTemperature,
	})
	if err != nil {
		slog.ErrorContext(ctx, "coach completion failed", logging.ErrKey, err, "model", c.model)
		return "", domain.NewInternalError("Failed to generate AI response. Please try again.", err)
	}

	if answer := firstContent(resp); answer != "" {
		return answer, nil
	}
	return CoachFallbackAnswer, nil
}

// CoachSystemPrompt renders the meeting context for the coach model.
func CoachSystemPrompt(req models.CoachRequest) string {
	summary := req.Summary
	if summary == "" {
		summary = "No summary available"
	}
	duration := "Unknown"
	if req.HasDuration && req.DurationSeconds > 0 {
		duration = fmt.Sprintf("%d", int64(math.Round(float64(req.DurationSeconds)/60)))
	}

	var b strings.Builder
	b.WriteString("You are an AI meeting coach specialized in providing constructive feedback on meetings and interviews.\n\n")
	b.WriteString("Meeting Details:\n")
	fmt.Fprintf(&b, "- Name: %s\n", req.MeetingName)
	fmt.Fprintf(&b, "- Agent: %s\n", req.AgentName)
	fmt.Fprintf(&b, "- Agent Instructions: %s\n", req.Instructions)
	fmt.Fprintf(&b, "- Summary: %s\n", summary)
	fmt.Fprintf(&b, "- Duration: %s minutes\n\n", duration)
	if req.Transcript != "" {
		b.WriteString("Transcript:\n")
		b.WriteString(req.Transcript)
		b.WriteString("\n\n")
	} else {
		b.WriteString("No transcript available for this meeting.\n\n")
	}
	b.WriteString(`Please provide helpful, specific, and actionable feedback based on the user's question. Focus on:
- Communication skills
- Areas for improvement
- Specific examples from the meeting content
- Constructive suggestions
- Positive reinforcement where appropriate

Be encouraging but honest in your assessment.`)
	return b.String()
}
