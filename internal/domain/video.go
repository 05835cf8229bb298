// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
)

// VideoProvider defines the operations the service needs from the video
// calling platform. Call ids are meeting ids.
type VideoProvider interface {
	// CreateCall creates the provider call for a meeting with transcription
	// and recording enabled.
	CreateCall(ctx context.Context, req models.CreateCallRequest) error
	// EndCall ends the call for every participant.
	EndCall(ctx context.Context, callID string) error
	// ConnectAgent joins the agent to the call as a realtime participant.
	ConnectAgent(ctx context.Context, callID string, agent *models.Agent) error
	// FindTranscriptURL queries the call details for a transcript artifact.
	// It returns "" when none is available yet.
	FindTranscriptURL(ctx context.Context, callID string) (string, error)
	// UpsertUsers registers users (people or agents) with the provider.
	UpsertUsers(ctx context.Context, users ...models.User) error
	// CreateUserToken signs a token allowing userID to join calls.
	CreateUserToken(userID string, ttl time.Duration) (*models.VideoToken, error)
}

// WebhookVerifier authenticates provider webhook deliveries.
type WebhookVerifier interface {
	// Verify checks the api key and the signature of body. It returns
	// ErrInvalidSignature on mismatch.
	Verify(body []byte, signature, apiKey string) error
}
