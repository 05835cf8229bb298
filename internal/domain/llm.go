// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
)

// Summarizer turns a speaker-annotated transcript into a markdown summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript []models.SpeakerTranscriptItem) (string, error)
}

// Coach answers a user's question about a completed meeting.
type Coach interface {
	Ask(ctx context.Context, req models.CoachRequest) (string, error)
}

// TranscriptFetcher downloads a transcript artifact.
type TranscriptFetcher interface {
	// Fetch returns the artifact body. Failures that will not succeed on
	// retry are returned as validation errors.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
