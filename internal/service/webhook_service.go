// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
)

// Client facing webhook errors.
var (
	errMissingWebhookAuth = domain.NewValidationError("Missing signature or API key")
	errInvalidWebhookJSON = domain.NewValidationError("Invalid JSON")
)

// WebhookRequest is a provider webhook delivery.
type WebhookRequest struct {
	Body      []byte
	Signature string
	APIKey    string
}

// WebhookService verifies provider webhooks and applies them to the meeting
// lifecycle.
type WebhookService struct {
	verifier  domain.WebhookVerifier
	lifecycle *LifecycleService
	agents    domain.AgentRepository
	video     domain.VideoProvider
	jobs      domain.JobScheduler
	config    ServiceConfig
}

// NewWebhookService creates a WebhookService.
func NewWebhookService(
	verifier domain.WebhookVerifier,
	lifecycle *LifecycleService,
	agents domain.AgentRepository,
	video domain.VideoProvider,
	jobs domain.JobScheduler,
	config ServiceConfig,
) *WebhookService {
	return &WebhookService{
		verifier:  verifier,
		lifecycle: lifecycle,
		agents:    agents,
		video:     video,
		jobs:      jobs,
		config:    config.withDefaults(),
	}
}

// ServiceReady checks if the service is ready to process requests
func (s *WebhookService) ServiceReady() bool {
	return s.verifier != nil &&
		s.lifecycle != nil && s.lifecycle.ServiceReady() &&
		s.agents != nil &&
		s.video != nil &&
		s.jobs != nil
}

// HandleWebhook verifies and applies one delivery. Side effect failures are
// logged and do not fail the delivery; only errors the provider should see
// are returned.
func (s *WebhookService) HandleWebhook(ctx context.Context, req WebhookRequest) error {
	if req.Signature == "" || req.APIKey == "" {
		slog.WarnContext(ctx, "webhook missing signature or api key")
		return errMissingWebhookAuth
	}

	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "webhook service not initialized", logging.PriorityCritical())
		return domain.ErrServiceUnavailable
	}

	if err := s.verifier.Verify(req.Body, req.Signature, req.APIKey); err != nil {
		slog.WarnContext(ctx, "webhook verification failed", logging.ErrKey, err)
		return err
	}

	event, err := models.ParseWebhookEvent(req.Body)
	if err != nil {
		slog.WarnContext(ctx, "invalid webhook body", logging.ErrKey, err)
		return errInvalidWebhookJSON
	}

	ctx = logging.AppendCtx(ctx, slog.String("event_type", event.EventType()))
	slog.InfoContext(ctx, "webhook event received")

	switch e := event.(type) {
	case *models.SessionStartedEvent:
		return s.handleSessionStarted(ctx, e.MeetingID())
	case *models.ParticipantLeftEvent:
		return s.handleParticipantLeft(ctx, e.MeetingID())
	case *models.SessionEndedEvent:
		return s.handleSessionEnded(ctx, e.MeetingID())
	case *models.CallEndedEvent:
		return s.handleCallEnded(ctx, e.MeetingID())
	case *models.TranscriptionReadyEvent:
		return s.handleTranscriptionReady(ctx, e.MeetingID(), e.TranscriptURL())
	case *models.RecordingReadyEvent:
		return s.handleRecordingReady(ctx, e)
	case *models.UnknownEvent:
		slog.DebugContext(ctx, "ignoring unhandled webhook event")
		return nil
	default:
		slog.WarnContext(ctx, "unexpected webhook event")
		return nil
	}
}

func missingMeetingID(ctx context.Context) error {
	slog.WarnContext(ctx, "webhook event without meeting id")
	return domain.NewValidationError("Missing meeting ID", domain.ErrMissingMeetingID)
}

// notFoundOr turns a not-found error into a client facing message and passes
// every other error through.
func notFoundOr(err error, message string) error {
	if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
		return domain.NewNotFoundError(message, err)
	}
	return err
}

func (s *WebhookService) handleSessionStarted(ctx context.Context, meetingID string) error {
	if meetingID == "" {
		return missingMeetingID(ctx)
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", meetingID))

	meeting, err := s.lifecycle.Get(ctx, meetingID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load meeting", logging.ErrKey, err)
		return notFoundOr(err, "Meeting not found")
	}
	if meeting.Status != models.MeetingStatusUpcoming {
		slog.InfoContext(ctx, "session already started or meeting finished", "status", meeting.Status)
		return nil
	}

	agent, err := s.agents.Get(ctx, meeting.AgentID)
	if err != nil {
		slog.ErrorContext(ctx, "agent lookup failed for meeting", logging.ErrKey, err, "agent_id", meeting.AgentID)
		return notFoundOr(err, "Agent not found")
	}

	meeting, err = s.lifecycle.StartSession(ctx, meetingID)
	if errors.Is(err, domain.ErrPreconditionFailed) {
		slog.InfoContext(ctx, "session started concurrently", "status", meeting.Status)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to start meeting session", logging.ErrKey, err)
		return notFoundOr(err, "Meeting not found")
	}

	if err := s.video.ConnectAgent(ctx, meetingID, agent); err != nil {
		slog.ErrorContext(ctx, "failed to connect agent to call", logging.ErrKey, err, "agent_id", agent.ID)
		if _, revertErr := s.lifecycle.RevertSessionStart(ctx, meetingID); revertErr != nil {
			slog.ErrorContext(ctx, "failed to revert session start", logging.ErrKey, revertErr)
		}
		return domain.NewInternalError("Failed to connect agent", err)
	}
	slog.InfoContext(ctx, "agent connected to call", "agent_id", agent.ID)
	return nil
}

func (s *WebhookService) handleParticipantLeft(ctx context.Context, meetingID string) error {
	if meetingID == "" {
		return missingMeetingID(ctx)
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", meetingID))

	if err := s.video.EndCall(ctx, meetingID); err != nil {
		slog.ErrorContext(ctx, "failed to end call", logging.ErrKey, err)
	}

	meeting, err := s.lifecycle.EndSession(ctx, meetingID)
	if err != nil && !errors.Is(err, domain.ErrPreconditionFailed) {
		slog.ErrorContext(ctx, "failed to move meeting to processing", logging.ErrKey, err)
		return nil
	}
	if meeting == nil || meeting.Status != models.MeetingStatusProcessing {
		return nil
	}

	s.scheduleCompletionFallback(ctx, meetingID)
	return nil
}

func (s *WebhookService) scheduleCompletionFallback(ctx context.Context, meetingID string) {
	payload := models.CompleteMeetingPayload{MeetingID: meetingID}
	jobID, err := s.jobs.Schedule(ctx, models.JobMeetingsComplete, payload, s.config.CompletionFallbackDelay)
	if err != nil {
		slog.ErrorContext(ctx, "failed to schedule fallback completion", logging.ErrKey, err)
		return
	}
	slog.InfoContext(ctx, "fallback completion scheduled",
		"job_id", jobID,
		"delay", s.config.CompletionFallbackDelay.String(),
	)
}

func (s *WebhookService) handleSessionEnded(ctx context.Context, meetingID string) error {
	if meetingID == "" {
		return missingMeetingID(ctx)
	}
	s.endSession(logging.AppendCtx(ctx, slog.String("meeting_id", meetingID)), meetingID)
	return nil
}

func (s *WebhookService) handleCallEnded(ctx context.Context, meetingID string) error {
	if meetingID == "" {
		slog.DebugContext(ctx, "call ended event without meeting id")
		return nil
	}
	s.endSession(logging.AppendCtx(ctx, slog.String("meeting_id", meetingID)), meetingID)
	return nil
}

func (s *WebhookService) endSession(ctx context.Context, meetingID string) {
	_, err := s.lifecycle.EndSession(ctx, meetingID)
	switch {
	case err == nil, errors.Is(err, domain.ErrPreconditionFailed):
	case domain.GetErrorType(err) == domain.ErrorTypeNotFound:
		slog.WarnContext(ctx, "no meeting found to update")
	default:
		slog.ErrorContext(ctx, "failed to update meeting status", logging.ErrKey, err)
	}
}

func (s *WebhookService) handleTranscriptionReady(ctx context.Context, meetingID, transcriptURL string) error {
	if meetingID == "" {
		return missingMeetingID(ctx)
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", meetingID))
	if transcriptURL == "" {
		slog.WarnContext(ctx, "transcription ready event without url")
		return domain.NewValidationError("Missing transcript URL")
	}

	meeting, err := s.lifecycle.TranscriptReady(ctx, meetingID, transcriptURL)
	if errors.Is(err, domain.ErrPreconditionFailed) {
		slog.InfoContext(ctx, "ignoring transcript", "status", meeting.Status)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to attach transcript", logging.ErrKey, err)
		return notFoundOr(err, "Meeting not found")
	}
	return nil
}

func (s *WebhookService) handleRecordingReady(ctx context.Context, event *models.RecordingReadyEvent) error {
	meetingID := event.MeetingID()
	if meetingID == "" {
		return missingMeetingID(ctx)
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", meetingID))

	_, err := s.lifecycle.AttachRecording(ctx, meetingID, event.RecordingURL())
	if errors.Is(err, domain.ErrPreconditionFailed) {
		slog.InfoContext(ctx, "ignoring recording for cancelled meeting")
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to attach recording", logging.ErrKey, err)
		return notFoundOr(err, "Meeting not found")
	}

	transcriptURL := event.EmbeddedTranscriptURL()
	if transcriptURL == "" {
		transcriptURL, err = s.video.FindTranscriptURL(ctx, meetingID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to query call for transcript", logging.ErrKey, err)
		}
	}
	if transcriptURL == "" {
		s.scheduleTranscriptRecheck(ctx, meetingID)
		return nil
	}

	if _, err := s.lifecycle.TranscriptReady(ctx, meetingID, transcriptURL); err != nil &&
		!errors.Is(err, domain.ErrPreconditionFailed) {
		slog.ErrorContext(ctx, "failed to start transcript processing from recording", logging.ErrKey, err)
	}
	return nil
}

func (s *WebhookService) scheduleTranscriptRecheck(ctx context.Context, meetingID string) {
	payload := models.TranscriptRecheckPayload{MeetingID: meetingID}
	jobID, err := s.jobs.Schedule(ctx, models.JobMeetingsTranscriptRecheck, payload, s.config.TranscriptRecheckDelay)
	if err != nil {
		slog.ErrorContext(ctx, "failed to schedule transcript recheck", logging.ErrKey, err)
		return
	}
	slog.InfoContext(ctx, "no transcript yet, recheck scheduled",
		"job_id", jobID,
		"delay", s.config.TranscriptRecheckDelay.String(),
	)
}
