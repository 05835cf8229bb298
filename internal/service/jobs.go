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
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
)

// JobRun identifies one execution of a queued job. ID is stable across
// redeliveries and keys the step checkpoints.
type JobRun struct {
	ID          string
	Attempt     int
	LastAttempt bool
}

// JobService runs the background meeting jobs.
type JobService struct {
	meetings   domain.MeetingRepository
	steps      domain.StepStore
	fetcher    domain.TranscriptFetcher
	summarizer domain.Summarizer
	video      domain.VideoProvider
	jobs       domain.JobScheduler
	lifecycle  *LifecycleService
	speakers   *speakerResolver
}

// NewJobService creates a JobService.
func NewJobService(
	meetings domain.MeetingRepository,
	agents domain.AgentRepository,
	users domain.UserRepository,
	steps domain.StepStore,
	fetcher domain.TranscriptFetcher,
	summarizer domain.Summarizer,
	video domain.VideoProvider,
	jobs domain.JobScheduler,
	lifecycle *LifecycleService,
	config ServiceConfig,
) *JobService {
	config = config.withDefaults()
	return &JobService{
		meetings:   meetings,
		steps:      steps,
		fetcher:    fetcher,
		summarizer: summarizer,
		video:      video,
		jobs:       jobs,
		lifecycle:  lifecycle,
		speakers:   newSpeakerResolver(users, agents, config.Workers),
	}
}

// ServiceReady checks if the service is ready for use.
func (s *JobService) ServiceReady() bool {
	return s.meetings != nil &&
		s.steps != nil &&
		s.fetcher != nil &&
		s.summarizer != nil &&
		s.video != nil &&
		s.jobs != nil &&
		s.lifecycle != nil &&
		s.speakers.users != nil &&
		s.speakers.agents != nil
}

// CompleteMeeting finalizes a meeting still in processing with a fallback
// summary. Any other state makes it a no-op.
func (s *JobService) CompleteMeeting(ctx context.Context, payload models.CompleteMeetingPayload) error {
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", payload.MeetingID))

	meeting, err := s.lifecycle.CompleteFallback(ctx, payload.MeetingID)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "meeting completed with fallback summary", "duration_seconds", meeting.DurationSeconds())
		return nil
	case errors.Is(err, domain.ErrPreconditionFailed):
		slog.InfoContext(ctx, "meeting not in processing, nothing to complete", "status", meeting.Status)
		return nil
	case domain.GetErrorType(err) == domain.ErrorTypeNotFound:
		slog.WarnContext(ctx, "meeting to complete not found")
		return nil
	default:
		return err
	}
}

// ProcessTranscript fetches, annotates and summarizes a transcript. Each
// step is checkpointed under run.ID. When the transcript cannot be used the
// job gives up and queues the completion job instead.
func (s *JobService) ProcessTranscript(ctx context.Context, run JobRun, payload models.ProcessTranscriptPayload) error {
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", payload.MeetingID))
	ctx = logging.AppendCtx(ctx, slog.String("job_id", run.ID))

	err := s.processTranscript(ctx, run.ID, payload)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrPreconditionFailed):
		slog.InfoContext(ctx, "meeting cancelled, dropping transcript")
		return nil
	case domain.GetErrorType(err) == domain.ErrorTypeNotFound:
		slog.WarnContext(ctx, "meeting for transcript not found")
		return nil
	case errors.Is(err, models.ErrEmptyTranscript),
		domain.GetErrorType(err) == domain.ErrorTypeValidation:
		slog.WarnContext(ctx, "transcript unusable, falling back to completion", logging.ErrKey, err)
		return s.giveUp(ctx, run.ID, payload.MeetingID)
	case run.LastAttempt:
		slog.ErrorContext(ctx, "transcript processing exhausted retries, falling back to completion",
			logging.ErrKey, err,
			"attempt", run.Attempt,
			logging.PriorityCritical(),
		)
		return s.giveUp(ctx, run.ID, payload.MeetingID)
	default:
		slog.WarnContext(ctx, "transcript processing failed, will retry", logging.ErrKey, err, "attempt", run.Attempt)
		return err
	}
}

func (s *JobService) processTranscript(ctx context.Context, runID string, payload models.ProcessTranscriptPayload) error {
	meeting, err := s.meetings.Get(ctx, payload.MeetingID)
	if err != nil {
		return err
	}
	if meeting.Status == models.MeetingStatusCancelled {
		return domain.ErrPreconditionFailed
	}

	body, err := runStep(ctx, s.steps, runID, constants.StepFetchTranscript, func() ([]byte, error) {
		return s.fetcher.Fetch(ctx, payload.TranscriptURL)
	})
	if err != nil {
		return err
	}

	items, err := runStep(ctx, s.steps, runID, constants.StepParseTranscript, func() ([]models.TranscriptItem, error) {
		items, err := models.ParseTranscriptJSONL(body)
		if err != nil {
			return nil, domain.NewValidationError("malformed transcript", err)
		}
		if len(items) == 0 {
			return nil, models.ErrEmptyTranscript
		}
		return items, nil
	})
	if err != nil {
		return err
	}

	annotated, err := runStep(ctx, s.steps, runID, constants.StepAddSpeaker, func() ([]models.SpeakerTranscriptItem, error) {
		speakers, err := s.speakers.resolve(ctx, models.SpeakerIDs(items))
		if err != nil {
			return nil, err
		}
		return models.AttachSpeakers(items, speakers, models.UnknownSpeakerName), nil
	})
	if err != nil {
		return err
	}

	summary, err := runStep(ctx, s.steps, runID, constants.StepSummarize, func() (string, error) {
		return s.summarizer.Summarize(ctx, annotated)
	})
	if err != nil {
		return err
	}

	if _, err := runStep(ctx, s.steps, runID, constants.StepSaveSummary, func() (bool, error) {
		if _, err := s.lifecycle.CompleteWithSummary(ctx, payload.MeetingID, summary); err != nil {
			return false, err
		}
		return true, nil
	}); err != nil {
		return err
	}

	slog.InfoContext(ctx, "transcript processed", "items", len(items))
	s.clearSteps(ctx, runID)
	return nil
}

// giveUp queues the completion job so the meeting still reaches a terminal
// state.
func (s *JobService) giveUp(ctx context.Context, runID, meetingID string) error {
	jobID, err := s.jobs.Schedule(ctx, models.JobMeetingsComplete, models.CompleteMeetingPayload{MeetingID: meetingID}, 0)
	if err != nil {
		slog.ErrorContext(ctx, "failed to enqueue fallback completion", logging.ErrKey, err)
		return err
	}
	slog.InfoContext(ctx, "fallback completion enqueued", "completion_job_id", jobID)
	s.clearSteps(ctx, runID)
	return nil
}

func (s *JobService) clearSteps(ctx context.Context, runID string) {
	if err := s.steps.Clear(ctx, runID); err != nil {
		slog.WarnContext(ctx, "failed to clear job checkpoints", logging.ErrKey, err)
	}
}

// RecheckTranscript asks the provider for a transcript once more. A found
// URL takes the same path as a transcription ready webhook.
func (s *JobService) RecheckTranscript(ctx context.Context, payload models.TranscriptRecheckPayload) error {
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", payload.MeetingID))

	meeting, err := s.meetings.Get(ctx, payload.MeetingID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.WarnContext(ctx, "meeting for transcript recheck not found")
			return nil
		}
		return err
	}
	if meeting.Status == models.MeetingStatusCancelled || meeting.TranscriptURL != "" {
		slog.DebugContext(ctx, "transcript recheck not needed", "status", meeting.Status)
		return nil
	}

	transcriptURL, err := s.video.FindTranscriptURL(ctx, payload.MeetingID)
	if err != nil {
		return err
	}
	if transcriptURL == "" {
		slog.InfoContext(ctx, "still no transcript available after delay")
		return nil
	}

	slog.InfoContext(ctx, "transcript found on recheck")
	if _, err := s.lifecycle.TranscriptReady(ctx, payload.MeetingID, transcriptURL); err != nil &&
		!errors.Is(err, domain.ErrPreconditionFailed) {
		return err
	}
	return nil
}

// runStep returns the checkpointed output of step for runID, or runs fn and
// checkpoints its output. Checkpoint failures only cost a re-execution on
// redelivery, so they are logged and not returned.
func runStep[T any](ctx context.Context, steps domain.StepStore, runID, step string, fn func() (T, error)) (T, error) {
	var out T
	found, err := steps.Load(ctx, runID, step, &out)
	if err != nil {
		slog.WarnContext(ctx, "failed to load job checkpoint", logging.ErrKey, err, "step", step)
	}
	if found && err == nil {
		slog.DebugContext(ctx, "job step restored from checkpoint", "step", step)
		return out, nil
	}

	out, err = fn()
	if err != nil {
		return out, err
	}
	if err := steps.Save(ctx, runID, step, out); err != nil {
		slog.WarnContext(ctx, "failed to save job checkpoint", logging.ErrKey, err, "step", step)
	}
	return out, nil
}
