// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/utils"
)

// Summaries written by the completion job when no transcript was processed.
const (
	BriefMeetingSummary      = "Meeting was very brief (less than 1 minute). Transcript may not be available for short meetings."
	DelayedProcessingSummary = "Meeting completed. Transcript processing took longer than expected or was not available."
)

// maxTransitionAttempts bounds the read-check-write loop when concurrent
// writers keep moving the revision.
const maxTransitionAttempts = 5

var (
	fromNotStarted   = []models.MeetingStatus{models.MeetingStatusUpcoming}
	fromStarted      = []models.MeetingStatus{models.MeetingStatusActive}
	fromLive         = []models.MeetingStatus{models.MeetingStatusUpcoming, models.MeetingStatusActive}
	fromProcessing   = []models.MeetingStatus{models.MeetingStatusProcessing}
	fromNotCancelled = []models.MeetingStatus{
		models.MeetingStatusUpcoming,
		models.MeetingStatusActive,
		models.MeetingStatusProcessing,
		models.MeetingStatusCompleted,
	}
)

// mutation changes a meeting read at a known revision. It returns
// domain.ErrPreconditionFailed to leave the meeting untouched.
type mutation func(m *models.Meeting, now time.Time) error

// requireStatus builds a mutation that applies fn only from the listed
// statuses.
func requireStatus(from []models.MeetingStatus, fn func(m *models.Meeting, now time.Time)) mutation {
	return func(m *models.Meeting, now time.Time) error {
		if !slices.Contains(from, m.Status) {
			return domain.ErrPreconditionFailed
		}
		fn(m, now)
		return nil
	}
}

// LifecycleService moves meetings through their status state machine. Every
// transition is a compare-and-swap on the stored revision, so concurrent
// webhook deliveries and jobs never overwrite each other.
type LifecycleService struct {
	meetings domain.MeetingRepository
	jobs     domain.JobScheduler
	now      func() time.Time
}

// NewLifecycleService creates a LifecycleService.
func NewLifecycleService(meetings domain.MeetingRepository, jobs domain.JobScheduler) *LifecycleService {
	return &LifecycleService{
		meetings: meetings,
		jobs:     jobs,
		now:      time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *LifecycleService) ServiceReady() bool {
	return s.meetings != nil && s.meetings.IsReady() && s.jobs != nil
}

// transition applies mutate to the stored meeting. On a precondition
// failure the current meeting is returned together with
// domain.ErrPreconditionFailed.
func (s *LifecycleService) transition(ctx context.Context, meetingID, name string, mutate mutation) (*models.Meeting, error) {
	if meetingID == "" {
		return nil, domain.ErrMissingMeetingID
	}
	ctx = logging.AppendCtx(ctx, slog.String("transition", name))

	for attempt := 1; ; attempt++ {
		meeting, revision, err := s.meetings.GetWithRevision(ctx, meetingID)
		if err != nil {
			return nil, err
		}

		from := meeting.Status
		now := s.now().UTC()
		if err := mutate(meeting, now); err != nil {
			if errors.Is(err, domain.ErrPreconditionFailed) {
				slog.DebugContext(ctx, "transition precondition not met", "status", from)
			}
			return meeting, err
		}
		meeting.UpdatedAt = now

		err = s.meetings.Update(ctx, meeting, revision)
		if err == nil {
			slog.InfoContext(ctx, "meeting transitioned",
				"from_status", from,
				"to_status", meeting.Status,
			)
			return meeting, nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict || attempt >= maxTransitionAttempts {
			slog.ErrorContext(ctx, "error updating meeting", logging.ErrKey, err, "attempt", attempt)
			return nil, err
		}
		slog.DebugContext(ctx, "meeting modified concurrently, retrying", "attempt", attempt)
	}
}

// StartSession marks an upcoming meeting active.
func (s *LifecycleService) StartSession(ctx context.Context, meetingID string) (*models.Meeting, error) {
	return s.transition(ctx, meetingID, "start-session", requireStatus(fromNotStarted, func(m *models.Meeting, now time.Time) {
		m.Status = models.MeetingStatusActive
		m.StartedAt = utils.Ptr(now)
	}))
}

// RevertSessionStart puts an active meeting back to upcoming so a redelivered
// session start can activate it again.
func (s *LifecycleService) RevertSessionStart(ctx context.Context, meetingID string) (*models.Meeting, error) {
	return s.transition(ctx, meetingID, "revert-session-start", requireStatus(fromStarted, func(m *models.Meeting, _ time.Time) {
		m.Status = models.MeetingStatusUpcoming
		m.StartedAt = nil
	}))
}

// Get reads the current state of a meeting.
func (s *LifecycleService) Get(ctx context.Context, meetingID string) (*models.Meeting, error) {
	if meetingID == "" {
		return nil, domain.ErrMissingMeetingID
	}
	return s.meetings.Get(ctx, meetingID)
}

// EndSession moves a meeting that has not ended yet to processing.
func (s *LifecycleService) EndSession(ctx context.Context, meetingID string) (*models.Meeting, error) {
	return s.transition(ctx, meetingID, "end-session", requireStatus(fromLive, func(m *models.Meeting, now time.Time) {
		m.Status = models.MeetingStatusProcessing
		m.EndedAt = utils.Ptr(now)
	}))
}

// AttachTranscript records the transcript location. A completed meeting
// keeps its status; any other non-cancelled meeting moves to processing.
// Redelivering the transcript a completed meeting was already built from
// is a no-op.
func (s *LifecycleService) AttachTranscript(ctx context.Context, meetingID, transcriptURL string) (*models.Meeting, error) {
	attach := requireStatus(fromNotCancelled, func(m *models.Meeting, _ time.Time) {
		m.TranscriptURL = transcriptURL
		if m.Status != models.MeetingStatusCompleted {
			m.Status = models.MeetingStatusProcessing
		}
	})
	return s.transition(ctx, meetingID, "attach-transcript", func(m *models.Meeting, now time.Time) error {
		if m.Status == models.MeetingStatusCompleted && m.TranscriptURL == transcriptURL {
			return domain.ErrPreconditionFailed
		}
		return attach(m, now)
	})
}

// AttachRecording records the recording location without changing status.
func (s *LifecycleService) AttachRecording(ctx context.Context, meetingID, recordingURL string) (*models.Meeting, error) {
	return s.transition(ctx, meetingID, "attach-recording", requireStatus(fromNotCancelled, func(m *models.Meeting, _ time.Time) {
		m.RecordingURL = recordingURL
	}))
}

// CompleteWithSummary stores a generated summary and completes the meeting.
func (s *LifecycleService) CompleteWithSummary(ctx context.Context, meetingID, summary string) (*models.Meeting, error) {
	return s.transition(ctx, meetingID, "complete-with-summary", requireStatus(fromNotCancelled, func(m *models.Meeting, _ time.Time) {
		m.Summary = summary
		m.Status = models.MeetingStatusCompleted
	}))
}

// CompleteFallback completes a meeting still in processing with an
// explanatory summary.
func (s *LifecycleService) CompleteFallback(ctx context.Context, meetingID string) (*models.Meeting, error) {
	return s.transition(ctx, meetingID, "complete-fallback", requireStatus(fromProcessing, func(m *models.Meeting, _ time.Time) {
		m.Summary = FallbackSummary(m)
		m.Status = models.MeetingStatusCompleted
	}))
}

// Cancel cancels a meeting that has not ended.
func (s *LifecycleService) Cancel(ctx context.Context, meetingID string) (*models.Meeting, error) {
	return s.transition(ctx, meetingID, "cancel", requireStatus(fromLive, func(m *models.Meeting, _ time.Time) {
		m.Status = models.MeetingStatusCancelled
	}))
}

// TranscriptReady attaches the transcript URL and queues transcript
// processing. A failure to queue is logged; the completion fallback still
// finalizes the meeting.
func (s *LifecycleService) TranscriptReady(ctx context.Context, meetingID, transcriptURL string) (*models.Meeting, error) {
	meeting, err := s.AttachTranscript(ctx, meetingID, transcriptURL)
	if err != nil {
		return meeting, err
	}

	payload := models.ProcessTranscriptPayload{MeetingID: meetingID, TranscriptURL: transcriptURL}
	jobID, err := s.jobs.Schedule(ctx, models.JobMeetingsProcessing, payload, 0)
	if err != nil {
		slog.ErrorContext(ctx, "failed to enqueue transcript processing", logging.ErrKey, err)
		return meeting, nil
	}
	slog.InfoContext(ctx, "transcript processing enqueued", "job_id", jobID)
	return meeting, nil
}

// FallbackSummary picks the completion message from the meeting duration.
func FallbackSummary(m *models.Meeting) string {
	if m.DurationSeconds() < int64(constants.BriefMeetingThreshold/time.Second) {
		return BriefMeetingSummary
	}
	return DelayedProcessingSummary
}
