// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
)

// JobRunner is the subset of service.JobService the handler drives.
type JobRunner interface {
	ServiceReady() bool
	CompleteMeeting(ctx context.Context, payload models.CompleteMeetingPayload) error
	ProcessTranscript(ctx context.Context, run service.JobRun, payload models.ProcessTranscriptPayload) error
	RecheckTranscript(ctx context.Context, payload models.TranscriptRecheckPayload) error
}

// JobHandler routes job deliveries to the job service by job name.
type JobHandler struct {
	jobs JobRunner
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(jobs JobRunner) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// HandlerReady implements domain.MessageHandler.
func (h *JobHandler) HandlerReady() bool {
	return h.jobs != nil && h.jobs.ServiceReady()
}

// HandleMessage implements domain.MessageHandler.
func (h *JobHandler) HandleMessage(ctx context.Context, msg domain.Message) error {
	name := constants.JobNameFromSubject(msg.Subject())
	ctx = logging.AppendCtx(ctx, slog.Int("attempt", msg.Attempt()))
	slog.DebugContext(ctx, "handling job", "subject", msg.Subject())

	handlers := map[string]func(ctx context.Context, msg domain.Message) error{
		models.JobMeetingsComplete:          h.handleComplete,
		models.JobMeetingsProcessing:        h.handleProcessing,
		models.JobMeetingsTranscriptRecheck: h.handleRecheck,
	}

	handler, ok := handlers[name]
	if !ok {
		slog.WarnContext(ctx, "unknown job subject", "subject", msg.Subject())
		return domain.NewValidationError(fmt.Sprintf("unknown job subject %q", msg.Subject()))
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "job failed", logging.ErrKey, err, "last_attempt", msg.LastAttempt())
		return err
	}

	slog.DebugContext(ctx, "job done")
	return nil
}

func (h *JobHandler) handleComplete(ctx context.Context, msg domain.Message) error {
	var payload models.CompleteMeetingPayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}
	return h.jobs.CompleteMeeting(ctx, payload)
}

func (h *JobHandler) handleProcessing(ctx context.Context, msg domain.Message) error {
	var payload models.ProcessTranscriptPayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}
	run := service.JobRun{
		ID:          msg.JobID(),
		Attempt:     msg.Attempt(),
		LastAttempt: msg.LastAttempt(),
	}
	return h.jobs.ProcessTranscript(ctx, run, payload)
}

func (h *JobHandler) handleRecheck(ctx context.Context, msg domain.Message) error {
	var payload models.TranscriptRecheckPayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}
	return h.jobs.RecheckTranscript(ctx, payload)
}

type validatable interface {
	Validate() error
}

// decodePayload unmarshals and validates a job payload. Failures are
// validation errors so that the consumer terminates the job.
func decodePayload(msg domain.Message, payload validatable) error {
	if err := json.Unmarshal(msg.Data(), payload); err != nil {
		return domain.NewValidationError("invalid job payload", err)
	}
	if err := payload.Validate(); err != nil {
		return domain.NewValidationError("invalid job payload", err)
	}
	return nil
}
