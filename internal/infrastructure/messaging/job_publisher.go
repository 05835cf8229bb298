// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// jobDuplicateWindow bounds how long JetStream remembers message ids for
// publish deduplication.
const jobDuplicateWindow = 2 * time.Minute

// IJetStreamPublisher is the subset of jetstream.JetStream used to publish jobs.
type IJetStreamPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JobPublisher schedules jobs by publishing envelopes on the job stream.
// It implements domain.JobScheduler.
type JobPublisher struct {
	js    IJetStreamPublisher
	now   func() time.Time
	newID func() string
}

// NewJobPublisher creates a JobPublisher.
func NewJobPublisher(js IJetStreamPublisher) *JobPublisher {
	return &JobPublisher{
		js:    js,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Schedule implements domain.JobScheduler.
func (p *JobPublisher) Schedule(ctx context.Context, name string, payload any, delay time.Duration) (string, error) {
	if p.js == nil {
		return "", domain.ErrServiceUnavailable
	}
	if !slices.Contains(models.JobNames, name) {
		return "", domain.NewValidationError(fmt.Sprintf("unknown job %q", name))
	}

	envelope, err := models.NewJobEnvelope(p.newID(), name, payload, delay, p.now())
	if err != nil {
		return "", domain.NewValidationError("job payload cannot be encoded", err)
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return "", domain.NewInternalError("failed to encode job envelope", err)
	}

	msg := nats.NewMsg(constants.JobSubject(name))
	msg.Data = data
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	if _, err := p.js.PublishMsg(ctx, msg, jetstream.WithMsgID(envelope.ID)); err != nil {
		slog.ErrorContext(ctx, "error publishing job", logging.ErrKey, err,
			"job", name, "job_id", envelope.ID)
		return "", domain.NewUnavailableError("failed to enqueue job", err)
	}

	slog.DebugContext(ctx, "scheduled job",
		"job", name,
		"job_id", envelope.ID,
		"not_before", envelope.NotBefore,
	)
	return envelope.ID, nil
}

// IJetStreamStreams is the subset of jetstream.JetStream used to manage the
// job stream and its consumer.
type IJetStreamStreams interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// JobStreamConfig returns the work queue stream definition for jobs.
func JobStreamConfig(maxAge time.Duration) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        constants.JobStreamName,
		Description: "Durable delayed jobs for coaching meetings",
		Subjects:    []string{constants.JobSubjectPrefix + ">"},
		Retention:   jetstream.WorkQueuePolicy,
		Storage:     jetstream.FileStorage,
		MaxAge:      maxAge,
		Duplicates:  jobDuplicateWindow,
	}
}

// EnsureJobStream creates the job stream or updates it to the current
// definition.
func EnsureJobStream(ctx context.Context, js IJetStreamStreams, maxAge time.Duration) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, JobStreamConfig(maxAge))
	if err != nil {
		return nil, fmt.Errorf("ensure job stream %s: %w", constants.JobStreamName, err)
	}
	return stream, nil
}
