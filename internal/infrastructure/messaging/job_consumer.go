// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	retryBaseDelay = 5 * time.Second
	retryMaxDelay  = 5 * time.Minute
)

// JobConsumerConfig tunes delivery of jobs to the handler.
type JobConsumerConfig struct {
	// AckWait is how long a delivery may stay unacknowledged before the
	// server redelivers it. Running jobs are kept alive with progress acks.
	AckWait time.Duration
	// MaxDeliver is the number of handler attempts per job.
	MaxDeliver int
	// Workers is the number of jobs handled concurrently.
	Workers int
}

// IJetStreamConsumers is the subset of jetstream.JetStream used to bind the
// durable job consumer.
type IJetStreamConsumers interface {
	CreateOrUpdateConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error)
}

// JobConsumer pulls jobs from the job stream and hands them to a
// domain.MessageHandler.
type JobConsumer struct {
	js      IJetStreamConsumers
	handler domain.MessageHandler
	cfg     JobConsumerConfig
	now     func() time.Time
}

// NewJobConsumer creates a JobConsumer, applying defaults to unset config.
func NewJobConsumer(js IJetStreamConsumers, handler domain.MessageHandler, cfg JobConsumerConfig) *JobConsumer {
	if cfg.AckWait <= 0 {
		cfg.AckWait = time.Minute
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = constants.DefaultJobMaxDeliver
	}
	if cfg.Workers <= 0 {
		cfg.Workers = constants.DefaultJobWorkers
	}
	return &JobConsumer{
		js:      js,
		handler: handler,
		cfg:     cfg,
		now:     time.Now,
	}
}

// ConsumerConfig returns the durable consumer definition. A delayed job
// spends one extra delivery being deferred until it is due.
func (c *JobConsumer) ConsumerConfig() jetstream.ConsumerConfig {
	return jetstream.ConsumerConfig{
		Durable:       constants.JobConsumerName,
		Description:   "Coaching job worker",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.cfg.AckWait,
		MaxDeliver:    c.cfg.MaxDeliver + 1,
		FilterSubject: constants.JobSubjectPrefix + ">",
		MaxAckPending: c.cfg.Workers * 4,
	}
}

// Run consumes jobs until ctx is cancelled, then waits for in-flight jobs.
func (c *JobConsumer) Run(ctx context.Context) error {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, constants.JobStreamName, c.ConsumerConfig())
	if err != nil {
		return fmt.Errorf("create job consumer: %w", err)
	}

	// In-flight jobs finish after shutdown starts; unstarted ones are
	// redelivered to another worker.
	jobCtx := context.WithoutCancel(ctx)
	dispatcher := concurrent.NewDispatcher(c.cfg.Workers)

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		dispatcher.Submit(func() { c.Process(jobCtx, msg) })
	}, jetstream.PullMaxMessages(c.cfg.Workers))
	if err != nil {
		return fmt.Errorf("consume jobs: %w", err)
	}

	slog.InfoContext(ctx, "job consumer started",
		"stream", constants.JobStreamName,
		"consumer", constants.JobConsumerName,
		"workers", c.cfg.Workers,
	)

	<-ctx.Done()
	consumeCtx.Stop()
	dispatcher.Wait()
	slog.Info("job consumer stopped")
	return nil
}

// Process handles a single delivery and settles it.
func (c *JobConsumer) Process(ctx context.Context, msg jetstream.Msg) {
	var envelope models.JobEnvelope
	if err := json.Unmarshal(msg.Data(), &envelope); err != nil || envelope.Name == "" {
		slog.ErrorContext(ctx, "discarding undecodable job", logging.ErrKey, err, "subject", msg.Subject())
		_ = msg.TermWithReason("undecodable job envelope")
		return
	}

	if remaining := envelope.Remaining(c.now()); remaining > 0 {
		if err := msg.NakWithDelay(remaining); err != nil {
			slog.WarnContext(ctx, "error deferring job", logging.ErrKey, err, "job_id", envelope.ID)
		}
		return
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(msg.Headers()))
	ctx = logging.AppendCtx(ctx, slog.String("job_id", envelope.ID))
	ctx = logging.AppendCtx(ctx, slog.String("job", envelope.Name))

	job := &jobMessage{
		subject:  msg.Subject(),
		envelope: &envelope,
		attempt:  c.attempt(msg, &envelope),
	}
	job.last = job.attempt >= c.cfg.MaxDeliver

	stop := c.keepAlive(ctx, msg)
	err := c.handler.HandleMessage(ctx, job)
	stop()

	switch {
	case err == nil:
		if ackErr := msg.Ack(); ackErr != nil {
			slog.WarnContext(ctx, "error acknowledging job", logging.ErrKey, ackErr)
		}
	case domain.GetErrorType(err) == domain.ErrorTypeValidation:
		slog.ErrorContext(ctx, "job rejected", logging.ErrKey, err)
		_ = msg.TermWithReason(err.Error())
	case job.last:
		slog.ErrorContext(ctx, "job failed on its last attempt", logging.ErrKey, err,
			"attempt", job.attempt, logging.PriorityCritical())
		_ = msg.Term()
	default:
		delay := retryDelay(job.attempt)
		slog.WarnContext(ctx, "job failed, retrying", logging.ErrKey, err,
			"attempt", job.attempt, "retry_in", delay)
		_ = msg.NakWithDelay(delay)
	}
}

// attempt converts the server delivery count into a handler attempt number,
// discounting the deferral of a delayed job.
func (c *JobConsumer) attempt(msg jetstream.Msg, envelope *models.JobEnvelope) int {
	delivered := 1
	if meta, err := msg.Metadata(); err == nil && meta.NumDelivered > 0 {
		delivered = int(meta.NumDelivered)
	}
	if envelope.NotBefore.After(envelope.EnqueuedAt) && delivered > 1 {
		delivered--
	}
	return delivered
}

// keepAlive sends progress acks while a job runs so that slow jobs are not
// redelivered mid-flight.
func (c *JobConsumer) keepAlive(ctx context.Context, msg jetstream.Msg) func() {
	done := make(chan struct{})
	interval := c.cfg.AckWait / 2
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := msg.InProgress(); err != nil {
					slog.DebugContext(ctx, "error extending job ack deadline", logging.ErrKey, err)
				}
			}
		}
	}()
	return func() { close(done) }
}

// retryDelay doubles from retryBaseDelay per attempt up to retryMaxDelay.
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return delay
}

// jobMessage adapts a decoded delivery to domain.Message.
type jobMessage struct {
	subject  string
	envelope *models.JobEnvelope
	attempt  int
	last     bool
}

func (m *jobMessage) Subject() string   { return m.subject }
func (m *jobMessage) Data() []byte      { return m.envelope.Data }
func (m *jobMessage) JobID() string     { return m.envelope.ID }
func (m *jobMessage) Attempt() int      { return m.attempt }
func (m *jobMessage) LastAttempt() bool { return m.last }
