// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"
)

// Message represents a job delivery from the queue.
type Message interface {
	// Subject is the queue subject the job was published on.
	Subject() string
	// Data is the job payload.
	Data() []byte
	// JobID is stable across redeliveries of the same job.
	JobID() string
	// Attempt is the 1-based delivery count.
	Attempt() int
	// LastAttempt reports whether a failure now exhausts the delivery budget.
	LastAttempt() bool
}

// MessageHandler defines how the service handles job deliveries. A nil error
// acknowledges the job; validation errors terminate it; any other error
// schedules a redelivery.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message) error
	HandlerReady() bool
}

// JobScheduler submits named jobs to the durable queue.
type JobScheduler interface {
	// Schedule enqueues the job to run no earlier than delay from now and
	// returns the job id.
	Schedule(ctx context.Context, name string, payload any, delay time.Duration) (string, error)
}
