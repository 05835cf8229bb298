// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"errors"
	"time"
)

// Job names accepted by the job queue.
const (
	// JobMeetingsComplete finalizes a meeting still in processing with a
	// fallback summary.
	JobMeetingsComplete = "meetings/complete"
	// JobMeetingsProcessing fetches, annotates and summarizes a transcript.
	JobMeetingsProcessing = "meetings/processing"
	// JobMeetingsTranscriptRecheck asks the video provider for a transcript
	// URL once more after a recording arrived without one.
	JobMeetingsTranscriptRecheck = "meetings/transcript-recheck"
)

// JobNames lists every job name the worker subscribes to.
var JobNames = []string{
	JobMeetingsComplete,
	JobMeetingsProcessing,
	JobMeetingsTranscriptRecheck,
}

var errMissingJobMeetingID = errors.New("meetingId is required")

// CompleteMeetingPayload is the data of a meetings/complete job.
type CompleteMeetingPayload struct {
	MeetingID string `json:"meetingId"`
}

// Validate checks required fields.
func (p CompleteMeetingPayload) Validate() error {
	if p.MeetingID == "" {
		return errMissingJobMeetingID
	}
	return nil
}

// ProcessTranscriptPayload is the data of a meetings/processing job.
type ProcessTranscriptPayload struct {
	MeetingID     string `json:"meetingId"`
	TranscriptURL string `json:"transcriptUrl"`
}

// Validate checks required fields.
func (p ProcessTranscriptPayload) Validate() error {
	if p.MeetingID == "" {
		return errMissingJobMeetingID
	}
	if p.TranscriptURL == "" {
		return errors.New("transcriptUrl is required")
	}
	return nil
}

// TranscriptRecheckPayload is the data of a meetings/transcript-recheck job.
type TranscriptRecheckPayload struct {
	MeetingID string `json:"meetingId"`
}

// Validate checks required fields.
func (p TranscriptRecheckPayload) Validate() error {
	if p.MeetingID == "" {
		return errMissingJobMeetingID
	}
	return nil
}

// JobEnvelope wraps a job payload on the queue. NotBefore carries the delay
// so that a delayed job survives restarts of the process that scheduled it.
type JobEnvelope struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Data       json.RawMessage `json:"data"`
	NotBefore  time.Time       `json:"notBefore"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// NewJobEnvelope encodes payload and stamps the schedule.
func NewJobEnvelope(id, name string, payload any, delay time.Duration, now time.Time) (*JobEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if delay < 0 {
		delay = 0
	}
	return &JobEnvelope{
		ID:         id,
		Name:       name,
		Data:       data,
		NotBefore:  now.Add(delay).UTC(),
		EnqueuedAt: now.UTC(),
	}, nil
}

// Remaining returns how long until the job is due, or 0 when it is due.
func (e *JobEnvelope) Remaining(now time.Time) time.Duration {
	if e.NotBefore.IsZero() {
		return 0
	}
	if d := e.NotBefore.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Decode unmarshals the payload into v.
func (e *JobEnvelope) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}
