// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Video provider webhook event types handled by the service.
const (
	EventTypeSessionStarted     = "call.session_started"
	EventTypeParticipantLeft    = "call.session_participant_left"
	EventTypeSessionEnded       = "call.session_ended"
	EventTypeCallEnded          = "call.ended"
	EventTypeTranscriptionReady = "call.transcription_ready"
	EventTypeRecordingReady     = "call.recording_ready"
)

// ErrInvalidEventJSON is returned when a webhook body is not a JSON object.
var ErrInvalidEventJSON = errors.New("invalid JSON")

// WebhookEvent is the closed set of provider events. Use a type switch over
// the concrete types below; UnknownEvent covers every other type value.
type WebhookEvent interface {
	EventType() string
	webhookEvent()
}

// CallCustom is the custom metadata the service attaches to provider calls.
// meetingsId is an older spelling still present on calls created before the
// rename.
type CallCustom struct {
	MeetingID     string `json:"meetingId,omitempty"`
	LegacyMeeting string `json:"meetingsId,omitempty"`
	MeetingName   string `json:"meetingName,omitempty"`
}

// meetingID returns the meeting id from either spelling.
func (c *CallCustom) meetingID() string {
	if c == nil {
		return ""
	}
	if c.MeetingID != "" {
		return c.MeetingID
	}
	return c.LegacyMeeting
}

// CallRef is the subset of the provider call object the service reads.
type CallRef struct {
	ID     string      `json:"id,omitempty"`
	CID    string      `json:"cid,omitempty"`
	Type   string      `json:"type,omitempty"`
	Custom *CallCustom `json:"custom,omitempty"`
}

// eventBase carries the fields shared by every event.
type eventBase struct {
	Type      string `json:"type"`
	CallCID   string `json:"call_cid,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// EventType implements WebhookEvent.
func (e eventBase) EventType() string { return e.Type }

func (eventBase) webhookEvent() {}

// MeetingIDFromCallCID extracts the call id from a "<type>:<id>" composite
// call identifier. An identifier without a colon yields "".
func MeetingIDFromCallCID(cid string) string {
	_, id, found := strings.Cut(cid, ":")
	if !found {
		return ""
	}
	return id
}

// SessionStartedEvent fires when the first participant joins a call.
type SessionStartedEvent struct {
	eventBase
	SessionID string  `json:"session_id,omitempty"`
	Call      CallRef `json:"call"`
}

// MeetingID is read from the call's custom metadata.
func (e *SessionStartedEvent) MeetingID() string { return e.Call.Custom.meetingID() }

// ParticipantLeftEvent fires when a participant leaves a call session.
type ParticipantLeftEvent struct {
	eventBase
	SessionID   string `json:"session_id,omitempty"`
	Participant struct {
		User struct {
			ID   string `json:"id,omitempty"`
			Name string `json:"name,omitempty"`
		} `json:"user"`
	} `json:"participant"`
}

// MeetingID is read from the composite call identifier.
func (e *ParticipantLeftEvent) MeetingID() string { return MeetingIDFromCallCID(e.CallCID) }

// SessionEndedEvent fires when the call session ends.
type SessionEndedEvent struct {
	eventBase
	SessionID string  `json:"session_id,omitempty"`
	Call      CallRef `json:"call"`
}

// MeetingID is read from the call's custom metadata.
func (e *SessionEndedEvent) MeetingID() string { return e.Call.Custom.meetingID() }

// CallEndedEvent is the generic call end notification.
type CallEndedEvent struct {
	eventBase
	Call *CallRef `json:"call,omitempty"`
}

// MeetingID prefers the composite call identifier and falls back to the
// call's custom metadata.
func (e *CallEndedEvent) MeetingID() string {
	if e.CallCID != "" {
		return MeetingIDFromCallCID(e.CallCID)
	}
	if e.Call == nil {
		return ""
	}
	return e.Call.Custom.meetingID()
}

// TranscriptionReadyEvent fires when a transcript artifact is available.
type TranscriptionReadyEvent struct {
	eventBase
	CallTranscription struct {
		Filename  string `json:"filename,omitempty"`
		URL       string `json:"url"`
		StartTime string `json:"start_time,omitempty"`
		EndTime   string `json:"end_time,omitempty"`
	} `json:"call_transcription"`
}

// MeetingID is read from the composite call identifier.
func (e *TranscriptionReadyEvent) MeetingID() string { return MeetingIDFromCallCID(e.CallCID) }

// TranscriptURL returns the transcript artifact URL.
func (e *TranscriptionReadyEvent) TranscriptURL() string { return e.CallTranscription.URL }

// RecordingReadyEvent fires when a recording artifact is available. Some
// provider versions embed the transcript location in the recording object.
type RecordingReadyEvent struct {
	eventBase
	CallRecording struct {
		Filename         string `json:"filename,omitempty"`
		URL              string `json:"url"`
		StartTime        string `json:"start_time,omitempty"`
		EndTime          string `json:"end_time,omitempty"`
		TranscriptURL    string `json:"transcript_url,omitempty"`
		TranscriptionURL string `json:"transcription_url,omitempty"`
	} `json:"call_recording"`
}

// MeetingID is read from the composite call identifier.
func (e *RecordingReadyEvent) MeetingID() string { return MeetingIDFromCallCID(e.CallCID) }

// RecordingURL returns the recording artifact URL.
func (e *RecordingReadyEvent) RecordingURL() string { return e.CallRecording.URL }

// EmbeddedTranscriptURL returns a transcript URL carried on the recording,
// if any.
func (e *RecordingReadyEvent) EmbeddedTranscriptURL() string {
	if e.CallRecording.TranscriptURL != "" {
		return e.CallRecording.TranscriptURL
	}
	return e.CallRecording.TranscriptionURL
}

// UnknownEvent is any event type the service does not act on.
type UnknownEvent struct {
	eventBase
}

// ParseWebhookEvent validates body and decodes it into the concrete event
// for its type discriminator.
func ParseWebhookEvent(body []byte) (WebhookEvent, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidEventJSON
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, ErrInvalidEventJSON
	}

	eventType := root.Get("type").String()
	var event WebhookEvent
	switch eventType {
	case EventTypeSessionStarted:
		event = &SessionStartedEvent{}
	case EventTypeParticipantLeft:
		event = &ParticipantLeftEvent{}
	case EventTypeSessionEnded:
		event = &SessionEndedEvent{}
	case EventTypeCallEnded:
		event = &CallEndedEvent{}
	case EventTypeTranscriptionReady:
		event = &TranscriptionReadyEvent{}
	case EventTypeRecordingReady:
		event = &RecordingReadyEvent{}
	default:
		return &UnknownEvent{eventBase: eventBase{Type: eventType}}, nil
	}

	if err := json.Unmarshal(body, event); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrInvalidEventJSON, eventType, err)
	}
	return event, nil
}
