// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// CoachQuestionMaxLength bounds the question accepted by the ask endpoint.
const CoachQuestionMaxLength = 500

// CoachRequest carries the meeting context handed to the coach model.
type CoachRequest struct {
	MeetingName     string
	AgentName       string
	Instructions    string
	Summary         string
	DurationSeconds int64
	HasDuration     bool
	Transcript      string
	Question        string
}

// CreateCallRequest describes a provider call created for a meeting.
type CreateCallRequest struct {
	MeetingID   string
	MeetingName string
	CreatedBy   string
}

// VideoToken is a user token for joining provider calls.
type VideoToken struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	ExpiresAt int64  `json:"expiresAt"`
}
