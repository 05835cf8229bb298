// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"slices"
	"strings"
	"time"
)

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

// Meeting lifecycle states.
const (
	MeetingStatusUpcoming   MeetingStatus = "upcoming"
	MeetingStatusActive     MeetingStatus = "active"
	MeetingStatusProcessing MeetingStatus = "processing"
	MeetingStatusCompleted  MeetingStatus = "completed"
	MeetingStatusCancelled  MeetingStatus = "cancelled"
)

// AllMeetingStatuses lists every valid status in lifecycle order.
var AllMeetingStatuses = []MeetingStatus{
	MeetingStatusUpcoming,
	MeetingStatusActive,
	MeetingStatusProcessing,
	MeetingStatusCompleted,
	MeetingStatusCancelled,
}

// IsValid reports whether s is a known status.
func (s MeetingStatus) IsValid() bool {
	return slices.Contains(AllMeetingStatuses, s)
}

// IsTerminal reports whether no lifecycle event may move a meeting out of s.
func (s MeetingStatus) IsTerminal() bool {
	return s == MeetingStatusCompleted || s == MeetingStatusCancelled
}

// ParseMeetingStatus parses a status filter value. The empty string yields
// an empty status and ok=true so that callers can treat it as "no filter".
func ParseMeetingStatus(raw string) (MeetingStatus, bool) {
	s := MeetingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return "", true
	}
	return s, s.IsValid()
}

// Meeting is the store representation of a coaching session between a user
// and an agent.
type Meeting struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	UserID        string        `json:"user_id"`
	AgentID       string        `json:"agent_id"`
	Status        MeetingStatus `json:"status"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
	TranscriptURL string        `json:"transcript_url,omitempty"`
	RecordingURL  string        `json:"recording_url,omitempty"`
	Summary       string        `json:"summary,omitempty"`
	// Transcript holds raw transcript text for legacy records only.
	Transcript string    `json:"transcript,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DurationSeconds returns the whole seconds between StartedAt and EndedAt,
// or 0 when either timestamp is missing.
func (m *Meeting) DurationSeconds() int64 {
	if m == nil || m.StartedAt == nil || m.EndedAt == nil {
		return 0
	}
	d := m.EndedAt.Sub(*m.StartedAt)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// HasDuration reports whether both lifecycle timestamps are set.
func (m *Meeting) HasDuration() bool {
	return m != nil && m.StartedAt != nil && m.EndedAt != nil
}

// StuckSince returns the reference time used to decide whether a meeting in
// processing has waited too long: EndedAt when set, UpdatedAt otherwise.
func (m *Meeting) StuckSince() time.Time {
	if m.EndedAt != nil {
		return *m.EndedAt
	}
	return m.UpdatedAt
}

// MeetingFilter narrows meeting listings. Zero values mean no filter.
type MeetingFilter struct {
	UserID  string
	Search  string
	Status  MeetingStatus
	AgentID string
}

// Matches reports whether m satisfies the filter. Search is a case
// insensitive substring match on the name.
func (f MeetingFilter) Matches(m *Meeting) bool {
	if m == nil {
		return false
	}
	if f.UserID != "" && m.UserID != f.UserID {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.AgentID != "" && m.AgentID != f.AgentID {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(f.Search)) {
		return false
	}
	return true
}
