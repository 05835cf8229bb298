// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// AgentView is an agent as returned by the API.
type AgentView struct {
	*Agent
	MeetingCount int `json:"meeting_count"`
}

// AgentRef is the part of an agent embedded in meeting responses.
type AgentRef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
}

// MeetingView is a meeting as returned by the API, with its derived
// duration and joined agent.
type MeetingView struct {
	*Meeting
	Duration *int64    `json:"duration"`
	Agent    *AgentRef `json:"agent,omitempty"`
}

// NewMeetingView builds the API view. agent may be nil.
func NewMeetingView(m *Meeting, agent *Agent) *MeetingView {
	view := &MeetingView{Meeting: m}
	if m.HasDuration() {
		d := m.DurationSeconds()
		view.Duration = &d
	}
	if agent != nil {
		view.Agent = &AgentRef{ID: agent.ID, Name: agent.Name, Instructions: agent.Instructions}
	}
	return view
}

// MeetingListRequest narrows and pages a meeting listing.
type MeetingListRequest struct {
	Search  string
	Status  string
	AgentID string
	Page    PageRequest
}

// AgentListRequest narrows and pages an agent listing.
type AgentListRequest struct {
	Search string
	Page   PageRequest
}
