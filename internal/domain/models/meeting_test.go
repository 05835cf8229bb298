// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMeetingStatus(t *testing.T) {
	tests := []struct {
		status   MeetingStatus
		valid    bool
		terminal bool
	}{
		{MeetingStatusUpcoming, true, false},
		{MeetingStatusActive, true, false},
		{MeetingStatusProcessing, true, false},
		{MeetingStatusCompleted, true, true},
		{MeetingStatusCancelled, true, true},
		{MeetingStatus("archived"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.IsValid())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestParseMeetingStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected MeetingStatus
		ok       bool
	}{
		{"", "", true},
		{"processing", MeetingStatusProcessing, true},
		{" Completed ", MeetingStatusCompleted, true},
		{"nope", MeetingStatus("nope"), false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseMeetingStatus(tt.raw)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestMeeting_DurationSeconds(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := start.Add(d)
		return &ts
	}

	tests := []struct {
		name     string
		meeting  *Meeting
		expected int64
		has      bool
	}{
		{"nil meeting", nil, 0, false},
		{"not started", &Meeting{EndedAt: at(time.Minute)}, 0, false},
		{"not ended", &Meeting{StartedAt: at(0)}, 0, false},
		{"floors partial seconds", &Meeting{StartedAt: at(0), EndedAt: at(59*time.Second + 900*time.Millisecond)}, 59, true},
		{"exactly one minute", &Meeting{StartedAt: at(0), EndedAt: at(time.Minute)}, 60, true},
		{"clock skew", &Meeting{StartedAt: at(time.Minute), EndedAt: at(0)}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.meeting.DurationSeconds())
			assert.Equal(t, tt.has, tt.meeting.HasDuration())
		})
	}
}

func TestMeeting_StuckSince(t *testing.T) {
	updated := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ended := updated.Add(-time.Hour)

	assert.Equal(t, updated, (&Meeting{UpdatedAt: updated}).StuckSince())
	assert.Equal(t, ended, (&Meeting{UpdatedAt: updated, EndedAt: &ended}).StuckSince())
}

func TestMeetingFilter_Matches(t *testing.T) {
	meeting := &Meeting{
		ID:      "m1",
		Name:    "Mock Interview: Backend",
		UserID:  "u1",
		AgentID: "a1",
		Status:  MeetingStatusProcessing,
	}

	tests := []struct {
		name     string
		filter   MeetingFilter
		expected bool
	}{
		{"empty filter", MeetingFilter{}, true},
		{"owner", MeetingFilter{UserID: "u1"}, true},
		{"other owner", MeetingFilter{UserID: "u2"}, false},
		{"search is case insensitive", MeetingFilter{Search: "backend"}, true},
		{"search miss", MeetingFilter{Search: "frontend"}, false},
		{"status", MeetingFilter{Status: MeetingStatusProcessing}, true},
		{"other status", MeetingFilter{Status: MeetingStatusCompleted}, false},
		{"agent", MeetingFilter{AgentID: "a1"}, true},
		{"other agent", MeetingFilter{AgentID: "a2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter.Matches(meeting))
		})
	}

	assert.False(t, MeetingFilter{}.Matches(nil))
}

func TestAgentFilter_Matches(t *testing.T) {
	agent := &Agent{ID: "a1", Name: "Math Tutor", UserID: "u1"}

	assert.True(t, AgentFilter{}.Matches(agent))
	assert.True(t, AgentFilter{UserID: "u1", Search: "tutor"}.Matches(agent))
	assert.False(t, AgentFilter{UserID: "u2"}.Matches(agent))
	assert.False(t, AgentFilter{Search: "coach"}.Matches(agent))
	assert.False(t, AgentFilter{}.Matches(nil))
}

func TestPaginate(t *testing.T) {
	all := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	tests := []struct {
		name       string
		req        PageRequest
		items      []int
		totalPages int
	}{
		{"first page", PageRequest{Page: 1, PageSize: 5}, []int{1, 2, 3, 4, 5}, 3},
		{"last partial page", PageRequest{Page: 3, PageSize: 5}, []int{11, 12}, 3},
		{"past the end", PageRequest{Page: 4, PageSize: 5}, []int{}, 3},
		{"defaults", PageRequest{}.Normalize(), []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Paginate(all, tt.req)
			assert.Equal(t, tt.items, page.Items)
			assert.Equal(t, len(all), page.Total)
			assert.Equal(t, tt.totalPages, page.TotalPages)
		})
	}
}

func TestPageRequest_Valid(t *testing.T) {
	assert.True(t, PageRequest{Page: 1, PageSize: 1}.Valid())
	assert.True(t, PageRequest{Page: 2, PageSize: 100}.Valid())
	assert.False(t, PageRequest{Page: 0, PageSize: 10}.Valid())
	assert.False(t, PageRequest{Page: 1, PageSize: 101}.Valid())
	assert.False(t, PageRequest{Page: 1, PageSize: -1}.Valid())
}
