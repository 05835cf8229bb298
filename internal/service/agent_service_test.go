// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
)

func newTestAgentService(agents []*models.Agent, meetings []*models.Meeting) *AgentService {
	s := NewAgentService(mocks.NewMemoryAgentRepository(agents...), mocks.NewMemoryMeetingRepository(meetings...))
	s.now = fixedClock
	s.newID = func() string { return "agent-new" }
	return s
}

func TestAgentService_CreateAgent(t *testing.T) {
	tests := []struct {
		name    string
		input   AgentInput
		wantErr string
	}{
		{"valid", AgentInput{Name: "  System design interviewer ", Instructions: "Probe for tradeoffs"}, ""},
		{"missing name", AgentInput{Name: "  ", Instructions: "Probe for tradeoffs"}, "Name is required"},
		{"missing instructions", AgentInput{Name: "Coach"}, "Instructions are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestAgentService(nil, nil)

			view, err := s.CreateAgent(context.Background(), "user-1", tt.input)
			if tt.wantErr != "" {
				assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "agent-new", view.ID)
			assert.Equal(t, "System design interviewer", view.Name)
			assert.Equal(t, "user-1", view.UserID)
			assert.Equal(t, testNow, view.CreatedAt)
			assert.Zero(t, view.MeetingCount)

			stored, err := s.AgentRepository.Get(context.Background(), "agent-new")
			require.NoError(t, err)
			assert.Equal(t, "Probe for tradeoffs", stored.Instructions)
		})
	}
}

func TestAgentService_GetAgent(t *testing.T) {
	meetings := []*models.Meeting{
		newMeeting("m1", models.MeetingStatusCompleted),
		newMeeting("m2", models.MeetingStatusUpcoming),
	}
	s := newTestAgentService([]*models.Agent{newAgent("agent-1", "user-1"), newAgent("agent-2", "user-2")}, meetings)

	view, err := s.GetAgent(context.Background(), "user-1", "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, view.MeetingCount)

	_, err = s.GetAgent(context.Background(), "user-1", "agent-2")
	assert.ErrorIs(t, err, domain.ErrAgentNotFound, "agents of other users are hidden")

	_, err = s.GetAgent(context.Background(), "user-1", "missing")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestAgentService_ListAgents(t *testing.T) {
	agents := []*models.Agent{newAgent("other", "user-2")}
	for i := range 12 {
		a := newAgent(fmt.Sprintf("agent-%02d", i), "user-1")
		a.CreatedAt = testNow.Add(time.Duration(i) * time.Minute)
		if i%2 == 0 {
			a.Name = "Behavioral " + a.ID
		}
		agents = append(agents, a)
	}
	meeting := newMeeting("m1", models.MeetingStatusCompleted)
	meeting.AgentID = "agent-11"
	s := newTestAgentService(agents, []*models.Meeting{meeting})

	t.Run("first page newest first", func(t *testing.T) {
		page, err := s.ListAgents(context.Background(), "user-1", models.AgentListRequest{})
		require.NoError(t, err)
		assert.Equal(t, 12, page.Total)
		assert.Equal(t, 2, page.TotalPages)
		require.Len(t, page.Items, models.DefaultPageSize)
		assert.Equal(t, "agent-11", page.Items[0].ID)
		assert.Equal(t, 1, page.Items[0].MeetingCount)
		assert.Zero(t, page.Items[1].MeetingCount)
	})

	t.Run("second page", func(t *testing.T) {
		page, err := s.ListAgents(context.Background(), "user-1", models.AgentListRequest{Page: models.PageRequest{Page: 2}})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "agent-00", page.Items[1].ID)
	})

	t.Run("page past the end", func(t *testing.T) {
		page, err := s.ListAgents(context.Background(), "user-1", models.AgentListRequest{Page: models.PageRequest{Page: 9}})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 12, page.Total)
	})

	t.Run("search", func(t *testing.T) {
		page, err := s.ListAgents(context.Background(), "user-1", models.AgentListRequest{Search: " behavioral "})
		require.NoError(t, err)
		assert.Equal(t, 6, page.Total)
	})

	t.Run("invalid page size", func(t *testing.T) {
		_, err := s.ListAgents(context.Background(), "user-1", models.AgentListRequest{Page: models.PageRequest{PageSize: 101}})
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})
}

func TestAgentService_UpdateAgent(t *testing.T) {
	s := newTestAgentService([]*models.Agent{newAgent("agent-1", "user-1")}, nil)

	view, err := s.UpdateAgent(context.Background(), "user-1", "agent-1", AgentInput{Name: "Renamed", Instructions: "Be tough"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", view.Name)
	assert.Equal(t, testNow, view.UpdatedAt)

	stored, err := s.AgentRepository.Get(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "Be tough", stored.Instructions)

	_, err = s.UpdateAgent(context.Background(), "user-2", "agent-1", AgentInput{Name: "Stolen", Instructions: "x"})
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)

	_, err = s.UpdateAgent(context.Background(), "user-1", "agent-1", AgentInput{Name: "Renamed"})
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
}

func TestAgentService_DeleteAgent(t *testing.T) {
	s := newTestAgentService([]*models.Agent{newAgent("agent-1", "user-1")}, nil)

	_, err := s.DeleteAgent(context.Background(), "user-2", "agent-1")
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)

	deleted, err := s.DeleteAgent(context.Background(), "user-1", "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", deleted.ID)

	_, err = s.AgentRepository.Get(context.Background(), "agent-1")
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestAgentService_NotReady(t *testing.T) {
	s := &AgentService{}
	_, err := s.CreateAgent(context.Background(), "user-1", AgentInput{Name: "a", Instructions: "b"})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	_, err = s.ListAgents(context.Background(), "user-1", models.AgentListRequest{})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}
