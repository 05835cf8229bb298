// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
)

var testNow = time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newMeeting(id string, status models.MeetingStatus) *models.Meeting {
	return &models.Meeting{
		ID:        id,
		Name:      "Mock interview " + id,
		UserID:    "user-1",
		AgentID:   "agent-1",
		Status:    status,
		CreatedAt: testNow.Add(-time.Hour),
		UpdatedAt: testNow.Add(-time.Hour),
	}
}

func newAgent(id, userID string) *models.Agent {
	return &models.Agent{
		ID:           id,
		Name:         "Interviewer " + id,
		UserID:       userID,
		Instructions: "Ask about distributed systems",
		CreatedAt:    testNow.Add(-2 * time.Hour),
		UpdatedAt:    testNow.Add(-2 * time.Hour),
	}
}

func newTestLifecycle(repo *mocks.MemoryMeetingRepository, jobs *mocks.MockJobScheduler) *LifecycleService {
	s := NewLifecycleService(repo, jobs)
	s.now = fixedClock
	return s
}
