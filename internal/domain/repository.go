// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
)

// MeetingRepository defines the interface for meeting storage operations.
// Update and Delete are conditional on the revision returned by
// GetWithRevision so that callers can build compare-and-swap transitions.
type MeetingRepository interface {
	Get(ctx context.Context, meetingID string) (*models.Meeting, error)
	GetWithRevision(ctx context.Context, meetingID string) (*models.Meeting, uint64, error)
	Create(ctx context.Context, meeting *models.Meeting) error
	Update(ctx context.Context, meeting *models.Meeting, revision uint64) error
	Delete(ctx context.Context, meetingID string, revision uint64) error
	List(ctx context.Context, filter models.MeetingFilter) ([]*models.Meeting, error)
	IsReady() bool
}

// AgentRepository defines the interface for agent storage operations.
type AgentRepository interface {
	Get(ctx context.Context, agentID string) (*models.Agent, error)
	GetWithRevision(ctx context.Context, agentID string) (*models.Agent, uint64, error)
	Create(ctx context.Context, agent *models.Agent) error
	Update(ctx context.Context, agent *models.Agent, revision uint64) error
	Delete(ctx context.Context, agentID string, revision uint64) error
	List(ctx context.Context, filter models.AgentFilter) ([]*models.Agent, error)
	IsReady() bool
}

// UserRepository stores the profile of authenticated users.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
	IsReady() bool
}

// StepStore memoizes the output of completed job steps so that a redelivered
// job resumes after its last completed step.
type StepStore interface {
	// Load decodes the stored output of step into out. It reports false when
	// the step has not completed for runID.
	Load(ctx context.Context, runID, step string, out any) (bool, error)
	Save(ctx context.Context, runID, step string, value any) error
	Clear(ctx context.Context, runID string) error
}
