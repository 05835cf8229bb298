// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/utils"
)

// AgentInput is the writable part of an agent.
type AgentInput struct {
	Name         string
	Instructions string
}

func (in AgentInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.NewValidationError("Name is required")
	}
	if strings.TrimSpace(in.Instructions) == "" {
		return domain.NewValidationError("Instructions are required")
	}
	return nil
}

// AgentService manages the agents owned by a user.
type AgentService struct {
	AgentRepository   domain.AgentRepository
	MeetingRepository domain.MeetingRepository
	now               func() time.Time
	newID             func() string
}

// NewAgentService creates an AgentService.
func NewAgentService(agents domain.AgentRepository, meetings domain.MeetingRepository) *AgentService {
	return &AgentService{
		AgentRepository:   agents,
		MeetingRepository: meetings,
		now:               time.Now,
		newID:             utils.NewID,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *AgentService) ServiceReady() bool {
	return s.AgentRepository != nil && s.AgentRepository.IsReady() &&
		s.MeetingRepository != nil && s.MeetingRepository.IsReady()
}

// getOwned loads an agent and hides agents owned by someone else.
func (s *AgentService) getOwned(ctx context.Context, userID, agentID string) (*models.Agent, uint64, error) {
	agent, revision, err := s.AgentRepository.GetWithRevision(ctx, agentID)
	if err != nil {
		return nil, 0, err
	}
	if agent.UserID != userID {
		slog.WarnContext(ctx, "agent owned by another user")
		return nil, 0, domain.ErrAgentNotFound
	}
	return agent, revision, nil
}

func (s *AgentService) meetingCount(ctx context.Context, userID, agentID string) (int, error) {
	meetings, err := s.MeetingRepository.List(ctx, models.MeetingFilter{UserID: userID, AgentID: agentID})
	if err != nil {
		return 0, err
	}
	return len(meetings), nil
}

// CreateAgent creates an agent owned by userID.
func (s *AgentService) CreateAgent(ctx context.Context, userID string, in AgentInput) (*models.AgentView, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	agent := &models.Agent{
		ID:           s.newID(),
		Name:         strings.TrimSpace(in.Name),
		UserID:       userID,
		Instructions: in.Instructions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.AgentRepository.Create(ctx, agent); err != nil {
		slog.ErrorContext(ctx, "error creating agent", logging.ErrKey, err)
		return nil, err
	}

	slog.InfoContext(ctx, "created agent", "agent_id", agent.ID)
	return &models.AgentView{Agent: agent}, nil
}

// GetAgent returns an agent owned by userID.
func (s *AgentService) GetAgent(ctx context.Context, userID, agentID string) (*models.AgentView, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	agent, _, err := s.getOwned(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}
	count, err := s.meetingCount(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}
	return &models.AgentView{Agent: agent, MeetingCount: count}, nil
}

// ListAgents returns one page of the agents owned by userID, newest first.
func (s *AgentService) ListAgents(ctx context.Context, userID string, req models.AgentListRequest) (models.Page[*models.AgentView], error) {
	var empty models.Page[*models.AgentView]
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return empty, domain.ErrServiceUnavailable
	}
	page := req.Page.Normalize()
	if !page.Valid() {
		return empty, domain.NewValidationError("invalid page or pageSize")
	}

	agents, err := s.AgentRepository.List(ctx, models.AgentFilter{UserID: userID, Search: strings.TrimSpace(req.Search)})
	if err != nil {
		return empty, err
	}
	meetings, err := s.MeetingRepository.List(ctx, models.MeetingFilter{UserID: userID})
	if err != nil {
		return empty, err
	}
	counts := make(map[string]int, len(agents))
	for _, m := range meetings {
		counts[m.AgentID]++
	}

	views := make([]*models.AgentView, 0, len(agents))
	for _, a := range agents {
		views = append(views, &models.AgentView{Agent: a, MeetingCount: counts[a.ID]})
	}
	return models.Paginate(views, page), nil
}

// UpdateAgent replaces the name and instructions of an agent.
func (s *AgentService) UpdateAgent(ctx context.Context, userID, agentID string, in AgentInput) (*models.AgentView, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	agent, revision, err := s.getOwned(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}
	agent.Name = strings.TrimSpace(in.Name)
	agent.Instructions = in.Instructions
	agent.UpdatedAt = s.now().UTC()

	if err := s.AgentRepository.Update(ctx, agent, revision); err != nil {
		slog.ErrorContext(ctx, "error updating agent", logging.ErrKey, err)
		return nil, err
	}
	count, err := s.meetingCount(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}
	return &models.AgentView{Agent: agent, MeetingCount: count}, nil
}

// DeleteAgent removes an agent and returns it.
func (s *AgentService) DeleteAgent(ctx context.Context, userID, agentID string) (*models.Agent, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	agent, revision, err := s.getOwned(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}
	if err := s.AgentRepository.Delete(ctx, agentID, revision); err != nil {
		slog.ErrorContext(ctx, "error deleting agent", logging.ErrKey, err)
		return nil, err
	}

	slog.InfoContext(ctx, "deleted agent", "agent_id", agentID)
	return agent, nil
}
