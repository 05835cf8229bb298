// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/service"
)

// agentRequestBody is the body of agent create and update requests.
type agentRequestBody struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
}

func (b agentRequestBody) input() service.AgentInput {
	return service.AgentInput{Name: b.Name, Instructions: b.Instructions}
}

// CreateAgent creates an agent owned by the caller.
func (s *CoachAPI) CreateAgent(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	var body agentRequestBody
	if err := s.decodeBody(r, &body); err != nil {
		s.handleError(ctx, w, err)
		return
	}

	agent, err := s.agentService.CreateAgent(ctx, user.ID, body.input())
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusCreated, agent)
}

// ListAgents lists the caller's agents.
func (s *CoachAPI) ListAgents(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	page, err := pageRequest(r)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}

	result, err := s.agentService.ListAgents(ctx, user.ID, models.AgentListRequest{
		Search: r.URL.Query().Get("search"),
		Page:   page,
	})
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusOK, result)
}

// GetAgent gets one of the caller's agents.
func (s *CoachAPI) GetAgent(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	agent, err := s.agentService.GetAgent(ctx, user.ID, s.pathParam(r, "id"))
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusOK, agent)
}

// UpdateAgent replaces the name and instructions of an agent.
func (s *CoachAPI) UpdateAgent(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	var body agentRequestBody
	if err := s.decodeBody(r, &body); err != nil {
		s.handleError(ctx, w, err)
		return
	}

	agent, err := s.agentService.UpdateAgent(ctx, user.ID, s.pathParam(r, "id"), body.input())
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusOK, agent)
}

// DeleteAgent removes an agent and returns it.
func (s *CoachAPI) DeleteAgent(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	agent, err := s.agentService.DeleteAgent(ctx, user.ID, s.pathParam(r, "id"))
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusOK, agent)
}
