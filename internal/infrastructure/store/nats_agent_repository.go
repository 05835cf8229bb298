// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"slices"
	"strings"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
)

// NatsAgentRepository is the NATS KV store repository for agents.
type NatsAgentRepository struct {
	*NatsBaseRepository[models.Agent]
}

// NewNatsAgentRepository creates a new NATS KV store repository for agents.
func NewNatsAgentRepository(kvStore INatsKeyValue) *NatsAgentRepository {
	return &NatsAgentRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Agent](kvStore, "agent"),
	}
}

func (r *NatsAgentRepository) Get(ctx context.Context, agentID string) (*models.Agent, error) {
	agent, _, err := r.GetWithRevision(ctx, agentID)
	return agent, err
}

func (r *NatsAgentRepository) GetWithRevision(ctx context.Context, agentID string) (*models.Agent, uint64, error) {
	if agentID == "" {
		return nil, 0, domain.ErrAgentNotFound
	}
	agent, revision, err := r.NatsBaseRepository.GetWithRevision(ctx, agentID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, 0, domain.ErrAgentNotFound
		}
		return nil, 0, err
	}
	return agent, revision, nil
}

func (r *NatsAgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	return r.NatsBaseRepository.Create(ctx, agent.ID, agent)
}

func (r *NatsAgentRepository) Update(ctx context.Context, agent *models.Agent, revision uint64) error {
	err := r.NatsBaseRepository.Update(ctx, agent.ID, agent, revision)
	if err != nil && domain.GetErrorType(err) == domain.ErrorTypeNotFound {
		return domain.ErrAgentNotFound
	}
	return err
}

func (r *NatsAgentRepository) Delete(ctx context.Context, agentID string, revision uint64) error {
	err := r.NatsBaseRepository.Delete(ctx, agentID, revision)
	if err != nil && domain.GetErrorType(err) == domain.ErrorTypeNotFound {
		return domain.ErrAgentNotFound
	}
	return err
}

// List scans the bucket and returns the agents matching filter, newest
// first.
func (r *NatsAgentRepository) List(ctx context.Context, filter models.AgentFilter) ([]*models.Agent, error) {
	agents, err := r.ListEntities(ctx, filter.Matches)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(agents, func(a *models.Agent) (string, int64) {
		return a.ID, a.CreatedAt.UnixNano()
	})
	return agents, nil
}

// sortNewestFirst orders by creation time descending with the id as a
// tie breaker so that pages are stable.
func sortNewestFirst[T any](items []*T, key func(*T) (string, int64)) {
	slices.SortFunc(items, func(a, b *T) int {
		idA, tsA := key(a)
		idB, tsB := key(b)
		switch {
		case tsA > tsB:
			return -1
		case tsA < tsB:
			return 1
		default:
			return strings.Compare(idA, idB)
		}
	})
}
