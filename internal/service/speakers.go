// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/concurrent"
)

// speakerResolver maps transcript speaker ids to users and agents.
type speakerResolver struct {
	users  domain.UserRepository
	agents domain.AgentRepository
	pool   *concurrent.WorkerPool
}

func newSpeakerResolver(users domain.UserRepository, agents domain.AgentRepository, workers int) *speakerResolver {
	return &speakerResolver{
		users:  users,
		agents: agents,
		pool:   concurrent.NewWorkerPool(workers),
	}
}

// resolve looks every id up as a user and as an agent concurrently. A user
// match wins over an agent match. Ids found in neither are absent from the
// result. Lookup failures other than not-found are returned.
func (r *speakerResolver) resolve(ctx context.Context, ids []string) (map[string]models.Speaker, error) {
	var mu sync.Mutex
	users := make(map[string]models.Speaker, len(ids))
	agents := make(map[string]models.Speaker, len(ids))

	tasks := make([]func() error, 0, 2*len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		tasks = append(tasks,
			func() error {
				user, err := r.users.Get(ctx, id)
				if err != nil {
					return ignoreNotFound(err)
				}
				mu.Lock()
				users[id] = models.Speaker{ID: user.ID, Name: user.Name}
				mu.Unlock()
				return nil
			},
			func() error {
				agent, err := r.agents.Get(ctx, id)
				if err != nil {
					return ignoreNotFound(err)
				}
				mu.Lock()
				agents[id] = models.Speaker{ID: agent.ID, Name: agent.Name}
				mu.Unlock()
				return nil
			},
		)
	}

	if err := r.pool.Run(ctx, tasks...); err != nil {
		slog.ErrorContext(ctx, "speaker lookup failed", logging.ErrKey, err)
		return nil, err
	}

	for id, speaker := range agents {
		if _, ok := users[id]; !ok {
			users[id] = speaker
		}
	}
	return users, nil
}

func ignoreNotFound(err error) error {
	if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
		return nil
	}
	return err
}
