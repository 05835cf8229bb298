// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
)

// MemoryMeetingRepository is an in-memory MeetingRepository with the same
// revision semantics as the persistent stores. UpdateHook, when set, runs
// before each Update and may change the stored state to simulate a
// concurrent writer.
type MemoryMeetingRepository struct {
	mu         sync.Mutex
	meetings   map[string]models.Meeting
	revisions  map[string]uint64
	Updates    int
	UpdateHook func(r *MemoryMeetingRepository, meetingID string)
	UpdateErr  error
}

// NewMemoryMeetingRepository creates a repository holding meetings.
func NewMemoryMeetingRepository(meetings ...*models.Meeting) *MemoryMeetingRepository {
	r := &MemoryMeetingRepository{
		meetings:  map[string]models.Meeting{},
		revisions: map[string]uint64{},
	}
	for _, m := range meetings {
		r.meetings[m.ID] = *m
		r.revisions[m.ID] = 1
	}
	return r
}

// Snapshot returns a copy of the stored meeting, or nil.
func (r *MemoryMeetingRepository) Snapshot(meetingID string) *models.Meeting {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[meetingID]
	if !ok {
		return nil
	}
	return &m
}

// Put overwrites a meeting and bumps its revision.
func (r *MemoryMeetingRepository) Put(m *models.Meeting) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meetings[m.ID] = *m
	r.revisions[m.ID]++
}

func (r *MemoryMeetingRepository) Get(ctx context.Context, meetingID string) (*models.Meeting, error) {
	m, _, err := r.GetWithRevision(ctx, meetingID)
	return m, err
}

func (r *MemoryMeetingRepository) GetWithRevision(_ context.Context, meetingID string) (*models.Meeting, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if meetingID == "" {
		return nil, 0, domain.ErrMissingMeetingID
	}
	m, ok := r.meetings[meetingID]
	if !ok {
		return nil, 0, domain.ErrMeetingNotFound
	}
	return &m, r.revisions[meetingID], nil
}

func (r *MemoryMeetingRepository) Create(_ context.Context, m *models.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meetings[m.ID]; ok {
		return domain.NewConflictError("meeting already exists")
	}
	r.meetings[m.ID] = *m
	r.revisions[m.ID] = 1
	return nil
}

func (r *MemoryMeetingRepository) Update(_ context.Context, m *models.Meeting, revision uint64) error {
	if r.UpdateHook != nil {
		r.UpdateHook(r, m.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Updates++
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	current, ok := r.revisions[m.ID]
	if !ok {
		return domain.ErrMeetingNotFound
	}
	if current != revision {
		return domain.NewConflictError("meeting has been modified by another request")
	}
	r.meetings[m.ID] = *m
	r.revisions[m.ID] = current + 1
	return nil
}

func (r *MemoryMeetingRepository) Delete(_ context.Context, meetingID string, revision uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.revisions[meetingID]
	if !ok {
		return domain.ErrMeetingNotFound
	}
	if current != revision {
		return domain.NewConflictError("meeting has been modified by another request")
	}
	delete(r.meetings, meetingID)
	delete(r.revisions, meetingID)
	return nil
}

func (r *MemoryMeetingRepository) List(_ context.Context, filter models.MeetingFilter) ([]*models.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Meeting{}
	for _, m := range r.meetings {
		if filter.Matches(&m) {
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryMeetingRepository) IsReady() bool {
	return true
}

// MemoryAgentRepository is an in-memory AgentRepository.
type MemoryAgentRepository struct {
	mu        sync.Mutex
	agents    map[string]models.Agent
	revisions map[string]uint64
}

// NewMemoryAgentRepository creates a repository holding agents.
func NewMemoryAgentRepository(agents ...*models.Agent) *MemoryAgentRepository {
	r := &MemoryAgentRepository{agents: map[string]models.Agent{}, revisions: map[string]uint64{}}
	for _, a := range agents {
		r.agents[a.ID] = *a
		r.revisions[a.ID] = 1
	}
	return r
}

func (r *MemoryAgentRepository) Get(ctx context.Context, agentID string) (*models.Agent, error) {
	a, _, err := r.GetWithRevision(ctx, agentID)
	return a, err
}

func (r *MemoryAgentRepository) GetWithRevision(_ context.Context, agentID string) (*models.Agent, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return nil, 0, domain.ErrAgentNotFound
	}
	return &a, r.revisions[agentID], nil
}

func (r *MemoryAgentRepository) Create(_ context.Context, a *models.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[a.ID]; ok {
		return domain.NewConflictError("agent already exists")
	}
	r.agents[a.ID] = *a
	r.revisions[a.ID] = 1
	return nil
}

func (r *MemoryAgentRepository) Update(_ context.Context, a *models.Agent, revision uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.revisions[a.ID]
	if !ok {
		return domain.ErrAgentNotFound
	}
	if current != revision {
		return domain.NewConflictError("agent has been modified by another request")
	}
	r.agents[a.ID] = *a
	r.revisions[a.ID] = current + 1
	return nil
}

func (r *MemoryAgentRepository) Delete(_ context.Context, agentID string, revision uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.revisions[agentID]
	if !ok {
		return domain.ErrAgentNotFound
	}
	if current != revision {
		return domain.NewConflictError("agent has been modified by another request")
	}
	delete(r.agents, agentID)
	delete(r.revisions, agentID)
	return nil
}

func (r *MemoryAgentRepository) List(_ context.Context, filter models.AgentFilter) ([]*models.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Agent{}
	for _, a := range r.agents {
		if filter.Matches(&a) {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryAgentRepository) IsReady() bool {
	return true
}

// MemoryUserRepository is an in-memory UserRepository.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]models.User
}

// NewMemoryUserRepository creates a repository holding users.
func NewMemoryUserRepository(users ...*models.User) *MemoryUserRepository {
	r := &MemoryUserRepository{users: map[string]models.User{}}
	for _, u := range users {
		r.users[u.ID] = *u
	}
	return r
}

func (r *MemoryUserRepository) Get(_ context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.NewNotFoundError("user not found")
	}
	return &u, nil
}

func (r *MemoryUserRepository) Upsert(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		return domain.NewValidationError("user id is required")
	}
	now := time.Now().UTC()
	if existing, ok := r.users[u.ID]; ok {
		u.CreatedAt = existing.CreatedAt
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.users[u.ID] = *u
	return nil
}

func (r *MemoryUserRepository) IsReady() bool {
	return true
}
