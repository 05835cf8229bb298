// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vmihailenco/msgpack/v5"
)

// MockJobScheduler implements JobScheduler for testing
type MockJobScheduler struct {
	mock.Mock
}

func (m *MockJobScheduler) Schedule(ctx context.Context, name string, payload any, delay time.Duration) (string, error) {
	args := m.Called(ctx, name, payload, delay)
	return args.String(0), args.Error(1)
}

// MemoryStepStore is an in-memory StepStore using the same msgpack
// encoding as the persistent stores.
type MemoryStepStore struct {
	mu     sync.Mutex
	Steps  map[string][]byte
	Saves  []string
	Cleans []string
}

// NewMemoryStepStore creates an empty step store.
func NewMemoryStepStore() *MemoryStepStore {
	return &MemoryStepStore{Steps: map[string][]byte{}}
}

func (s *MemoryStepStore) Load(_ context.Context, runID, step string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.Steps[runID+"/"+step]
	if !ok {
		return false, nil
	}
	return true, msgpack.Unmarshal(v, out)
}

func (s *MemoryStepStore) Save(_ context.Context, runID, step string, value any) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Steps[runID+"/"+step] = data
	s.Saves = append(s.Saves, step)
	return nil
}

func (s *MemoryStepStore) Clear(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Cleans = append(s.Cleans, runID)
	for key := range s.Steps {
		if strings.HasPrefix(key, runID+"/") {
			delete(s.Steps, key)
		}
	}
	return nil
}
