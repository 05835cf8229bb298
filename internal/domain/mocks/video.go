// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
)

// MockVideoProvider implements VideoProvider for testing
type MockVideoProvider struct {
	mock.Mock
}

func (m *MockVideoProvider) CreateCall(ctx context.Context, req models.CreateCallRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockVideoProvider) EndCall(ctx context.Context, callID string) error {
	args := m.Called(ctx, callID)
	return args.Error(0)
}

func (m *MockVideoProvider) ConnectAgent(ctx context.Context, callID string, agent *models.Agent) error {
	args := m.Called(ctx, callID, agent)
	return args.Error(0)
}

func (m *MockVideoProvider) FindTranscriptURL(ctx context.Context, callID string) (string, error) {
	args := m.Called(ctx, callID)
	return args.String(0), args.Error(1)
}

func (m *MockVideoProvider) UpsertUsers(ctx context.Context, users ...models.User) error {
	args := m.Called(ctx, users)
	return args.Error(0)
}

func (m *MockVideoProvider) CreateUserToken(userID string, ttl time.Duration) (*models.VideoToken, error) {
	args := m.Called(userID, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VideoToken), args.Error(1)
}

// MockWebhookVerifier implements WebhookVerifier for testing
type MockWebhookVerifier struct {
	mock.Mock
}

func (m *MockWebhookVerifier) Verify(body []byte, signature, apiKey string) error {
	args := m.Called(body, signature, apiKey)
	return args.Error(0)
}
