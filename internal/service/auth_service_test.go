// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/infrastructure/auth"
)

type stubJWTAuth struct {
	identity *auth.Principal
	err      error
}

func (s stubJWTAuth) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.identity.ID, nil
}

func (s stubJWTAuth) ParseIdentity(context.Context, string, *slog.Logger) (*auth.Principal, error) {
	return s.identity, s.err
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		s := NewAuthService(stubJWTAuth{identity: &auth.Principal{ID: "user-1", Name: "Ada", Email: "ada@example.com"}})

		user, err := s.Authenticate(context.Background(), "token")
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, "Ada", user.Name)
		assert.Equal(t, "ada@example.com", user.Email)
	})

	t.Run("invalid token", func(t *testing.T) {
		s := NewAuthService(stubJWTAuth{err: errors.New("expired")})
		_, err := s.Authenticate(context.Background(), "token")
		assert.Equal(t, domain.ErrorTypeUnauthorized, domain.GetErrorType(err))
	})

	t.Run("missing token", func(t *testing.T) {
		s := NewAuthService(stubJWTAuth{})
		_, err := s.Authenticate(context.Background(), "")
		assert.Equal(t, domain.ErrorTypeUnauthorized, domain.GetErrorType(err))
	})

	t.Run("not ready", func(t *testing.T) {
		_, err := NewAuthService(nil).Authenticate(context.Background(), "token")
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})
}
