// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/infrastructure/auth"
)

// AuthService resolves bearer tokens into the calling user.
type AuthService struct {
	auth auth.IJWTAuth
}

// NewAuthService creates an AuthService.
func NewAuthService(auth auth.IJWTAuth) *AuthService {
	return &AuthService{
		auth: auth,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *AuthService) ServiceReady() bool {
	return s.auth != nil
}

// Authenticate validates bearerToken and returns the caller. Resources are
// owned by the user id, which is the token principal.
func (s *AuthService) Authenticate(ctx context.Context, bearerToken string) (*models.User, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("auth service not ready")
	}
	if bearerToken == "" {
		return nil, domain.NewUnauthorizedError("Unauthorized")
	}

	identity, err := s.auth.ParseIdentity(ctx, bearerToken, slog.Default())
	if err != nil {
		return nil, domain.NewUnauthorizedError("Unauthorized", err)
	}
	return &models.User{
		ID:    identity.ID,
		Name:  identity.Name,
		Email: identity.Email,
		Image: identity.Image,
	}, nil
}
