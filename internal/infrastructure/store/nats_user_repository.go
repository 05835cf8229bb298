// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
)

// NatsUserRepository is the NATS KV store repository for user profiles.
// User ids are auth principals, so keys are encoded.
type NatsUserRepository struct {
	base *NatsBaseRepository[models.User]
	keys *KeyBuilder
}

// NewNatsUserRepository creates a new NATS KV store repository for users.
func NewNatsUserRepository(kvStore INatsKeyValue) *NatsUserRepository {
	return &NatsUserRepository{
		base: NewNatsBaseRepository[models.User](kvStore, "user"),
		keys: NewKeyBuilder(""),
	}
}

func (r *NatsUserRepository) IsReady() bool {
	return r.base.IsReady()
}

func (r *NatsUserRepository) Get(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, domain.NewNotFoundError("user not found")
	}
	return r.base.Get(ctx, r.keys.EntityKeyEncoded(KeyPrefixUser, userID))
}

// Upsert stores the profile, keeping the original creation time.
func (r *NatsUserRepository) Upsert(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == "" {
		return domain.NewValidationError("user id is required")
	}
	key := r.keys.EntityKeyEncoded(KeyPrefixUser, user.ID)

	existing, err := r.base.Get(ctx, key)
	switch {
	case err == nil:
		if !existing.CreatedAt.IsZero() {
			user.CreatedAt = existing.CreatedAt
		}
	case domain.GetErrorType(err) != domain.ErrorTypeNotFound:
		return err
	}
	return r.base.Put(ctx, key, user)
}
