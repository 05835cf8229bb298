// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"fmt"

	"github.com/akamensky/base58"
	"github.com/google/uuid"
)

// NewID returns a random identifier: a v4 UUID rendered in base58. The
// result is URL and NATS subject safe and at most 22 characters long.
func NewID() string {
	u := uuid.New()
	return base58.Encode(u[:])
}

// ParseID reverses NewID.
func ParseID(id string) (uuid.UUID, error) {
	raw, err := base58.Decode(id)
	if err != nil {
		return uuid.Nil, err
	}
	u, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", id, err)
	}
	return u, nil
}
