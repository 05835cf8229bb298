// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/nats-io/nats.go"
)

// Common key prefixes
const (
	KeyPrefixUser = "user"
	KeyPrefixStep = "step"
)

// KeyBuilder provides utilities for building consistent NATS KV keys.
// Identifiers that come from outside the service (auth principals, job
// run ids) may contain characters NATS rejects in keys, so those keys are
// encoded part by part.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with an optional prefix
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
	}
}

// EntityKey builds a key for an entity (e.g., "user/auth0|123")
func (kb *KeyBuilder) EntityKey(entityType, id string) string {
	return kb.applyPrefix(fmt.Sprintf("%s/%s", entityType, id), false)
}

// EntityKeyEncoded builds an encoded key for an entity
func (kb *KeyBuilder) EntityKeyEncoded(entityType, id string) string {
	return kb.applyPrefix(fmt.Sprintf("%s/%s", entityType, id), true)
}

// CompoundKeyEncoded builds an encoded key from multiple parts
// (e.g., "step/<run id>/summarize").
func (kb *KeyBuilder) CompoundKeyEncoded(parts ...string) string {
	return kb.applyPrefix(strings.Join(parts, "/"), true)
}

// applyPrefix adds the builder's prefix if one is set
func (kb *KeyBuilder) applyPrefix(key string, encode bool) string {
	fullKey := key
	if kb.prefix != "" {
		fullKey = fmt.Sprintf("%s/%s", kb.prefix, key)
	}

	if encode {
		encodedKey, err := kb.EncodeKey(fullKey)
		if err != nil {
			slog.Error("error encoding key", logging.ErrKey, err, "key", fullKey)
			return fullKey
		}
		return encodedKey
	}
	return fullKey
}

// EncodeKey encodes a key for NATS KV store.
// From https://github.com/ripienaar/encodedkv
//
// NATS limitations: https://docs.nats.io/nats-concepts/jetstream/key-value-store#notes
func (kb *KeyBuilder) EncodeKey(key string) (string, error) {
	res := []string{}
	for _, part := range strings.Split(strings.TrimPrefix(key, "/"), "/") {
		if part == ">" || part == "*" {
			res = append(res, part)
			continue
		}

		dst := make([]byte, base64.URLEncoding.EncodedLen(len(part)))
		base64.URLEncoding.Encode(dst, []byte(part))
		res = append(res, string(dst))
	}

	if len(res) == 0 || (len(res) == 1 && res[0] == "") {
		return "", nats.ErrInvalidKey
	}

	return strings.Join(res, "."), nil
}

// DecodeKey reverses EncodeKey.
func (kb *KeyBuilder) DecodeKey(key string) (string, error) {
	res := []string{}
	for _, part := range strings.Split(key, ".") {
		k, err := base64.URLEncoding.DecodeString(part)
		if err != nil {
			return "", err
		}

		res = append(res, string(k))
	}

	if len(res) == 0 {
		return "", nats.ErrInvalidKey
	}

	return fmt.Sprintf("/%s", strings.Join(res, "/")), nil
}
