// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/vmihailenco/msgpack/v5"
)

// NatsStepStore keeps msgpack-encoded job step outputs in a KV bucket.
type NatsStepStore struct {
	kvStore INatsKeyValue
	keys    *KeyBuilder
}

// NewNatsStepStore creates a step store over the job steps bucket.
func NewNatsStepStore(kvStore INatsKeyValue) *NatsStepStore {
	return &NatsStepStore{
		kvStore: kvStore,
		keys:    NewKeyBuilder(""),
	}
}

func (s *NatsStepStore) key(runID, step string) string {
	return s.keys.CompoundKeyEncoded(KeyPrefixStep, runID, step)
}

// Load implements domain.StepStore.
func (s *NatsStepStore) Load(ctx context.Context, runID, step string, out any) (bool, error) {
	if s.kvStore == nil {
		return false, domain.ErrServiceUnavailable
	}
	entry, err := s.kvStore.Get(ctx, s.key(runID, step))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return false, nil
		}
		return false, domain.NewInternalError("failed to load job step", err)
	}
	if err := msgpack.Unmarshal(entry.Value(), out); err != nil {
		// A checkpoint that cannot be decoded is recomputed.
		slog.WarnContext(ctx, "discarding undecodable job step",
			"run_id", runID, "step", step, logging.ErrKey, err)
		return false, nil
	}
	return true, nil
}

// Save implements domain.StepStore.
func (s *NatsStepStore) Save(ctx context.Context, runID, step string, value any) error {
	if s.kvStore == nil {
		return domain.ErrServiceUnavailable
	}
	data, err := msgpack.Marshal(value)
	if err != nil {
		return domain.NewInternalError(fmt.Sprintf("failed to encode job step %s", step), err)
	}
	if _, err := s.kvStore.Put(ctx, s.key(runID, step), data); err != nil {
		return domain.NewInternalError(fmt.Sprintf("failed to save job step %s", step), err)
	}
	return nil
}

// Clear implements domain.StepStore.
func (s *NatsStepStore) Clear(ctx context.Context, runID string) error {
	if s.kvStore == nil {
		return domain.ErrServiceUnavailable
	}
	var errs []error
	for _, step := range constants.TranscriptJobSteps {
		if err := s.kvStore.Purge(ctx, s.key(runID, step)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return domain.NewInternalError("failed to clear job steps", errs...)
	}
	return nil
}
