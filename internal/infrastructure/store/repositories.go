// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
)

// stepBucketTTL bounds how long job step checkpoints outlive their job.
const stepBucketTTL = 7 * 24 * time.Hour

// Repositories bundles the stores used by the services.
type Repositories struct {
	Meetings domain.MeetingRepository
	Agents   domain.AgentRepository
	Users    domain.UserRepository
	Steps    domain.StepStore

	close func() error
}

// Close releases the backend. It is a no-op for NATS buckets, whose
// connection is owned by the caller.
func (r *Repositories) Close() error {
	if r == nil || r.close == nil {
		return nil
	}
	return r.close()
}

// IJetStreamKeyValues is the subset of jetstream.JetStream used to bind the
// KV buckets.
type IJetStreamKeyValues interface {
	CreateOrUpdateKeyValue(ctx context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error)
}

// bucketConfig returns the definition of a service bucket.
func bucketConfig(bucket string) jetstream.KeyValueConfig {
	cfg := jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 1,
		Storage: jetstream.FileStorage,
	}
	switch bucket {
	case KVStoreNameMeetings, KVStoreNameAgents:
		cfg.History = 5
	case KVStoreNameJobSteps:
		cfg.TTL = stepBucketTTL
	}
	return cfg
}

// OpenNatsBuckets creates or updates every bucket in KVBuckets.
func OpenNatsBuckets(ctx context.Context, js IJetStreamKeyValues) (map[string]INatsKeyValue, error) {
	buckets := make(map[string]INatsKeyValue, len(KVBuckets))
	for _, name := range KVBuckets {
		kv, err := js.CreateOrUpdateKeyValue(ctx, bucketConfig(name))
		if err != nil {
			return nil, fmt.Errorf("open kv bucket %s: %w", name, err)
		}
		buckets[name] = kv
	}
	return buckets, nil
}

// NewNatsRepositories builds the repositories over opened buckets.
func NewNatsRepositories(buckets map[string]INatsKeyValue) (*Repositories, error) {
	for _, name := range KVBuckets {
		if buckets[name] == nil {
			return nil, fmt.Errorf("kv bucket %s is not open", name)
		}
	}
	return &Repositories{
		Meetings: NewNatsMeetingRepository(buckets[KVStoreNameMeetings]),
		Agents:   NewNatsAgentRepository(buckets[KVStoreNameAgents]),
		Users:    NewNatsUserRepository(buckets[KVStoreNameUsers]),
		Steps:    NewNatsStepStore(buckets[KVStoreNameJobSteps]),
	}, nil
}

// OpenSQLiteRepositories opens the sqlite backend at path.
func OpenSQLiteRepositories(path string) (*Repositories, error) {
	db, err := NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Meetings: db.Meetings(),
		Agents:   db.Agents(),
		Users:    db.Users(),
		Steps:    db.Steps(),
		close:    db.Close,
	}, nil
}
