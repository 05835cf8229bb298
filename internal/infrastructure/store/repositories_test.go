// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
)

func TestBucketConfig(t *testing.T) {
	steps := bucketConfig(KVStoreNameJobSteps)
	assert.Equal(t, KVStoreNameJobSteps, steps.Bucket)
	assert.Equal(t, stepBucketTTL, steps.TTL)

	meetings := bucketConfig(KVStoreNameMeetings)
	assert.Zero(t, meetings.TTL)
	assert.EqualValues(t, 5, meetings.History)
	assert.Equal(t, jetstream.FileStorage, meetings.Storage)
}

func TestNewNatsRepositories(t *testing.T) {
	t.Run("missing bucket", func(t *testing.T) {
		_, err := NewNatsRepositories(map[string]INatsKeyValue{
			KVStoreNameMeetings: newMockNatsKeyValue(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), KVStoreNameAgents)
	})

	t.Run("all buckets", func(t *testing.T) {
		buckets := map[string]INatsKeyValue{}
		for _, name := range KVBuckets {
			buckets[name] = newMockNatsKeyValue()
		}

		repos, err := NewNatsRepositories(buckets)
		require.NoError(t, err)
		assert.True(t, repos.Meetings.IsReady())
		assert.True(t, repos.Agents.IsReady())
		assert.True(t, repos.Users.IsReady())
		assert.NoError(t, repos.Close())

		ctx := context.Background()
		require.NoError(t, repos.Meetings.Create(ctx, &models.Meeting{
			ID:        "m-1",
			Name:      "Mock interview",
			UserID:    "user-1",
			AgentID:   "agent-1",
			Status:    models.MeetingStatusUpcoming,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}))
		got, err := repos.Meetings.Get(ctx, "m-1")
		require.NoError(t, err)
		assert.Equal(t, "Mock interview", got.Name)
	})
}

func TestOpenSQLiteRepositories(t *testing.T) {
	repos, err := OpenSQLiteRepositories(SQLiteMemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	ctx := context.Background()
	require.NoError(t, repos.Users.Upsert(ctx, &models.User{ID: "user-1", Name: "Ada"}))
	u, err := repos.Users.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)

	require.NoError(t, repos.Steps.Save(ctx, "run-1", "summarize", "done"))
	var out string
	found, err := repos.Steps.Load(ctx, "run-1", "summarize", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "done", out)
}

func TestRepositories_CloseNil(t *testing.T) {
	var repos *Repositories
	assert.NoError(t, repos.Close())
}
