// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(SQLiteMemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSQLiteStore(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := NewSQLiteStore("  ")
		assert.Error(t, err)
	})

	t.Run("file path creates directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "coach.db")
		s, err := NewSQLiteStore(path)
		require.NoError(t, err)
		defer s.Close()
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func TestSQLiteMeetingRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLiteStore(t).Meetings()
	now := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)

	m := newTestMeeting("m1", "u1", now)
	require.NoError(t, repo.Create(ctx, m))
	assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(repo.Create(ctx, m)))

	got, rev, err := repo.GetWithRevision(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev)
	assert.True(t, now.Equal(got.CreatedAt))
	assert.Nil(t, got.StartedAt)

	started := now.Add(time.Minute)
	got.Status = models.MeetingStatusActive
	got.StartedAt = &started
	require.NoError(t, repo.Update(ctx, got, rev))

	t.Run("stale revision conflicts", func(t *testing.T) {
		got.Status = models.MeetingStatusCancelled
		err := repo.Update(ctx, got, rev)
		assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
	})

	t.Run("reads back update", func(t *testing.T) {
		fresh, rev2, err := repo.GetWithRevision(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), rev2)
		assert.Equal(t, models.MeetingStatusActive, fresh.Status)
		require.NotNil(t, fresh.StartedAt)
		assert.True(t, started.Equal(*fresh.StartedAt))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrMeetingNotFound)
		assert.ErrorIs(t, repo.Update(ctx, newTestMeeting("nope", "u1", now), 1), domain.ErrMeetingNotFound)
		_, err = repo.Get(ctx, "")
		assert.ErrorIs(t, err, domain.ErrMissingMeetingID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newTestMeeting("m2", "u1", now)))
		assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(repo.Delete(ctx, "m2", 9)))
		require.NoError(t, repo.Delete(ctx, "m2", 1))
		assert.ErrorIs(t, repo.Delete(ctx, "m2", 1), domain.ErrMeetingNotFound)
	})
}

func TestSQLiteMeetingRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLiteStore(t).Meetings()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	a := newTestMeeting("a", "u1", base)
	b := newTestMeeting("b", "u1", base.Add(time.Hour))
	c := newTestMeeting("c", "u2", base.Add(2*time.Hour))
	d := newTestMeeting("d", "u1", base.Add(3*time.Hour))
	d.Name = "100%_real"
	d.Status = models.MeetingStatusProcessing
	for _, m := range []*models.Meeting{a, b, c, d} {
		require.NoError(t, repo.Create(ctx, m))
	}

	tests := []struct {
		name     string
		filter   models.MeetingFilter
		expected []string
	}{
		{"all", models.MeetingFilter{}, []string{"d", "c", "b", "a"}},
		{"by user", models.MeetingFilter{UserID: "u1"}, []string{"d", "b", "a"}},
		{"by status", models.MeetingFilter{Status: models.MeetingStatusProcessing}, []string{"d"}},
		{"search is literal", models.MeetingFilter{Search: "%_"}, []string{"d"}},
		{"search case insensitive", models.MeetingFilter{Search: "INTERVIEW"}, []string{"c", "b", "a"}},
		{"no match", models.MeetingFilter{AgentID: "other"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meetings, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, m := range meetings {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestSQLiteAgentAndUserRepositories(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)
	agents := s.Agents()
	users := s.Users()
	now := time.Now().UTC()

	require.NoError(t, agents.Create(ctx, &models.Agent{ID: "ag1", Name: "Coach", UserID: "u1", Instructions: "Be kind", CreatedAt: now, UpdatedAt: now}))
	a, rev, err := agents.GetWithRevision(ctx, "ag1")
	require.NoError(t, err)
	a.Instructions = "Be direct"
	require.NoError(t, agents.Update(ctx, a, rev))

	list, err := agents.List(ctx, models.AgentFilter{UserID: "u1", Search: "coa"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Be direct", list[0].Instructions)

	_, err = agents.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
	require.NoError(t, agents.Delete(ctx, "ag1", rev+1))

	created := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, users.Upsert(ctx, &models.User{ID: "u1", Name: "Grace", CreatedAt: created, UpdatedAt: created}))
	require.NoError(t, users.Upsert(ctx, &models.User{ID: "u1", Name: "Grace H", Email: "g@example.com"}))
	u, err := users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Grace H", u.Name)
	assert.True(t, created.Equal(u.CreatedAt))

	_, err = users.Get(ctx, "u2")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestSQLiteStepStore(t *testing.T) {
	ctx := context.Background()
	steps := newTestSQLiteStore(t).Steps()

	var summary string
	ok, err := steps.Load(ctx, "run-1", "summarize", &summary)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, steps.Save(ctx, "run-1", "summarize", "first"))
	require.NoError(t, steps.Save(ctx, "run-1", "summarize", "second"))
	ok, err = steps.Load(ctx, "run-1", "summarize", &summary)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", summary)

	require.NoError(t, steps.Clear(ctx, "run-1"))
	ok, err = steps.Load(ctx, "run-1", "summarize", &summary)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%100\%\_x%`, likePattern("100%_X"))
}
