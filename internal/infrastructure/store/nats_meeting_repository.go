// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
)

// NatsMeetingRepository is the NATS KV store repository for meetings.
// Meeting ids are base58 and used as keys directly.
type NatsMeetingRepository struct {
	*NatsBaseRepository[models.Meeting]
}

// NewNatsMeetingRepository creates a new NATS KV store repository for meetings.
func NewNatsMeetingRepository(kvStore INatsKeyValue) *NatsMeetingRepository {
	return &NatsMeetingRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Meeting](kvStore, "meeting"),
	}
}

func (r *NatsMeetingRepository) Get(ctx context.Context, meetingID string) (*models.Meeting, error) {
	meeting, _, err := r.GetWithRevision(ctx, meetingID)
	return meeting, err
}

func (r *NatsMeetingRepository) GetWithRevision(ctx context.Context, meetingID string) (*models.Meeting, uint64, error) {
	if meetingID == "" {
		return nil, 0, domain.ErrMissingMeetingID
	}
	meeting, revision, err := r.NatsBaseRepository.GetWithRevision(ctx, meetingID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.DebugContext(ctx, "meeting not found", "meeting_id", meetingID)
			return nil, 0, domain.ErrMeetingNotFound
		}
		return nil, 0, err
	}
	return meeting, revision, nil
}

func (r *NatsMeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	return r.NatsBaseRepository.Create(ctx, meeting.ID, meeting)
}

func (r *NatsMeetingRepository) Update(ctx context.Context, meeting *models.Meeting, revision uint64) error {
	err := r.NatsBaseRepository.Update(ctx, meeting.ID, meeting, revision)
	if err != nil && domain.GetErrorType(err) == domain.ErrorTypeNotFound {
		return domain.ErrMeetingNotFound
	}
	return err
}

func (r *NatsMeetingRepository) Delete(ctx context.Context, meetingID string, revision uint64) error {
	err := r.NatsBaseRepository.Delete(ctx, meetingID, revision)
	if err != nil && domain.GetErrorType(err) == domain.ErrorTypeNotFound {
		return domain.ErrMeetingNotFound
	}
	return err
}

// List scans the bucket and returns the meetings matching filter, newest
// first.
func (r *NatsMeetingRepository) List(ctx context.Context, filter models.MeetingFilter) ([]*models.Meeting, error) {
	meetings, err := r.ListEntities(ctx, filter.Matches)
	if err != nil {
		slog.ErrorContext(ctx, "error listing meetings", logging.ErrKey, err)
		return nil, err
	}
	sortNewestFirst(meetings, func(m *models.Meeting) (string, int64) {
		return m.ID, m.CreatedAt.UnixNano()
	})
	return meetings, nil
}
