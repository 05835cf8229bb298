// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/concurrent"
)

// Sweeper queues the completion job for meetings that stayed in processing
// too long, covering meetings whose fallback was never armed or was lost.
type Sweeper struct {
	meetings   domain.MeetingRepository
	jobs       domain.JobScheduler
	pool       *concurrent.WorkerPool
	stuckAfter time.Duration
	now        func() time.Time
}

// NewSweeper creates a Sweeper.
func NewSweeper(meetings domain.MeetingRepository, jobs domain.JobScheduler, config ServiceConfig) *Sweeper {
	config = config.withDefaults()
	return &Sweeper{
		meetings:   meetings,
		jobs:       jobs,
		pool:       concurrent.NewWorkerPool(config.Workers),
		stuckAfter: config.SweepStuckAfter,
		now:        time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *Sweeper) ServiceReady() bool {
	return s.meetings != nil && s.meetings.IsReady() && s.jobs != nil
}

// Stuck lists the meetings the next sweep would complete.
func (s *Sweeper) Stuck(ctx context.Context) ([]*models.Meeting, error) {
	processing, err := s.meetings.List(ctx, models.MeetingFilter{Status: models.MeetingStatusProcessing})
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-s.stuckAfter)
	stuck := []*models.Meeting{}
	for _, m := range processing {
		if m.StuckSince().Before(cutoff) {
			stuck = append(stuck, m)
		}
	}
	return stuck, nil
}

// Sweep queues a completion job for every stuck meeting and returns how
// many were queued.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if !s.ServiceReady() {
		return 0, domain.ErrServiceUnavailable
	}

	stuck, err := s.Stuck(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list processing meetings", logging.ErrKey, err)
		return 0, err
	}
	if len(stuck) == 0 {
		slog.DebugContext(ctx, "no stuck meetings")
		return 0, nil
	}

	tasks := make([]func() error, 0, len(stuck))
	for _, m := range stuck {
		tasks = append(tasks, func() error {
			_, err := s.jobs.Schedule(ctx, models.JobMeetingsComplete, models.CompleteMeetingPayload{MeetingID: m.ID}, 0)
			if err != nil {
				slog.ErrorContext(ctx, "failed to enqueue completion for stuck meeting",
					logging.ErrKey, err,
					"meeting_id", m.ID,
				)
			}
			return err
		})
	}

	errs := s.pool.RunAll(ctx, tasks...)
	queued := len(stuck) - len(errs)
	slog.InfoContext(ctx, "swept stuck meetings", "stuck", len(stuck), "queued", queued)
	return queued, errors.Join(errs...)
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				slog.WarnContext(ctx, "sweep finished with errors", logging.ErrKey, err)
			}
		}
	}
}
