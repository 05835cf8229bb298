// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/utils"
)

// MeetingInput is the writable part of a meeting.
type MeetingInput struct {
	Name    string
	AgentID string
}

func (in MeetingInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.NewValidationError("Name is required")
	}
	if strings.TrimSpace(in.AgentID) == "" {
		return domain.NewValidationError("Agent is required")
	}
	return nil
}

// MeetingService manages the meetings owned by a user and the user facing
// actions on them.
type MeetingService struct {
	MeetingRepository domain.MeetingRepository
	AgentRepository   domain.AgentRepository
	UserRepository    domain.UserRepository
	Video             domain.VideoProvider
	Fetcher           domain.TranscriptFetcher
	Coach             domain.Coach
	Jobs              domain.JobScheduler
	Lifecycle         *LifecycleService
	Config            ServiceConfig

	speakers *speakerResolver
	now      func() time.Time
	newID    func() string
}

// NewMeetingService creates a MeetingService.
func NewMeetingService(
	meetings domain.MeetingRepository,
	agents domain.AgentRepository,
	users domain.UserRepository,
	video domain.VideoProvider,
	fetcher domain.TranscriptFetcher,
	coach domain.Coach,
	jobs domain.JobScheduler,
	lifecycle *LifecycleService,
	config ServiceConfig,
) *MeetingService {
	config = config.withDefaults()
	return &MeetingService{
		MeetingRepository: meetings,
		AgentRepository:   agents,
		UserRepository:    users,
		Video:             video,
		Fetcher:           fetcher,
		Coach:             coach,
		Jobs:              jobs,
		Lifecycle:         lifecycle,
		Config:            config,
		speakers:          newSpeakerResolver(users, agents, config.Workers),
		now:               time.Now,
		newID:             utils.NewID,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *MeetingService) ServiceReady() bool {
	return s.MeetingRepository != nil && s.MeetingRepository.IsReady() &&
		s.AgentRepository != nil && s.AgentRepository.IsReady() &&
		s.UserRepository != nil &&
		s.Video != nil &&
		s.Fetcher != nil &&
		s.Coach != nil &&
		s.Jobs != nil &&
		s.Lifecycle != nil
}

func (s *MeetingService) notReady(ctx context.Context) error {
	slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
	return domain.ErrServiceUnavailable
}

// getOwned loads a meeting and hides meetings owned by someone else.
func (s *MeetingService) getOwned(ctx context.Context, userID, meetingID string) (*models.Meeting, uint64, error) {
	meeting, revision, err := s.MeetingRepository.GetWithRevision(ctx, meetingID)
	if err != nil {
		return nil, 0, err
	}
	if meeting.UserID != userID {
		slog.WarnContext(ctx, "meeting owned by another user")
		return nil, 0, domain.ErrMeetingNotFound
	}
	return meeting, revision, nil
}

// getOwnedAgent loads an agent owned by userID.
func (s *MeetingService) getOwnedAgent(ctx context.Context, userID, agentID string) (*models.Agent, error) {
	agent, err := s.AgentRepository.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.UserID != userID {
		return nil, domain.ErrAgentNotFound
	}
	return agent, nil
}

// agentFor returns the meeting's agent, or nil when it no longer exists.
func (s *MeetingService) agentFor(ctx context.Context, m *models.Meeting) (*models.Agent, error) {
	agent, err := s.AgentRepository.Get(ctx, m.AgentID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// CreateMeeting creates an upcoming meeting and its provider call, and
// registers the agent with the provider so it can join.
func (s *MeetingService) CreateMeeting(ctx context.Context, userID string, in MeetingInput) (*models.MeetingView, error) {
	if !s.ServiceReady() {
		return nil, s.notReady(ctx)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	agent, err := s.getOwnedAgent(ctx, userID, in.AgentID)
	if err != nil {
		slog.WarnContext(ctx, "agent for new meeting unavailable", logging.ErrKey, err, "agent_id", in.AgentID)
		return nil, err
	}

	now := s.now().UTC()
	meeting := &models.Meeting{
		ID:        s.newID(),
		Name:      strings.TrimSpace(in.Name),
		UserID:    userID,
		AgentID:   agent.ID,
		Status:    models.MeetingStatusUpcoming,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", meeting.ID))

	if err := s.MeetingRepository.Create(ctx, meeting); err != nil {
		slog.ErrorContext(ctx, "error creating meeting", logging.ErrKey, err)
		return nil, err
	}

	err = s.Video.CreateCall(ctx, models.CreateCallRequest{
		MeetingID:   meeting.ID,
		MeetingName: meeting.Name,
		CreatedBy:   userID,
	})
	if err == nil {
		err = s.Video.UpsertUsers(ctx, agent.AsParticipant())
	}
	if err != nil {
		slog.ErrorContext(ctx, "error setting up provider call, removing meeting", logging.ErrKey, err)
		s.rollbackCreate(ctx, meeting.ID)
		return nil, err
	}

	slog.InfoContext(ctx, "created meeting", "agent_id", agent.ID)
	return models.NewMeetingView(meeting, agent), nil
}

func (s *MeetingService) rollbackCreate(ctx context.Context, meetingID string) {
	_, revision, err := s.MeetingRepository.GetWithRevision(ctx, meetingID)
	if err == nil {
		err = s.MeetingRepository.Delete(ctx, meetingID, revision)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to remove meeting after provider error", logging.ErrKey, err)
	}
}

// GetMeeting returns a meeting owned by userID with its agent.
func (s *MeetingService) GetMeeting(ctx context.Context, userID, meetingID string) (*models.MeetingView, error) {
	if !s.ServiceReady() {
		return nil, s.notReady(ctx)
	}

	meeting, _, err := s.getOwned(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}
	agent, err := s.agentFor(ctx, meeting)
	if err != nil {
		return nil, err
	}
	return models.NewMeetingView(meeting, agent), nil
}

// ListMeetings returns one page of the meetings owned by userID, newest
// first.
func (s *MeetingService) ListMeetings(ctx context.Context, userID string, req models.MeetingListRequest) (models.Page[*models.MeetingView], error) {
	var empty models.Page[*models.MeetingView]
	if !s.ServiceReady() {
		return empty, s.notReady(ctx)
	}
	page := req.Page.Normalize()
	if !page.Valid() {
		return empty, domain.NewValidationError("invalid page or pageSize")
	}
	status, ok := models.ParseMeetingStatus(req.Status)
	if !ok {
		return empty, domain.NewValidationError(fmt.Sprintf("invalid status %q", req.Status))
	}

	meetings, err := s.MeetingRepository.List(ctx, models.MeetingFilter{
		UserID:  userID,
		Search:  strings.TrimSpace(req.Search),
		Status:  status,
		AgentID: req.AgentID,
	})
	if err != nil {
		return empty, err
	}
	agents, err := s.AgentRepository.List(ctx, models.AgentFilter{UserID: userID})
	if err != nil {
		return empty, err
	}
	byID := make(map[string]*models.Agent, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
	}

	views := make([]*models.MeetingView, 0, len(meetings))
	for _, m := range meetings {
		views = append(views, models.NewMeetingView(m, byID[m.AgentID]))
	}
	return models.Paginate(views, page), nil
}

// UpdateMeeting renames a meeting or moves it to another agent.
func (s *MeetingService) UpdateMeeting(ctx context.Context, userID, meetingID string, in MeetingInput) (*models.MeetingView, error) {
	if !s.ServiceReady() {
		return nil, s.notReady(ctx)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	meeting, revision, err := s.getOwned(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}
	agent, err := s.getOwnedAgent(ctx, userID, in.AgentID)
	if err != nil {
		return nil, err
	}

	meeting.Name = strings.TrimSpace(in.Name)
	meeting.AgentID = agent.ID
	meeting.UpdatedAt = s.now().UTC()
	if err := s.MeetingRepository.Update(ctx, meeting, revision); err != nil {
		slog.ErrorContext(ctx, "error updating meeting", logging.ErrKey, err)
		return nil, err
	}
	return models.NewMeetingView(meeting, agent), nil
}

// DeleteMeeting removes a meeting and returns it.
func (s *MeetingService) DeleteMeeting(ctx context.Context, userID, meetingID string) (*models.Meeting, error) {
	if !s.ServiceReady() {
		return nil, s.notReady(ctx)
	}

	meeting, revision, err := s.getOwned(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}
	if err := s.MeetingRepository.Delete(ctx, meetingID, revision); err != nil {
		slog.ErrorContext(ctx, "error deleting meeting", logging.ErrKey, err)
		return nil, err
	}
	slog.InfoContext(ctx, "deleted meeting", "meeting_id", meetingID)
	return meeting, nil
}

// loadTranscript fetches and parses the meeting transcript. Any failure
// yields no items.
func (s *MeetingService) loadTranscript(ctx context.Context, m *models.Meeting) []models.TranscriptItem {
	if m.TranscriptURL == "" {
		return nil
	}
	body, err := s.Fetcher.Fetch(ctx, m.TranscriptURL)
	if err != nil {
		slog.WarnContext(ctx, "could not fetch transcript", logging.ErrKey, err)
		return nil
	}
	items, err := models.ParseTranscriptJSONL(body)
	if err != nil {
		slog.WarnContext(ctx, "could not parse transcript", logging.ErrKey, err)
		return nil
	}
	return items
}

// GetTranscript returns the speaker annotated transcript, or an empty list
// when none is available.
func (s *MeetingService) GetTranscript(ctx context.Context, userID, meetingID string) ([]models.SpeakerTranscriptItem, error) {
	if !s.ServiceReady() {
		return nil, s.notReady(ctx)
	}

	meeting, _, err := s.getOwned(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", meetingID))

	items := s.loadTranscript(ctx, meeting)
	if len(items) == 0 {
		return []models.SpeakerTranscriptItem{}, nil
	}

	speakers, err := s.speakers.resolve(ctx, models.SpeakerIDs(items))
	if err != nil {
		slog.WarnContext(ctx, "speaker lookup failed, using unknown speakers", logging.ErrKey, err)
		speakers = nil
	}
	return models.AttachSpeakers(items, speakers, models.UnknownUserSpeakerName), nil
}

// Ask answers a question about a meeting with the coach model.
func (s *MeetingService) Ask(ctx context.Context, userID, meetingID, question string) (string, error) {
	if !s.ServiceReady() {
		return "", s.notReady(ctx)
	}
	question = strings.TrimSpace(question)
	if question == "" || len(question) > models.CoachQuestionMaxLength {
		return "", domain.NewValidationError(fmt.Sprintf("question must be between 1 and %d characters", models.CoachQuestionMaxLength))
	}

	meeting, _, err := s.getOwned(ctx, userID, meetingID)
	if err != nil {
		return "", err
	}
	agent, err := s.agentFor(ctx, meeting)
	if err != nil {
		return "", err
	}
	if agent == nil {
		return "", domain.ErrMeetingNotFound
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", meetingID))

	lines := make([]string, 0)
	for _, item := range s.loadTranscript(ctx, meeting) {
		lines = append(lines, item.SpeakerID+": "+item.Text)
	}

	return s.Coach.Ask(ctx, models.CoachRequest{
		MeetingName:     meeting.Name,
		AgentName:       agent.Name,
		Instructions:    agent.Instructions,
		Summary:         meeting.Summary,
		DurationSeconds: meeting.DurationSeconds(),
		HasDuration:     meeting.HasDuration(),
		Transcript:      strings.Join(lines, "\n"),
		Question:        question,
	})
}

// TriggerCompletion queues the completion job for a meeting now.
func (s *MeetingService) TriggerCompletion(ctx context.Context, userID, meetingID string) (string, error) {
	if !s.ServiceReady() {
		return "", s.notReady(ctx)
	}
	if _, _, err := s.getOwned(ctx, userID, meetingID); err != nil {
		return "", err
	}

	jobID, err := s.Jobs.Schedule(ctx, models.JobMeetingsComplete, models.CompleteMeetingPayload{MeetingID: meetingID}, 0)
	if err != nil {
		slog.ErrorContext(ctx, "failed to trigger meeting completion", logging.ErrKey, err, "meeting_id", meetingID)
		return "", domain.NewInternalError("Failed to trigger meeting completion", err)
	}
	slog.InfoContext(ctx, "meeting completion triggered", "meeting_id", meetingID, "job_id", jobID)
	return jobID, nil
}

// CancelMeeting cancels a meeting that has not ended.
func (s *MeetingService) CancelMeeting(ctx context.Context, userID, meetingID string) (*models.MeetingView, error) {
	if !s.ServiceReady() {
		return nil, s.notReady(ctx)
	}
	if _, _, err := s.getOwned(ctx, userID, meetingID); err != nil {
		return nil, err
	}

	meeting, err := s.Lifecycle.Cancel(ctx, meetingID)
	if errors.Is(err, domain.ErrPreconditionFailed) {
		return nil, domain.NewConflictError(fmt.Sprintf("meeting in status %s cannot be cancelled", meeting.Status), err)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Video.EndCall(ctx, meetingID); err != nil {
		slog.WarnContext(ctx, "failed to end call of cancelled meeting", logging.ErrKey, err, "meeting_id", meetingID)
	}

	agent, err := s.agentFor(ctx, meeting)
	if err != nil {
		return nil, err
	}
	return models.NewMeetingView(meeting, agent), nil
}

// CreateVideoToken registers the caller with the provider and returns a
// token for joining calls.
func (s *MeetingService) CreateVideoToken(ctx context.Context, user models.User) (*models.VideoToken, error) {
	if !s.ServiceReady() {
		return nil, s.notReady(ctx)
	}
	if user.ID == "" {
		return nil, domain.NewUnauthorizedError("missing principal")
	}

	if err := s.UserRepository.Upsert(ctx, &user); err != nil {
		slog.ErrorContext(ctx, "error saving user", logging.ErrKey, err)
		return nil, err
	}
	user.Role = models.UserRoleAdmin
	if err := s.Video.UpsertUsers(ctx, user); err != nil {
		slog.ErrorContext(ctx, "error registering user with video provider", logging.ErrKey, err)
		return nil, err
	}

	token, err := s.Video.CreateUserToken(user.ID, s.Config.VideoTokenTTL)
	if err != nil {
		slog.ErrorContext(ctx, "error creating video token", logging.ErrKey, err)
		return nil, domain.NewInternalError("failed to create video token", err)
	}
	return token, nil
}
