// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/service"
)

// meetingRequestBody is the body of meeting create and update requests.
type meetingRequestBody struct {
	Name    string `json:"name"`
	AgentID string `json:"agentId"`
}

func (b meetingRequestBody) input() service.MeetingInput {
	return service.MeetingInput{Name: b.Name, AgentID: b.AgentID}
}

// askRequestBody is a question for the coach.
type askRequestBody struct {
	Question string `json:"question"`
}

type askResponseBody struct {
	Answer string `json:"answer"`
}

type completeResponseBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   string `json:"jobId,omitempty"`
}

// CreateMeeting creates a meeting and its provider call.
func (s *CoachAPI) CreateMeeting(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	var body meetingRequestBody
	if err := s.decodeBody(r, &body); err != nil {
		s.handleError(ctx, w, err)
		return
	}

	meeting, err := s.meetingService.CreateMeeting(ctx, user.ID, body.input())
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusCreated, meeting)
}

// ListMeetings lists the caller's meetings.
func (s *CoachAPI) ListMeetings(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	page, err := pageRequest(r)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}

	query := r.URL.Query()
	result, err := s.meetingService.ListMeetings(ctx, user.ID, models.MeetingListRequest{
		Search:  query.Get("search"),
		Status:  query.Get("status"),
		AgentID: query.Get("agentId"),
		Page:    page,
	})
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusOK, result)
}

// GetMeeting gets one of the caller's meetings.
func (s *CoachAPI) GetMeeting(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	meeting, err := s.meetingService.GetMeeting(ctx, user.ID, s.pathParam(r, "id"))
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusOK, meeting)
}

// UpdateMeeting renames a meeting or moves it to another agent.
func (s *CoachAPI) UpdateMeeting(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	var body meetingRequestBody
	if err := s.decodeBody(r, &body); err != nil {
		s.handleError(ctx, w, err)
		return
	}

	meeting, err := s.meetingService.UpdateMeeting(ctx, user.ID, s.pathParam(r, "id"), body.input())
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusOK, meeting)
}

// DeleteMeeting removes a meeting and returns it.
func (s *CoachAPI) DeleteMeeting(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	meeting, err := s.meetingService.DeleteMeeting(ctx, user.ID, s.pathParam(r, "id"))
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusOK, meeting)
}

// GetTranscript returns the meeting transcript with speaker names.
func (s *CoachAPI) GetTranscript(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	items, err := s.meetingService.GetTranscript(ctx, user.ID, s.pathParam(r, "id"))
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	if items == nil {
		items = []models.SpeakerTranscriptItem{}
	}
	s.respond(ctx, w, http.StatusOK, items)
}

// AskCoach answers a question about the meeting.
func (s *CoachAPI) AskCoach(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	var body askRequestBody
	if err := s.decodeBody(r, &body); err != nil {
		s.handleError(ctx, w, err)
		return
	}

	answer, err := s.meetingService.Ask(ctx, user.ID, s.pathParam(r, "id"), body.Question)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusOK, askResponseBody{Answer: answer})
}

// CompleteMeeting queues the completion job for a meeting.
func (s *CoachAPI) CompleteMeeting(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	jobID, err := s.meetingService.TriggerCompletion(ctx, user.ID, s.pathParam(r, "id"))
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusOK, completeResponseBody{
		Success: true,
		Message: "Meeting completion triggered",
		JobID:   jobID,
	})
}

// CancelMeeting cancels a meeting that has not ended.
func (s *CoachAPI) CancelMeeting(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) {
	meeting, err := s.meetingService.CancelMeeting(ctx, user.ID, s.pathParam(r, "id"))
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusOK, meeting)
}

// CreateVideoToken registers the caller with the provider and returns a
// token for joining calls.
func (s *CoachAPI) CreateVideoToken(ctx context.Context, w http.ResponseWriter, _ *http.Request, user *models.User) {
	token, err := s.meetingService.CreateVideoToken(ctx, *user)
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}
	s.respond(ctx, w, http.StatusOK, token)
}
