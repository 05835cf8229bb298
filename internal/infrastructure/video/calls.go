// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/tidwall/gjson"
)

// transcriptURLPaths are the call detail locations a transcript URL has
// been observed at, in order of preference.
var transcriptURLPaths = []string{
	"call.recording.transcript_url",
	"call.transcription.url",
	"call.transcripts.0.url",
	"transcriptions.0.url",
}

// TranscriptURLFromCall probes provider call details for a transcript URL.
func TranscriptURLFromCall(details []byte) string {
	for _, path := range transcriptURLPaths {
		if v := gjson.GetBytes(details, path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

type callSettingsOverride struct {
	Transcription struct {
		Language          string `json:"language"`
		Mode              string `json:"mode"`
		ClosedCaptionMode string `json:"closed_caption_mode"`
	} `json:"transcription"`
	Recording struct {
		Mode    string `json:"mode"`
		Quality string `json:"quality"`
	} `json:"recording"`
}

type createCallRequest struct {
	Data struct {
		CreatedByID      string               `json:"created_by_id"`
		Custom           models.CallCustom    `json:"custom"`
		SettingsOverride callSettingsOverride `json:"settings_override"`
	} `json:"data"`
}

// CreateCall implements domain.VideoProvider. The call id is the meeting id
// and transcription and recording start automatically.
func (c *Client) CreateCall(ctx context.Context, req models.CreateCallRequest) error {
	var body createCallRequest
	body.Data.CreatedByID = req.CreatedBy
	body.Data.Custom = models.CallCustom{MeetingID: req.MeetingID, MeetingName: req.MeetingName}
	body.Data.SettingsOverride.Transcription.Language = "en"
	body.Data.SettingsOverride.Transcription.Mode = "auto-on"
	body.Data.SettingsOverride.Transcription.ClosedCaptionMode = "auto-on"
	body.Data.SettingsOverride.Recording.Mode = "auto-on"
	body.Data.SettingsOverride.Recording.Quality = "1080p"

	if _, err := c.do(ctx, http.MethodPost, c.callPath(req.MeetingID), body, nil); err != nil {
		return domain.NewUnavailableError("failed to create video call", err)
	}
	slog.InfoContext(ctx, "video call created", "meeting_id", req.MeetingID)
	return nil
}

// EndCall implements domain.VideoProvider.
func (c *Client) EndCall(ctx context.Context, callID string) error {
	if _, err := c.do(ctx, http.MethodPost, c.callPath(callID, "mark_ended"), struct{}{}, nil); err != nil {
		return domain.NewUnavailableError("failed to end video call", err)
	}
	return nil
}

// GetCall returns the raw call details.
func (c *Client) GetCall(ctx context.Context, callID string) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, c.callPath(callID), nil, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, domain.NewNotFoundError("video call not found", err)
		}
		return nil, domain.NewUnavailableError("failed to get video call", err)
	}
	return body, nil
}

// FindTranscriptURL implements domain.VideoProvider.
func (c *Client) FindTranscriptURL(ctx context.Context, callID string) (string, error) {
	details, err := c.GetCall(ctx, callID)
	if err != nil {
		return "", err
	}
	if u := TranscriptURLFromCall(details); u != "" {
		return u, nil
	}

	transcriptions, err := c.do(ctx, http.MethodGet, c.callPath(callID, "transcriptions"), nil, nil)
	if err != nil {
		// Older calls have no transcription listing; the call details were
		// authoritative.
		slog.DebugContext(ctx, "transcription listing unavailable", "meeting_id", callID, "error", err)
		return "", nil
	}
	return TranscriptURLFromCall(transcriptions), nil
}

type providerUser struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	Image string `json:"image,omitempty"`
}

// UpsertUsers implements domain.VideoProvider.
func (c *Client) UpsertUsers(ctx context.Context, users ...models.User) error {
	if len(users) == 0 {
		return nil
	}
	body := struct {
		Users map[string]providerUser `json:"users"`
	}{Users: make(map[string]providerUser, len(users))}
	for _, u := range users {
		if u.ID == "" {
			return domain.NewValidationError("video user id is required")
		}
		role := u.Role
		if role == "" {
			role = models.UserRoleUser
		}
		body.Users[u.ID] = providerUser{ID: u.ID, Name: u.Name, Role: role, Image: u.Image}
	}
	if _, err := c.do(ctx, http.MethodPost, "/users", body, nil); err != nil {
		return domain.NewUnavailableError("failed to upsert video users", err)
	}
	return nil
}

// CreateUserToken implements domain.VideoProvider.
func (c *Client) CreateUserToken(userID string, ttl time.Duration) (*models.VideoToken, error) {
	token, err := c.tokens.UserToken(userID, ttl)
	if err != nil {
		return nil, domain.NewValidationError("cannot issue video token", err)
	}
	return token, nil
}

type connectAgentRequest struct {
	CallType     string `json:"call_type"`
	CallID       string `json:"call_id"`
	AgentUserID  string `json:"agent_user_id"`
	Instructions string `json:"instructions"`
	Token        string `json:"token"`
}

// ConnectAgent implements domain.VideoProvider. The realtime bridge joins
// the agent as a participant and applies its instructions to the session.
func (c *Client) ConnectAgent(ctx context.Context, callID string, agent *models.Agent) error {
	if c.config.AgentBridgeURL == "" {
		return domain.NewUnavailableError("agent bridge is not configured")
	}
	if agent == nil {
		return domain.ErrAgentNotFound
	}
	token, err := c.tokens.UserToken(agent.ID, time.Hour)
	if err != nil {
		return domain.NewInternalError("failed to sign agent token", err)
	}

	bridge := &Client{
		httpClient: c.httpClient,
		config:     c.config,
		tokens:     c.tokens,
		server:     c.server,
	}
	bridge.config.BaseURL = strings.TrimRight(c.config.AgentBridgeURL, "/")
	bridge.config.MaxRetries = 1

	req := connectAgentRequest{
		CallType:     c.config.CallType,
		CallID:       callID,
		AgentUserID:  agent.ID,
		Instructions: agent.Instructions,
		Token:        token.Token,
	}
	if _, err := bridge.do(ctx, http.MethodPost, "/connect", req, nil); err != nil {
		return domain.NewInternalError(fmt.Sprintf("failed to connect agent %s", agent.ID), err)
	}
	slog.InfoContext(ctx, "agent connected to call", "meeting_id", callID, "agent_id", agent.ID)
	return nil
}
