// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"strings"
	"time"
)

// Agent is an AI interview coach persona that joins a meeting's call.
type Agent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	UserID       string    `json:"user_id"`
	Instructions string    `json:"instructions"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AgentFilter narrows agent listings. Zero values mean no filter.
type AgentFilter struct {
	UserID string
	Search string
}

// Matches reports whether a satisfies the filter.
func (f AgentFilter) Matches(a *Agent) bool {
	if a == nil {
		return false
	}
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// User is an authenticated person who owns agents and meetings. Users are
// also speakers in transcripts.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
	// Role is the call role granted when the user is registered with the
	// video provider. It is not persisted.
	Role      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Video provider call roles.
const (
	UserRoleAdmin = "admin"
	UserRoleUser  = "user"
)

// DefaultAgentName labels agents registered without a name.
const DefaultAgentName = "Unknown Agent"

// AsParticipant returns the agent as a provider user.
func (a *Agent) AsParticipant() User {
	name := a.Name
	if name == "" {
		name = DefaultAgentName
	}
	return User{ID: a.ID, Name: name, Role: UserRoleUser}
}
