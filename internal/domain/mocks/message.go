// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

// MockMessage implements domain.Message for testing
type MockMessage struct {
	data        []byte
	subject     string
	jobID       string
	attempt     int
	lastAttempt bool
}

func (m *MockMessage) Subject() string {
	return m.subject
}

func (m *MockMessage) Data() []byte {
	return m.data
}

func (m *MockMessage) JobID() string {
	return m.jobID
}

func (m *MockMessage) Attempt() int {
	return m.attempt
}

func (m *MockMessage) LastAttempt() bool {
	return m.lastAttempt
}

// WithAttempt sets the delivery attempt and whether it is the last one.
func (m *MockMessage) WithAttempt(attempt int, last bool) *MockMessage {
	m.attempt = attempt
	m.lastAttempt = last
	return m
}

// NewMockMessage creates a mock message for testing
func NewMockMessage(data []byte, subject, jobID string) *MockMessage {
	return &MockMessage{
		data:    data,
		subject: subject,
		jobID:   jobID,
		attempt: 1,
	}
}
