// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
)

const meetingColumns = `id, name, user_id, agent_id, status, started_at, ended_at,
	transcript_url, recording_url, summary, transcript, created_at, updated_at, revision`

// SQLiteMeetingRepository implements domain.MeetingRepository on sqlite.
type SQLiteMeetingRepository struct {
	db *sql.DB
}

func (r *SQLiteMeetingRepository) IsReady() bool {
	return r.db != nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*models.Meeting, uint64, error) {
	var (
		m                    models.Meeting
		status               string
		startedAt, endedAt   sql.NullString
		createdAt, updatedAt string
		revision             uint64
	)
	err := row.Scan(&m.ID, &m.Name, &m.UserID, &m.AgentID, &status, &startedAt, &endedAt,
		&m.TranscriptURL, &m.RecordingURL, &m.Summary, &m.Transcript, &createdAt, &updatedAt, &revision)
	if err != nil {
		return nil, 0, err
	}
	m.Status = models.MeetingStatus(status)
	if m.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, 0, err
	}
	if m.EndedAt, err = parseNullTime(endedAt); err != nil {
		return nil, 0, err
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, 0, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, 0, err
	}
	return &m, revision, nil
}

func (r *SQLiteMeetingRepository) Get(ctx context.Context, meetingID string) (*models.Meeting, error) {
	m, _, err := r.GetWithRevision(ctx, meetingID)
	return m, err
}

func (r *SQLiteMeetingRepository) GetWithRevision(ctx context.Context, meetingID string) (m *models.Meeting, revision uint64, err error) {
	ctx, span := startSQLSpan(ctx, "select", "meetings")
	defer func() { endSQLSpan(span, err) }()

	if meetingID == "" {
		return nil, 0, domain.ErrMissingMeetingID
	}
	row := r.db.QueryRowContext(ctx, "SELECT "+meetingColumns+" FROM meetings WHERE id=?", meetingID)
	m, revision, err = scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, domain.ErrMeetingNotFound
	}
	if err != nil {
		return nil, 0, domain.NewInternalError("failed to retrieve meeting from store", err)
	}
	return m, revision, nil
}

func (r *SQLiteMeetingRepository) Create(ctx context.Context, m *models.Meeting) (err error) {
	ctx, span := startSQLSpan(ctx, "insert", "meetings")
	defer func() { endSQLSpan(span, err) }()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO meetings (`+meetingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		m.ID, m.Name, m.UserID, m.AgentID, string(m.Status),
		formatNullTime(m.StartedAt), formatNullTime(m.EndedAt),
		m.TranscriptURL, m.RecordingURL, m.Summary, m.Transcript,
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if isUniqueViolation(err) {
		return domain.NewConflictError("meeting already exists", err)
	}
	if err != nil {
		return domain.NewInternalError("failed to create meeting in store", err)
	}
	return nil
}

func (r *SQLiteMeetingRepository) Update(ctx context.Context, m *models.Meeting, revision uint64) (err error) {
	ctx, span := startSQLSpan(ctx, "update", "meetings")
	defer func() { endSQLSpan(span, err) }()

	res, err := r.db.ExecContext(ctx, `
		UPDATE meetings SET name=?, user_id=?, agent_id=?, status=?, started_at=?, ended_at=?,
			transcript_url=?, recording_url=?, summary=?, transcript=?, updated_at=?,
			revision=revision+1
		WHERE id=? AND revision=?`,
		m.Name, m.UserID, m.AgentID, string(m.Status),
		formatNullTime(m.StartedAt), formatNullTime(m.EndedAt),
		m.TranscriptURL, m.RecordingURL, m.Summary, m.Transcript, formatTime(m.UpdatedAt),
		m.ID, revision)
	if err != nil {
		return domain.NewInternalError("failed to update meeting in store", err)
	}
	return casResult(ctx, r.db, res, "meetings", m.ID, domain.ErrMeetingNotFound)
}

func (r *SQLiteMeetingRepository) Delete(ctx context.Context, meetingID string, revision uint64) (err error) {
	ctx, span := startSQLSpan(ctx, "delete", "meetings")
	defer func() { endSQLSpan(span, err) }()

	res, err := r.db.ExecContext(ctx, "DELETE FROM meetings WHERE id=? AND revision=?", meetingID, revision)
	if err != nil {
		return domain.NewInternalError("failed to delete meeting from store", err)
	}
	return casResult(ctx, r.db, res, "meetings", meetingID, domain.ErrMeetingNotFound)
}

func (r *SQLiteMeetingRepository) List(ctx context.Context, filter models.MeetingFilter) (meetings []*models.Meeting, err error) {
	ctx, span := startSQLSpan(ctx, "select", "meetings")
	defer func() { endSQLSpan(span, err) }()

	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "user_id=?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status=?")
		args = append(args, string(filter.Status))
	}
	if filter.AgentID != "" {
		where = append(where, "agent_id=?")
		args = append(args, filter.AgentID)
	}
	if filter.Search != "" {
		where = append(where, `lower(name) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.Search))
	}

	query := "SELECT " + meetingColumns + " FROM meetings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to list meetings", err)
	}
	defer rows.Close()

	meetings = []*models.Meeting{}
	for rows.Next() {
		m, _, err := scanMeeting(rows)
		if err != nil {
			return nil, domain.NewInternalError("failed to read meeting row", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewInternalError("failed to list meetings", err)
	}
	return meetings, nil
}

// SQLiteAgentRepository implements domain.AgentRepository on sqlite.
type SQLiteAgentRepository struct {
	db *sql.DB
}

func (r *SQLiteAgentRepository) IsReady() bool {
	return r.db != nil
}

func scanAgent(row rowScanner) (*models.Agent, uint64, error) {
	var (
		a                    models.Agent
		createdAt, updatedAt string
		revision             uint64
	)
	if err := row.Scan(&a.ID, &a.Name, &a.UserID, &a.Instructions, &createdAt, &updatedAt, &revision); err != nil {
		return nil, 0, err
	}
	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, 0, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, 0, err
	}
	return &a, revision, nil
}

func (r *SQLiteAgentRepository) Get(ctx context.Context, agentID string) (*models.Agent, error) {
	a, _, err := r.GetWithRevision(ctx, agentID)
	return a, err
}

func (r *SQLiteAgentRepository) GetWithRevision(ctx context.Context, agentID string) (a *models.Agent, revision uint64, err error) {
	ctx, span := startSQLSpan(ctx, "select", "agents")
	defer func() { endSQLSpan(span, err) }()

	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, user_id, instructions, created_at, updated_at, revision FROM agents WHERE id=?", agentID)
	a, revision, err = scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, domain.ErrAgentNotFound
	}
	if err != nil {
		return nil, 0, domain.NewInternalError("failed to retrieve agent from store", err)
	}
	return a, revision, nil
}

func (r *SQLiteAgentRepository) Create(ctx context.Context, a *models.Agent) (err error) {
	ctx, span := startSQLSpan(ctx, "insert", "agents")
	defer func() { endSQLSpan(span, err) }()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, user_id, instructions, created_at, updated_at, revision)
		VALUES (?, ?, ?, ?, ?, ?, 1)`,
		a.ID, a.Name, a.UserID, a.Instructions, formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if isUniqueViolation(err) {
		return domain.NewConflictError("agent already exists", err)
	}
	if err != nil {
		return domain.NewInternalError("failed to create agent in store", err)
	}
	return nil
}

func (r *SQLiteAgentRepository) Update(ctx context.Context, a *models.Agent, revision uint64) (err error) {
	ctx, span := startSQLSpan(ctx, "update", "agents")
	defer func() { endSQLSpan(span, err) }()

	res, err := r.db.ExecContext(ctx, `
		UPDATE agents SET name=?, user_id=?, instructions=?, updated_at=?, revision=revision+1
		WHERE id=? AND revision=?`,
		a.Name, a.UserID, a.Instructions, formatTime(a.UpdatedAt), a.ID, revision)
	if err != nil {
		return domain.NewInternalError("failed to update agent in store", err)
	}
	return casResult(ctx, r.db, res, "agents", a.ID, domain.ErrAgentNotFound)
}

func (r *SQLiteAgentRepository) Delete(ctx context.Context, agentID string, revision uint64) (err error) {
	ctx, span := startSQLSpan(ctx, "delete", "agents")
	defer func() { endSQLSpan(span, err) }()

	res, err := r.db.ExecContext(ctx, "DELETE FROM agents WHERE id=? AND revision=?", agentID, revision)
	if err != nil {
		return domain.NewInternalError("failed to delete agent from store", err)
	}
	return casResult(ctx, r.db, res, "agents", agentID, domain.ErrAgentNotFound)
}

func (r *SQLiteAgentRepository) List(ctx context.Context, filter models.AgentFilter) (agents []*models.Agent, err error) {
	ctx, span := startSQLSpan(ctx, "select", "agents")
	defer func() { endSQLSpan(span, err) }()

	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "user_id=?")
		args = append(args, filter.UserID)
	}
	if filter.Search != "" {
		where = append(where, `lower(name) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.Search))
	}

	query := "SELECT id, name, user_id, instructions, created_at, updated_at, revision FROM agents"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to list agents", err)
	}
	defer rows.Close()

	agents = []*models.Agent{}
	for rows.Next() {
		a, _, err := scanAgent(rows)
		if err != nil {
			return nil, domain.NewInternalError("failed to read agent row", err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewInternalError("failed to list agents", err)
	}
	return agents, nil
}

// SQLiteUserRepository implements domain.UserRepository on sqlite.
type SQLiteUserRepository struct {
	db *sql.DB
}

func (r *SQLiteUserRepository) IsReady() bool {
	return r.db != nil
}

func (r *SQLiteUserRepository) Get(ctx context.Context, userID string) (u *models.User, err error) {
	ctx, span := startSQLSpan(ctx, "select", "users")
	defer func() { endSQLSpan(span, err) }()

	var (
		user                 models.User
		createdAt, updatedAt string
	)
	err = r.db.QueryRowContext(ctx,
		"SELECT id, name, email, image, created_at, updated_at FROM users WHERE id=?", userID).
		Scan(&user.ID, &user.Name, &user.Email, &user.Image, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("user not found")
	}
	if err != nil {
		return nil, domain.NewInternalError("failed to retrieve user from store", err)
	}
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, domain.NewInternalError("invalid user row", err)
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, domain.NewInternalError("invalid user row", err)
	}
	return &user, nil
}

// Upsert inserts the profile or refreshes it, keeping the creation time.
func (r *SQLiteUserRepository) Upsert(ctx context.Context, u *models.User) (err error) {
	ctx, span := startSQLSpan(ctx, "upsert", "users")
	defer func() { endSQLSpan(span, err) }()

	if u == nil || u.ID == "" {
		return domain.NewValidationError("user id is required")
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, image, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email,
			image=excluded.image, updated_at=excluded.updated_at`,
		u.ID, u.Name, u.Email, u.Image, formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if err != nil {
		return domain.NewInternalError("failed to store user", err)
	}
	return nil
}
