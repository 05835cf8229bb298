// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"
)

// SQLiteMemoryPath opens a private in-memory database.
const SQLiteMemoryPath = ":memory:"

// SQLiteStore is a relational alternative to the NATS KV buckets for local
// development. Every mutable row carries a revision column so that the
// repositories offer the same compare-and-swap semantics as KV revisions.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// ensures the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite db path is empty")
	}
	if dbPath != SQLiteMemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dbPath == SQLiteMemoryPath {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meetings (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		user_id        TEXT NOT NULL,
		agent_id       TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'upcoming',
		started_at     TEXT,
		ended_at       TEXT,
		transcript_url TEXT NOT NULL DEFAULT '',
		recording_url  TEXT NOT NULL DEFAULT '',
		summary        TEXT NOT NULL DEFAULT '',
		transcript     TEXT NOT NULL DEFAULT '',
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		revision       INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS agents (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		user_id      TEXT NOT NULL,
		instructions TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		revision     INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL DEFAULT '',
		image      TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS job_steps (
		run_id     TEXT NOT NULL,
		step       TEXT NOT NULL,
		value      BLOB NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY(run_id, step)
	);

	CREATE INDEX IF NOT EXISTS idx_meetings_user ON meetings(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_meetings_status ON meetings(status);
	CREATE INDEX IF NOT EXISTS idx_agents_user ON agents(user_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Meetings returns the meeting repository backed by this database.
func (s *SQLiteStore) Meetings() *SQLiteMeetingRepository {
	return &SQLiteMeetingRepository{db: s.db}
}

// Agents returns the agent repository backed by this database.
func (s *SQLiteStore) Agents() *SQLiteAgentRepository {
	return &SQLiteAgentRepository{db: s.db}
}

// Users returns the user repository backed by this database.
func (s *SQLiteStore) Users() *SQLiteUserRepository {
	return &SQLiteUserRepository{db: s.db}
}

// Steps returns the job step store backed by this database.
func (s *SQLiteStore) Steps() *SQLiteStepStore {
	return &SQLiteStepStore{db: s.db}
}

func startSQLSpan(ctx context.Context, op, table string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "sqlite."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "sqlite"),
			attribute.String("db.operation", op),
			attribute.String("db.sql.table", table),
		),
	)
}

func endSQLSpan(span trace.Span, err error) {
	if err != nil && domain.GetErrorType(err) != domain.ErrorTypeNotFound {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}

func parseNullTime(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	t, err := parseTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// likePattern escapes s for a LIKE ... ESCAPE '\' substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(s)) + "%"
}

// casResult converts the outcome of a conditional UPDATE/DELETE into the
// domain error the KV repositories return for the same situation.
func casResult(ctx context.Context, db *sql.DB, res sql.Result, table, id string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewInternalError("failed to read affected rows", err)
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+table+" WHERE id=?", id).Scan(&exists)
	if err != nil {
		return domain.NewInternalError("failed to check row existence", err)
	}
	if exists == 0 {
		return notFound
	}
	return domain.NewConflictError(fmt.Sprintf("%s has been modified", strings.TrimSuffix(table, "s")))
}

// SQLiteStepStore keeps msgpack-encoded job step outputs in the job_steps
// table.
type SQLiteStepStore struct {
	db *sql.DB
}

// Load implements domain.StepStore.
func (s *SQLiteStepStore) Load(ctx context.Context, runID, step string, out any) (bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM job_steps WHERE run_id=? AND step=?", runID, step).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, domain.NewInternalError("failed to load job step", err)
	}
	if err := msgpack.Unmarshal(value, out); err != nil {
		return false, nil
	}
	return true, nil
}

// Save implements domain.StepStore.
func (s *SQLiteStepStore) Save(ctx context.Context, runID, step string, value any) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return domain.NewInternalError(fmt.Sprintf("failed to encode job step %s", step), err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO job_steps (run_id, step, value, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO UPDATE SET value=excluded.value, created_at=excluded.created_at`,
		runID, step, data, formatTime(time.Now()))
	if err != nil {
		return domain.NewInternalError(fmt.Sprintf("failed to save job step %s", step), err)
	}
	return nil
}

// Clear implements domain.StepStore.
func (s *SQLiteStepStore) Clear(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM job_steps WHERE run_id=?", runID); err != nil {
		return domain.NewInternalError("failed to clear job steps", err)
	}
	return nil
}
