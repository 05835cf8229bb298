// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package config loads the service settings from an optional TOML file and
// the environment. Environment variables win over file values.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/utils"
)

// FileEnv names the environment variable pointing at the TOML file.
const FileEnv = "COACH_CONFIG_FILE"

// Store backends.
const (
	StoreBackendNATS   = "nats"
	StoreBackendSQLite = "sqlite"
)

// Duration is a time.Duration written as a Go duration string ("30s") in
// the TOML file.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// NATS holds the connection settings for the KV buckets and the job stream.
type NATS struct {
	URL             string   `toml:"url"`
	Timeout         Duration `toml:"timeout"`
	MaxReconnect    int      `toml:"max_reconnect"`
	ReconnectWait   Duration `toml:"reconnect_wait"`
	JobStreamMaxAge Duration `toml:"job_stream_max_age"`
}

// Store selects the persistence backend.
type Store struct {
	Backend    string `toml:"backend"`
	SQLitePath string `toml:"sqlite_path"`
}

// Video holds the provider credentials and endpoints.
type Video struct {
	APIKey         string `toml:"api_key"`
	APISecret      string `toml:"api_secret"`
	BaseURL        string `toml:"base_url"`
	CallType       string `toml:"call_type"`
	AgentBridgeURL string `toml:"agent_bridge_url"`
}

// OpenAI holds the language model settings.
type OpenAI struct {
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	SummaryModel        string `toml:"summary_model"`
	CoachModel          string `toml:"coach_model"`
	MaxTranscriptTokens int    `toml:"max_transcript_tokens"`
}

// Lifecycle holds the meeting lifecycle timings.
type Lifecycle struct {
	CompletionFallbackDelay Duration `toml:"completion_fallback_delay"`
	TranscriptRecheckDelay  Duration `toml:"transcript_recheck_delay"`
	SweepInterval           Duration `toml:"sweep_interval"`
	SweepStuckAfter         Duration `toml:"sweep_stuck_after"`
}

// Jobs tunes the job consumer.
type Jobs struct {
	MaxDeliver int `toml:"max_deliver"`
	Workers    int `toml:"workers"`
}

// JWT holds the bearer token validation settings.
type JWT struct {
	JWKSURL            string `toml:"jwks_url"`
	Audience           string `toml:"audience"`
	MockLocalPrincipal string `toml:"mock_local_principal"`
}

// Config is the complete service configuration.
type Config struct {
	Port      string    `toml:"port"`
	NATS      NATS      `toml:"nats"`
	Store     Store     `toml:"store"`
	Video     Video     `toml:"video"`
	OpenAI    OpenAI    `toml:"openai"`
	Lifecycle Lifecycle `toml:"lifecycle"`
	Jobs      Jobs      `toml:"jobs"`
	JWT       JWT       `toml:"jwt"`
}

// Default returns the settings used when neither the file nor the
// environment sets a value.
func Default() Config {
	return Config{
		Port: "8080",
		NATS: NATS{
			URL:             "nats://localhost:4222",
			Timeout:         Duration(10 * time.Second),
			MaxReconnect:    3,
			ReconnectWait:   Duration(2 * time.Second),
			JobStreamMaxAge: Duration(7 * 24 * time.Hour),
		},
		Store: Store{
			Backend:    StoreBackendNATS,
			SQLitePath: "data/coach.db",
		},
		Video: Video{
			CallType: "default",
		},
		OpenAI: OpenAI{
			SummaryModel:        "gpt-4o",
			CoachModel:          "gpt-4o-mini",
			MaxTranscriptTokens: 100_000,
		},
		Lifecycle: Lifecycle{
			CompletionFallbackDelay: Duration(constants.DefaultCompletionFallbackDelay),
			TranscriptRecheckDelay:  Duration(constants.DefaultTranscriptRecheckDelay),
			SweepInterval:           Duration(constants.DefaultSweepInterval),
			SweepStuckAfter:         Duration(constants.DefaultSweepStuckAfter),
		},
		Jobs: Jobs{
			MaxDeliver: constants.DefaultJobMaxDeliver,
			Workers:    constants.DefaultJobWorkers,
		},
	}
}

// Load reads the TOML file named by COACH_CONFIG_FILE, if any, and applies
// the environment on top of it.
func Load() (Config, error) {
	return load(os.Getenv(FileEnv), os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	return cfg, nil
}

// envReader collects parse errors so that every bad variable is reported
// at once.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) get(name string) (string, bool) {
	v, ok := r.lookup(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (r *envReader) str(name string, dst *string) {
	if v, ok := r.get(name); ok {
		*dst = v
	}
}

func (r *envReader) integer(name string, dst *int) {
	v, ok := r.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = n
}

func (r *envReader) duration(name string, dst *Duration) {
	v, ok := r.get(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = Duration(d)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	r := &envReader{lookup: lookup}

	r.str("PORT", &cfg.Port)

	r.str("NATS_URL", &cfg.NATS.URL)
	r.duration("NATS_TIMEOUT", &cfg.NATS.Timeout)
	r.integer("NATS_MAX_RECONNECT", &cfg.NATS.MaxReconnect)
	r.duration("NATS_RECONNECT_WAIT", &cfg.NATS.ReconnectWait)
	r.duration("JOB_STREAM_MAX_AGE", &cfg.NATS.JobStreamMaxAge)

	r.str("STORE_BACKEND", &cfg.Store.Backend)
	r.str("SQLITE_PATH", &cfg.Store.SQLitePath)

	r.str("STREAM_API_KEY", &cfg.Video.APIKey)
	r.str("STREAM_API_SECRET", &cfg.Video.APISecret)
	r.str("STREAM_BASE_URL", &cfg.Video.BaseURL)
	r.str("STREAM_CALL_TYPE", &cfg.Video.CallType)
	r.str("AGENT_BRIDGE_URL", &cfg.Video.AgentBridgeURL)

	r.str("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	r.str("OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	r.str("OPENAI_SUMMARY_MODEL", &cfg.OpenAI.SummaryModel)
	r.str("OPENAI_COACH_MODEL", &cfg.OpenAI.CoachModel)
	r.integer("SUMMARY_MAX_TRANSCRIPT_TOKENS", &cfg.OpenAI.MaxTranscriptTokens)

	r.duration("COMPLETION_FALLBACK_DELAY", &cfg.Lifecycle.CompletionFallbackDelay)
	r.duration("TRANSCRIPT_RECHECK_DELAY", &cfg.Lifecycle.TranscriptRecheckDelay)
	r.duration("SWEEP_INTERVAL", &cfg.Lifecycle.SweepInterval)
	r.duration("SWEEP_STUCK_AFTER", &cfg.Lifecycle.SweepStuckAfter)

	r.integer("JOB_MAX_DELIVER", &cfg.Jobs.MaxDeliver)
	r.integer("JOB_WORKERS", &cfg.Jobs.Workers)

	r.str("JWKS_URL", &cfg.JWT.JWKSURL)
	r.str("JWT_AUDIENCE", &cfg.JWT.Audience)
	r.str("JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL", &cfg.JWT.MockLocalPrincipal)

	return errors.Join(r.errs...)
}

// ValidateStore checks the persistence settings.
func (c Config) ValidateStore() error {
	switch c.Store.Backend {
	case StoreBackendNATS:
		if c.NATS.URL == "" {
			return errors.New("NATS_URL is required")
		}
	case StoreBackendSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite backend")
		}
		if c.NATS.URL == "" {
			return errors.New("NATS_URL is required for the job queue")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	return nil
}

// ValidateVideo checks the provider credentials. Webhooks cannot be verified
// without them.
func (c Config) ValidateVideo() error {
	var errs []error
	if c.Video.APIKey == "" {
		errs = append(errs, errors.New("STREAM_API_KEY is required"))
	}
	if c.Video.APISecret == "" {
		errs = append(errs, errors.New("STREAM_API_SECRET is required"))
	}
	return errors.Join(errs...)
}

// Validate checks everything the API server needs.
func (c Config) Validate() error {
	errs := []error{c.ValidateStore(), c.ValidateVideo()}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.Jobs.MaxDeliver < 1 {
		errs = append(errs, errors.New("JOB_MAX_DELIVER must be at least 1"))
	}
	return errors.Join(errs...)
}

// LogSummary logs the effective settings without secrets.
func (c Config) LogSummary() {
	slog.Info("configuration loaded",
		"port", c.Port,
		"store_backend", c.Store.Backend,
		"nats_url", c.NATS.URL,
		"video_base_url", utils.CoalesceString(c.Video.BaseURL, "default"),
		"video_call_type", c.Video.CallType,
		"agent_bridge", c.Video.AgentBridgeURL != "",
		"summary_model", c.OpenAI.SummaryModel,
		"coach_model", c.OpenAI.CoachModel,
		"completion_fallback_delay", time.Duration(c.Lifecycle.CompletionFallbackDelay).String(),
		"transcript_recheck_delay", time.Duration(c.Lifecycle.TranscriptRecheckDelay).String(),
		"sweep_interval", time.Duration(c.Lifecycle.SweepInterval).String(),
		"sweep_stuck_after", time.Duration(c.Lifecycle.SweepStuckAfter).String(),
		"job_max_deliver", c.Jobs.MaxDeliver,
		"job_workers", c.Jobs.Workers,
		"jwt_mock_principal", c.JWT.MockLocalPrincipal != "",
	)
	if c.JWT.MockLocalPrincipal != "" {
		slog.Warn("JWT validation disabled, all requests use the mock principal", logging.PriorityCritical())
	}
}
