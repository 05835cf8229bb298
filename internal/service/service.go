// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
)

type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// CompletionFallbackDelay is how long after a participant leaves the
	// completion job runs.
	CompletionFallbackDelay time.Duration
	// TranscriptRecheckDelay is how long after a recording arrives without a
	// transcript the provider is asked again.
	TranscriptRecheckDelay time.Duration
	// SweepStuckAfter is how long a meeting may stay in processing before
	// the sweeper completes it.
	SweepStuckAfter time.Duration
	// VideoTokenTTL is the lifetime of tokens for joining calls.
	VideoTokenTTL time.Duration
	// Workers bounds lookups fanned out by a single operation.
	Workers int
}

// DefaultServiceConfig returns the production defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		CompletionFallbackDelay: constants.DefaultCompletionFallbackDelay,
		TranscriptRecheckDelay:  constants.DefaultTranscriptRecheckDelay,
		SweepStuckAfter:         constants.DefaultSweepStuckAfter,
		VideoTokenTTL:           constants.VideoTokenTTL,
		Workers:                 constants.DefaultJobWorkers,
	}
}

// withDefaults fills zero values from DefaultServiceConfig.
func (c ServiceConfig) withDefaults() ServiceConfig {
	d := DefaultServiceConfig()
	if c.CompletionFallbackDelay <= 0 {
		c.CompletionFallbackDelay = d.CompletionFallbackDelay
	}
	if c.TranscriptRecheckDelay <= 0 {
		c.TranscriptRecheckDelay = d.TranscriptRecheckDelay
	}
	if c.SweepStuckAfter <= 0 {
		c.SweepStuckAfter = d.SweepStuckAfter
	}
	if c.VideoTokenTTL <= 0 {
		c.VideoTokenTTL = d.VideoTokenTTL
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	return c
}
