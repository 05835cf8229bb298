// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import (
	"strings"
	"time"
)

// Job queue stream layout.
const (
	// JobStreamName is the JetStream stream holding job envelopes.
	JobStreamName = "COACH_JOBS"

	// JobSubjectPrefix prefixes every job subject. A job named
	// "meetings/complete" is published on lfx.coach.jobs.meetings.complete.
	JobSubjectPrefix = "lfx.coach.jobs."

	// JobConsumerName is the durable consumer shared by all workers.
	JobConsumerName = "coach-job-worker"
)

// JobSubject maps a job name to its stream subject.
func JobSubject(jobName string) string {
	return JobSubjectPrefix + strings.ReplaceAll(jobName, "/", ".")
}

// JobNameFromSubject reverses JobSubject. Names never contain dots.
func JobNameFromSubject(subject string) string {
	name, ok := strings.CutPrefix(subject, JobSubjectPrefix)
	if !ok {
		return ""
	}
	return strings.ReplaceAll(name, ".", "/")
}

// Transcript processing step names, in execution order.
const (
	StepFetchTranscript = "fetch-transcript"
	StepParseTranscript = "parse-transcript"
	StepAddSpeaker      = "add-speaker"
	StepSummarize       = "summarize"
	StepSaveSummary     = "save-summary"
)

// TranscriptJobSteps lists the checkpointed steps of transcript processing.
var TranscriptJobSteps = []string{
	StepFetchTranscript,
	StepParseTranscript,
	StepAddSpeaker,
	StepSummarize,
	StepSaveSummary,
}

// Lifecycle timing defaults.
const (
	DefaultCompletionFallbackDelay = 30 * time.Second
	DefaultTranscriptRecheckDelay  = 60 * time.Second
	DefaultSweepInterval           = time.Minute
	DefaultSweepStuckAfter         = 10 * time.Minute
	DefaultJobMaxDeliver           = 8
	DefaultJobWorkers              = 4

	// BriefMeetingThreshold is the duration under which a meeting without a
	// transcript is reported as too short to transcribe.
	BriefMeetingThreshold = 60 * time.Second

	// VideoTokenTTL is the lifetime of user tokens for joining calls.
	VideoTokenTTL = time.Hour
)
