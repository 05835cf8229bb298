// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
)

// validatable is implemented by every job payload.
type validatable interface {
	Validate() error
}

// enqueue validates payload and queues it.
func enqueue(cmd *cobra.Command, deps *dependencies, name string, payload validatable, delay time.Duration) error {
	if err := payload.Validate(); err != nil {
		return err
	}
	return deps.withRuntime(cmd.Context(), func(rt *runtime) error {
		jobID, err := rt.jobs.Schedule(cmd.Context(), name, payload, delay)
		if err != nil {
			return fmt.Errorf("queueing %s: %w", name, err)
		}
		fmt.Fprintf(deps.out, "queued %s job %s\n", name, jobID)
		return nil
	})
}

func newCompleteCmd(deps *dependencies) *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "complete <meeting-id>",
		Short: "Queue the completion job for a meeting",
		Long:  "Queue meetings/complete. A meeting still in processing when the job runs is finalized with a fallback summary.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return enqueue(cmd, deps, models.JobMeetingsComplete, models.CompleteMeetingPayload{MeetingID: args[0]}, delay)
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", 0, "run the job after this delay")
	return cmd
}

func newProcessCmd(deps *dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <meeting-id> <transcript-url>",
		Short: "Queue transcript processing for a meeting",
		Long:  "Queue meetings/processing, which fetches the transcript, attaches speakers and stores a summary.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := models.ProcessTranscriptPayload{MeetingID: args[0], TranscriptURL: args[1]}
			return enqueue(cmd, deps, models.JobMeetingsProcessing, payload, 0)
		},
	}
	return cmd
}

func newRecheckCmd(deps *dependencies) *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "recheck <meeting-id>",
		Short: "Ask the video provider for a meeting transcript again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return enqueue(cmd, deps, models.JobMeetingsTranscriptRecheck, models.TranscriptRecheckPayload{MeetingID: args[0]}, delay)
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", 0, "run the job after this delay")
	return cmd
}
