// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/service"
)

func newSweepCmd(deps *dependencies) *cobra.Command {
	var (
		stuckAfter time.Duration
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Complete meetings stuck in processing",
		Long:  "Queue a completion job for every meeting that has been in processing longer than --stuck-after.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if stuckAfter <= 0 {
				stuckAfter = time.Duration(deps.cfg.Lifecycle.SweepStuckAfter)
			}
			return deps.withRuntime(cmd.Context(), func(rt *runtime) error {
				sweeper := service.NewSweeper(rt.meetings, rt.jobs, service.ServiceConfig{
					SweepStuckAfter: stuckAfter,
					Workers:         deps.cfg.Jobs.Workers,
				})

				if dryRun {
					stuck, err := sweeper.Stuck(cmd.Context())
					if err != nil {
						return err
					}
					for _, m := range stuck {
						fmt.Fprintf(deps.out, "%s\t%s\t%s\n", m.ID, m.StuckSince().Format(time.RFC3339), m.Name)
					}
					fmt.Fprintf(deps.out, "%d stuck meetings\n", len(stuck))
					return nil
				}

				queued, err := sweeper.Sweep(cmd.Context())
				fmt.Fprintf(deps.out, "queued %d completion jobs\n", queued)
				return err
			})
		},
	}
	cmd.Flags().DurationVar(&stuckAfter, "stuck-after", 0, "age after which a processing meeting counts as stuck (defaults to the configured value)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list stuck meetings without queueing jobs")
	return cmd
}
