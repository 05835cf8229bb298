// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is coachctl, the operator CLI of the coach service. It queues
// meeting jobs, runs sweeps on demand and mints provider tokens.
package main

import (
	"log/slog"
	"os"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/config"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/utils"
)

func main() {
	// Logs go to stderr so that command output stays pipeable.
	level := logging.ParseLevel(utils.CoalesceString(os.Getenv("LOG_LEVEL"), "warn"))
	slog.SetDefault(slog.New(logging.NewHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	deps := &dependencies{
		load: config.Load,
		open: openRuntime,
		out:  os.Stdout,
		in:   os.Stdin,
	}
	if err := newRootCmd(deps).Execute(); err != nil {
		os.Exit(1)
	}
}
