// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/config"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/utils"
)

// flags are the command line flags for the coach service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// parseFlags parses command line flags for the coach service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port (defaults to the configured port)")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  utils.CoalesceString(*port, defaultPort),
		Bind:  *bind,
	}
}

// loadConfig reads the file and environment settings and exits when the
// service cannot run with them.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error loading configuration")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.With(logging.ErrKey, err).Error("invalid configuration")
		os.Exit(1)
	}
	return cfg
}
