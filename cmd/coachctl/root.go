// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/config"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
)

const drainTimeout = 10 * time.Second

// runtime is the queue and store a command works against.
type runtime struct {
	jobs     domain.JobScheduler
	meetings domain.MeetingRepository
	close    func()
}

// dependencies are what the commands need from the outside world.
type dependencies struct {
	load func() (config.Config, error)
	open func(ctx context.Context, cfg config.Config) (*runtime, error)
	out  io.Writer
	in   io.Reader

	cfg config.Config
}

// withRuntime opens the runtime for the duration of fn.
func (d *dependencies) withRuntime(ctx context.Context, fn func(rt *runtime) error) error {
	if err := d.cfg.ValidateStore(); err != nil {
		return err
	}
	rt, err := d.open(ctx, d.cfg)
	if err != nil {
		return fmt.Errorf("connecting to the job queue: %w", err)
	}
	if rt.close != nil {
		defer rt.close()
	}
	return fn(rt)
}

func newRootCmd(deps *dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "coachctl",
		Short:        "Operate the interview coach service",
		Long:         "coachctl queues meeting jobs, sweeps meetings stuck in processing and mints video provider tokens.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := deps.load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			deps.cfg = cfg
			return nil
		},
	}

	rootCmd.AddCommand(newCompleteCmd(deps))
	rootCmd.AddCommand(newProcessCmd(deps))
	rootCmd.AddCommand(newRecheckCmd(deps))
	rootCmd.AddCommand(newSweepCmd(deps))
	rootCmd.AddCommand(newTokenCmd(deps))
	rootCmd.AddCommand(newSignWebhookCmd(deps))

	return rootCmd
}

// openRuntime connects to NATS and opens the configured store.
func openRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	natsConn, err := messaging.Connect(messaging.ConnectionConfig{
		URL:           cfg.NATS.URL,
		Name:          "coachctl",
		Timeout:       time.Duration(cfg.NATS.Timeout),
		MaxReconnect:  cfg.NATS.MaxReconnect,
		ReconnectWait: time.Duration(cfg.NATS.ReconnectWait),
		DrainTimeout:  drainTimeout,
	}, nil)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		natsConn.Close()
		return nil, err
	}
	if _, err := messaging.EnsureJobStream(ctx, js, time.Duration(cfg.NATS.JobStreamMaxAge)); err != nil {
		natsConn.Close()
		return nil, err
	}

	var repos *store.Repositories
	if cfg.Store.Backend == config.StoreBackendSQLite {
		repos, err = store.OpenSQLiteRepositories(cfg.Store.SQLitePath)
	} else {
		var buckets map[string]store.INatsKeyValue
		buckets, err = store.OpenNatsBuckets(ctx, js)
		if err == nil {
			repos, err = store.NewNatsRepositories(buckets)
		}
	}
	if err != nil {
		natsConn.Close()
		return nil, err
	}

	return &runtime{
		jobs:     messaging.NewJobPublisher(js),
		meetings: repos.Meetings,
		close: func() {
			if err := repos.Close(); err != nil {
				slog.With(logging.ErrKey, err).Warn("error closing store")
			}
			if err := natsConn.Drain(); err != nil {
				slog.With(logging.ErrKey, err).Warn("error draining NATS connection")
			}
		},
	}, nil
}
