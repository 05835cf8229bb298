// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the coach service API. It serves the REST API and the
// video provider webhook, and runs the background meeting jobs.
package main

import (
	"context"
	_ "expvar"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/utils"
)

func main() {
	flags := parseFlags("")

	logging.InitStructureLogConfig()

	cfg := loadConfig()
	flags.Port = utils.CoalesceString(flags.Port, cfg.Port)
	cfg.LogSummary()

	otelShutdown, err := utils.SetupOTelSDK(context.Background())
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry")
		os.Exit(1)
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.With(logging.ErrKey, err).Error("error shutting down OpenTelemetry")
		}
	}()

	// Set up JWT validator needed by the authenticated API routes.
	jwtAuth, err := setupJWTAuth(cfg)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up JWT authentication")
		os.Exit(1)
	}

	videoClient, verifier, err := setupVideo(cfg)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up video provider client")
		os.Exit(1)
	}

	llmClients, err := setupLLM(cfg)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up language model client")
		os.Exit(1)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}
	workersWG := sync.WaitGroup{}

	// Setup NATS connection
	natsConn, err := setupNATS(ctx, cfg, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error creating JetStream context")
		return
	}

	if _, err := messaging.EnsureJobStream(ctx, js, time.Duration(cfg.NATS.JobStreamMaxAge)); err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up job stream")
		return
	}

	repos, err := setupRepositories(ctx, cfg, js)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up store")
		return
	}

	// Initialize services
	serviceConfig := service.ServiceConfig{
		CompletionFallbackDelay: time.Duration(cfg.Lifecycle.CompletionFallbackDelay),
		TranscriptRecheckDelay:  time.Duration(cfg.Lifecycle.TranscriptRecheckDelay),
		SweepStuckAfter:         time.Duration(cfg.Lifecycle.SweepStuckAfter),
		Workers:                 cfg.Jobs.Workers,
	}
	jobPublisher := messaging.NewJobPublisher(js)
	fetcher := setupTranscriptFetcher()

	authService := service.NewAuthService(jwtAuth)
	lifecycleService := service.NewLifecycleService(repos.Meetings, jobPublisher)
	agentService := service.NewAgentService(repos.Agents, repos.Meetings)
	meetingService := service.NewMeetingService(
		repos.Meetings,
		repos.Agents,
		repos.Users,
		videoClient,
		fetcher,
		llmClients.coach,
		jobPublisher,
		lifecycleService,
		serviceConfig,
	)
	webhookService := service.NewWebhookService(
		verifier,
		lifecycleService,
		repos.Agents,
		videoClient,
		jobPublisher,
		serviceConfig,
	)
	jobService := service.NewJobService(
		repos.Meetings,
		repos.Agents,
		repos.Users,
		repos.Steps,
		fetcher,
		llmClients.summarizer,
		videoClient,
		jobPublisher,
		lifecycleService,
		serviceConfig,
	)
	sweeper := service.NewSweeper(repos.Meetings, jobPublisher, serviceConfig)

	// Initialize handlers
	jobHandler := handlers.NewJobHandler(jobService)
	jobConsumer := messaging.NewJobConsumer(js, jobHandler, messaging.JobConsumerConfig{
		MaxDeliver: cfg.Jobs.MaxDeliver,
		Workers:    cfg.Jobs.Workers,
	})

	svc := NewCoachAPI(
		authService,
		agentService,
		meetingService,
		webhookService,
		jobService,
		sweeper,
	)

	httpServer := setupHTTPServer(flags, svc, &gracefulCloseWG)

	workersWG.Add(2)
	go func() {
		defer workersWG.Done()
		if err := jobConsumer.Run(ctx); err != nil {
			slog.With(logging.ErrKey, err).Error("job consumer stopped", logging.PriorityCritical())
			done <- os.Interrupt
		}
	}()
	go func() {
		defer workersWG.Done()
		sweeper.Run(ctx, time.Duration(cfg.Lifecycle.SweepInterval))
	}()

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, natsConn, repos, &workersWG, &gracefulCloseWG, cancel)
}
