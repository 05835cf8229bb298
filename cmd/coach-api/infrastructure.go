// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/config"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/infrastructure/auth"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/infrastructure/llm"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/infrastructure/transcript"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/infrastructure/video"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
)

const (
	// gracefulShutdownSeconds should be higher than NATS client
	// request timeout, and lower than the pod or job's
	// terminationGracePeriodSeconds.
	gracefulShutdownSeconds = 25

	transcriptFetchTimeout = 30 * time.Second
)

// setupJWTAuth configures JWT authentication for the service
func setupJWTAuth(cfg config.Config) (*auth.JWTAuth, error) {
	jwtAuthConfig := auth.JWTAuthConfig{
		JWKSURL:            cfg.JWT.JWKSURL,
		Audience:           cfg.JWT.Audience,
		MockLocalPrincipal: cfg.JWT.MockLocalPrincipal,
	}
	return auth.NewJWTAuth(jwtAuthConfig)
}

// setupNATS connects to NATS. An unexpected close stops the process through
// done; a close during shutdown releases the wait group.
func setupNATS(ctx context.Context, cfg config.Config, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	gracefulCloseWG.Add(1)
	natsConn, err := messaging.Connect(messaging.ConnectionConfig{
		URL:           cfg.NATS.URL,
		Name:          "lfx-v2-coach-service",
		Timeout:       time.Duration(cfg.NATS.Timeout),
		MaxReconnect:  cfg.NATS.MaxReconnect,
		ReconnectWait: time.Duration(cfg.NATS.ReconnectWait),
		DrainTimeout:  gracefulShutdownSeconds * time.Second,
	}, func() {
		if ctx.Err() != nil {
			// Being here means we are draining the connection as part of a
			// graceful shutdown.
			gracefulCloseWG.Done()
			return
		}
		slog.Error("NATS connection closed unexpectedly", logging.PriorityCritical())
		gracefulCloseWG.Done()
		done <- os.Interrupt
	})
	if err != nil {
		gracefulCloseWG.Done()
		return nil, err
	}
	return natsConn, nil
}

// setupRepositories opens the configured persistence backend.
func setupRepositories(ctx context.Context, cfg config.Config, js jetstream.JetStream) (*store.Repositories, error) {
	if cfg.Store.Backend == config.StoreBackendSQLite {
		slog.With("path", cfg.Store.SQLitePath).Info("using sqlite store")
		return store.OpenSQLiteRepositories(cfg.Store.SQLitePath)
	}

	buckets, err := store.OpenNatsBuckets(ctx, js)
	if err != nil {
		return nil, err
	}
	return store.NewNatsRepositories(buckets)
}

// setupVideo builds the provider client and the webhook verifier.
func setupVideo(cfg config.Config) (*video.Client, *video.WebhookVerifier, error) {
	client, err := video.NewClient(video.Config{
		APIKey:         cfg.Video.APIKey,
		APISecret:      cfg.Video.APISecret,
		BaseURL:        cfg.Video.BaseURL,
		CallType:       cfg.Video.CallType,
		AgentBridgeURL: cfg.Video.AgentBridgeURL,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, video.NewWebhookVerifier(cfg.Video.APIKey, cfg.Video.APISecret), nil
}

// llmClients are the language model collaborators.
type llmClients struct {
	summarizer *llm.OpenAISummarizer
	coach      *llm.OpenAICoach
}

// setupLLM builds the summarizer and the coach over one OpenAI client.
func setupLLM(cfg config.Config) (*llmClients, error) {
	client, err := llm.NewClient(llm.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return &llmClients{
		summarizer: llm.NewOpenAISummarizer(client, cfg.OpenAI.SummaryModel,
			llm.NewTokenizerForModel(cfg.OpenAI.SummaryModel), cfg.OpenAI.MaxTranscriptTokens),
		coach: llm.NewOpenAICoach(client, cfg.OpenAI.CoachModel,
			llm.NewTokenizerForModel(cfg.OpenAI.CoachModel), cfg.OpenAI.MaxTranscriptTokens),
	}, nil
}

// setupTranscriptFetcher builds the transcript artifact downloader.
func setupTranscriptFetcher() *transcript.HTTPFetcher {
	return transcript.NewHTTPFetcher(transcriptFetchTimeout)
}

// gracefulShutdown stops the HTTP server and the background workers, then
// drains NATS. Workers finish first so that in-flight jobs can still settle.
func gracefulShutdown(httpServer *http.Server, natsConn *nats.Conn, repos *store.Repositories, workersWG, gracefulCloseWG *sync.WaitGroup, cancel context.CancelFunc) {
	slog.Info("shutting down")

	// Cancelling the context stops the job consumer and the sweeper, and tells
	// the NATS closed handler that the close is expected.
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
	defer shutdownCancel()

	gracefulCloseWG.Add(1)
	go func() {
		defer gracefulCloseWG.Done()
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.With(logging.ErrKey, err).Error("http shutdown error")
		}
	}()

	workersDone := make(chan struct{})
	go func() {
		workersWG.Wait()
		close(workersDone)
	}()
	select {
	case <-workersDone:
	case <-ctx.Done():
		slog.Warn("background workers did not stop before the shutdown deadline")
	}

	if natsConn != nil && !natsConn.IsClosed() && !natsConn.IsDraining() {
		slog.Info("draining NATS connections")
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
			// Manually call Done since the closed handler won't be called.
			gracefulCloseWG.Done()
		}
	}

	gracefulCloseWG.Wait()

	if err := repos.Close(); err != nil {
		slog.With(logging.ErrKey, err).Error("error closing store")
	}
	slog.Info("graceful shutdown complete")
}
