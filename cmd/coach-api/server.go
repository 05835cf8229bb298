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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	goahttp "goa.design/goa/v3/http"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
)

// route is one mounted endpoint.
type route struct {
	method  string
	pattern string
	handler http.HandlerFunc
}

// routes lists the endpoints of the service.
func (s *CoachAPI) routes() []route {
	return []route{
		{http.MethodGet, "/livez", s.Livez},
		{http.MethodGet, "/readyz", s.Readyz},

		{http.MethodPost, constants.WebhookPath, s.Webhook},

		{http.MethodPost, "/api/agents", s.authenticated(s.CreateAgent)},
		{http.MethodGet, "/api/agents", s.authenticated(s.ListAgents)},
		{http.MethodGet, "/api/agents/{id}", s.authenticated(s.GetAgent)},
		{http.MethodPut, "/api/agents/{id}", s.authenticated(s.UpdateAgent)},
		{http.MethodDelete, "/api/agents/{id}", s.authenticated(s.DeleteAgent)},

		{http.MethodPost, "/api/meetings", s.authenticated(s.CreateMeeting)},
		{http.MethodGet, "/api/meetings", s.authenticated(s.ListMeetings)},
		{http.MethodGet, "/api/meetings/{id}", s.authenticated(s.GetMeeting)},
		{http.MethodPut, "/api/meetings/{id}", s.authenticated(s.UpdateMeeting)},
		{http.MethodDelete, "/api/meetings/{id}", s.authenticated(s.DeleteMeeting)},
		{http.MethodGet, "/api/meetings/{id}/transcript", s.authenticated(s.GetTranscript)},
		{http.MethodPost, "/api/meetings/{id}/ask", s.authenticated(s.AskCoach)},
		{http.MethodPost, "/api/meetings/{id}/complete", s.authenticated(s.CompleteMeeting)},
		{http.MethodPost, "/api/meetings/{id}/cancel", s.authenticated(s.CancelMeeting)},

		{http.MethodPost, "/api/video/token", s.authenticated(s.CreateVideoToken)},
	}
}

// withAcceptType records the Accept header for response encoder negotiation.
func withAcceptType(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), goahttp.AcceptTypeKey, r.Header.Get("Accept"))
		h(w, r.WithContext(ctx))
	}
}

// newHandler mounts the routes on a goa muxer and wraps it in the HTTP
// middleware chain.
func newHandler(svc *CoachAPI) http.Handler {
	mux := goahttp.NewMuxer()
	svc.vars = mux.Vars
	for _, rt := range svc.routes() {
		mux.Handle(rt.method, rt.pattern, withAcceptType(rt.handler))
	}

	var handler http.Handler = mux

	// Add HTTP middleware
	// Note: Order matters - RequestIDMiddleware should come first in the chain,
	// so it should be the last middleware added to the handler since it is executed in reverse order.
	handler = middleware.WebhookBodyCaptureMiddleware()(handler)
	handler = middleware.RequestLoggerMiddleware()(handler)
	handler = middleware.RequestIDMiddleware()(handler)
	handler = middleware.AuthorizationMiddleware()(handler)

	return otelhttp.NewHandler(handler, "coach-api")
}

// setupHTTPServer configures and starts the HTTP server
func setupHTTPServer(flags flags, svc *CoachAPI, gracefulCloseWG *sync.WaitGroup) *http.Server {
	// Set up http listener in a goroutine using provided command line parameters.
	var addr string
	if flags.Bind == "*" {
		addr = ":" + flags.Port
	} else {
		addr = flags.Bind + ":" + flags.Port
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           newHandler(svc),
		ReadHeaderTimeout: 3 * time.Second,
	}
	gracefulCloseWG.Add(1)
	go func() {
		defer gracefulCloseWG.Done()
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
	}()

	return httpServer
}
