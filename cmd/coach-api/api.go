// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	goahttp "goa.design/goa/v3/http"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
)

// CoachAPI serves the HTTP surface of the coach service.
type CoachAPI struct {
	authService    *service.AuthService
	agentService   *service.AgentService
	meetingService *service.MeetingService
	webhookService *service.WebhookService
	readiness      []service.Service

	decoder func(*http.Request) goahttp.Decoder
	encoder func(context.Context, http.ResponseWriter) goahttp.Encoder
	vars    func(*http.Request) map[string]string
}

// NewCoachAPI creates a new CoachAPI. Every service also gates /readyz.
func NewCoachAPI(
	authService *service.AuthService,
	agentService *service.AgentService,
	meetingService *service.MeetingService,
	webhookService *service.WebhookService,
	background ...service.Service,
) *CoachAPI {
	readiness := []service.Service{authService, agentService, meetingService, webhookService}
	readiness = append(readiness, background...)
	return &CoachAPI{
		authService:    authService,
		agentService:   agentService,
		meetingService: meetingService,
		webhookService: webhookService,
		readiness:      readiness,
		decoder:        goahttp.RequestDecoder,
		encoder:        goahttp.ResponseEncoder,
	}
}

// ServiceReady reports whether every service is wired.
func (s *CoachAPI) ServiceReady() bool {
	for _, svc := range s.readiness {
		if svc == nil || !svc.ServiceReady() {
			return false
		}
	}
	return true
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// statusForError maps domain error types to HTTP status codes.
func statusForError(err error) int {
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrorTypeNotFound:
		return http.StatusNotFound
	case domain.ErrorTypeConflict:
		return http.StatusConflict
	case domain.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage is the message of the outermost domain error. Errors from
// outside the domain never leak their text.
func clientMessage(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return "Internal server error"
}

// handleError writes err as a JSON error body.
func (s *CoachAPI) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed", logging.ErrKey, err, "status", status)
	} else {
		slog.DebugContext(ctx, "request rejected", logging.ErrKey, err, "status", status)
	}
	s.respond(ctx, w, status, errorResponse{Error: clientMessage(err)})
}

// respond encodes body with the negotiated encoder.
func (s *CoachAPI) respond(ctx context.Context, w http.ResponseWriter, status int, body any) {
	enc := s.encoder(ctx, w)
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := enc.Encode(body); err != nil {
		slog.ErrorContext(ctx, "error encoding response", logging.ErrKey, err)
	}
}

// decodeBody decodes the request body into v.
func (s *CoachAPI) decodeBody(r *http.Request, v any) error {
	if err := s.decoder(r).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("request body is required")
		}
		return domain.NewValidationError("invalid request body", err)
	}
	return nil
}

// pathParam returns a route variable.
func (s *CoachAPI) pathParam(r *http.Request, name string) string {
	if s.vars == nil {
		return ""
	}
	return s.vars(r)[name]
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name+" must be an integer", err)
	}
	return n, nil
}

// pageRequest reads page and pageSize.
func pageRequest(r *http.Request) (models.PageRequest, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return models.PageRequest{}, err
	}
	size, err := queryInt(r, "pageSize")
	if err != nil {
		return models.PageRequest{}, err
	}
	return models.PageRequest{Page: page, PageSize: size}, nil
}

// userHandler handles a request made by an authenticated user.
type userHandler func(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User)

// authenticated resolves the bearer token before calling h.
func (s *CoachAPI) authenticated(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user, err := s.authService.Authenticate(ctx, middleware.BearerTokenFromContext(ctx))
		if err != nil {
			s.handleError(ctx, w, err)
			return
		}
		ctx = context.WithValue(ctx, constants.PrincipalContextID, user.ID)
		ctx = logging.AppendCtx(ctx, slog.String("principal", user.ID))
		h(ctx, w, r.WithContext(ctx), user)
	}
}

// Readyz checks if the service is able to take inbound requests.
func (s *CoachAPI) Readyz(w http.ResponseWriter, r *http.Request) {
	if !s.ServiceReady() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(domain.ErrServiceUnavailable.Error() + "\n"))
		return
	}
	_, _ = w.Write([]byte("OK\n"))
}

// Livez checks if the service is alive.
func (s *CoachAPI) Livez(w http.ResponseWriter, _ *http.Request) {
	// This always returns as long as the service is still running. As this
	// endpoint is expected to be used as a Kubernetes liveness check, this
	// service must likewise self-detect non-recoverable errors and
	// self-terminate.
	_, _ = w.Write([]byte("OK\n"))
}
