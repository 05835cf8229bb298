// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"io"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-coach-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
)

// webhookAck acknowledges a provider delivery.
type webhookAck struct {
	Status string `json:"status"`
}

// Webhook receives video provider events. The signature covers the raw
// body captured by the body capture middleware.
func (s *CoachAPI) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, ok := middleware.GetRawBodyFromContext(ctx)
	if !ok {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, middleware.MaxWebhookBodyBytes))
		if err != nil {
			s.handleError(ctx, w, domain.NewValidationError("Failed to read request body", err))
			return
		}
	}

	err := s.webhookService.HandleWebhook(ctx, service.WebhookRequest{
		Body:      body,
		Signature: r.Header.Get(constants.SignatureHeader),
		APIKey:    r.Header.Get(constants.APIKeyHeader),
	})
	if err != nil {
		s.handleError(ctx, w, err)
		return
	}

	s.respond(ctx, w, http.StatusOK, webhookAck{Status: "ok"})
}
