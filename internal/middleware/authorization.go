// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/linuxfoundation/lfx-v2-coach-service/pkg/constants"
)

// AuthorizationMiddleware stores the bearer token of the request in the
// context. Validation happens in the API layer so that unauthenticated routes
// (health checks, provider webhooks) pass through untouched.
func AuthorizationMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(constants.AuthorizationHeader)
			if header != "" {
				ctx := context.WithValue(r.Context(), constants.AuthorizationContextID, header)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerTokenFromContext returns the token stored by AuthorizationMiddleware
// without its "Bearer " scheme prefix.
func BearerTokenFromContext(ctx context.Context) string {
	header, _ := ctx.Value(constants.AuthorizationContextID).(string)
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
