// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Constants for the HTTP request headers
const (
	// AuthorizationHeader is the header name for the authorization
	AuthorizationHeader string = "authorization"

	// RequestIDHeader is the header name for the request ID
	RequestIDHeader string = "X-REQUEST-ID"

	// SignatureHeader carries the provider's webhook body signature.
	SignatureHeader string = "x-signature"

	// APIKeyHeader carries the provider's api key on webhook deliveries.
	APIKeyHeader string = "x-api-key"
)

// WebhookPath is the provider webhook route. The raw body of requests on this
// path is captured for signature verification.
const WebhookPath = "/api/webhook"

// contextRequestID is the type for the request ID context key
type contextRequestID string

// RequestIDContextID is the context ID for the request ID
const RequestIDContextID contextRequestID = "X-REQUEST-ID"

// contextAuthorization is the type for the authorization context key
type contextAuthorization string

// AuthorizationContextID is the context ID for the authorization
const AuthorizationContextID contextAuthorization = "authorization"

// contextPrincipal is the type for the principal context key
type contextPrincipal string

// PrincipalContextID is the context ID for the authenticated user id
const PrincipalContextID contextPrincipal = "principal"

// contextRawBody is the type for the raw webhook body context key
type contextRawBody string

// RawBodyContextID is the context ID for the captured webhook body
const RawBodyContextID contextRawBody = "raw-body"
