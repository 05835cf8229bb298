// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package auth validates the bearer tokens issued by the platform gateway.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/logging"
)

const (
	defaultJWKSURL   = "http://heimdall:4457/.well-known/jwks"
	defaultAudience  = "lfx-v2-coach-service"
	defaultIssuer    = "heimdall"
	jwksCacheTTL     = 5 * time.Minute
	allowedClockSkew = 5 * time.Second
)

// JWTAuthConfig configures bearer token validation.
type JWTAuthConfig struct {
	// JWKSURL is where the signing keys are published.
	JWKSURL string
	// Audience is the expected aud claim.
	Audience string
	// Issuer is the expected iss claim.
	Issuer string
	// MockLocalPrincipal, when set, skips validation and authenticates every
	// request as this principal. Local development only.
	MockLocalPrincipal string
}

// HeimdallClaims are the custom claims carried by gateway tokens.
type HeimdallClaims struct {
	Principal string `json:"principal"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Picture   string `json:"picture,omitempty"`
}

// Validate implements validator.CustomClaims.
func (c *HeimdallClaims) Validate(_ context.Context) error {
	if c.Principal == "" {
		return errors.New("principal must be provided")
	}
	return nil
}

// Principal is the authenticated caller.
type Principal struct {
	ID    string
	Name  string
	Email string
	Image string
}

// IJWTAuth parses bearer tokens into principals.
type IJWTAuth interface {
	ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error)
	ParseIdentity(ctx context.Context, token string, logger *slog.Logger) (*Principal, error)
}

// JWTAuth validates gateway tokens against a cached JWKS.
type JWTAuth struct {
	validator *validator.Validator
	config    JWTAuthConfig
}

// NewJWTAuth creates a JWTAuth. Empty settings take the gateway defaults.
func NewJWTAuth(config JWTAuthConfig) (*JWTAuth, error) {
	if config.JWKSURL == "" {
		config.JWKSURL = defaultJWKSURL
	}
	if config.Audience == "" {
		config.Audience = defaultAudience
	}
	if config.Issuer == "" {
		config.Issuer = defaultIssuer
	}

	jwksURL, err := url.Parse(config.JWKSURL)
	if err != nil {
		return nil, fmt.Errorf("invalid JWKS URL: %w", err)
	}
	issuerURL, err := url.Parse(config.Issuer)
	if err != nil {
		return nil, fmt.Errorf("invalid issuer: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, jwksCacheTTL, jwks.WithCustomJWKSURI(jwksURL))

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.PS256,
		config.Issuer,
		[]string{config.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &HeimdallClaims{}
		}),
		validator.WithAllowedClockSkew(allowedClockSkew),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up JWT validator: %w", err)
	}

	return &JWTAuth{validator: jwtValidator, config: config}, nil
}

// ParsePrincipal validates token and returns the principal claim.
func (j *JWTAuth) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error) {
	identity, err := j.ParseIdentity(ctx, token, logger)
	if err != nil {
		return "", err
	}
	return identity.ID, nil
}

// ParseIdentity validates token and returns the caller's identity claims.
func (j *JWTAuth) ParseIdentity(ctx context.Context, token string, logger *slog.Logger) (*Principal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if j.config.MockLocalPrincipal != "" {
		logger.WarnContext(ctx, "JWT validation disabled, using mock principal", "principal", j.config.MockLocalPrincipal)
		return &Principal{ID: j.config.MockLocalPrincipal, Name: j.config.MockLocalPrincipal}, nil
	}
	if j.validator == nil {
		return nil, errors.New("JWT validator is not set up")
	}

	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	parsed, err := j.validator.ValidateToken(ctx, token)
	if err != nil {
		logger.WarnContext(ctx, "token validation failed", logging.ErrKey, err)
		return nil, err
	}

	validated, ok := parsed.(*validator.ValidatedClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	claims, ok := validated.CustomClaims.(*HeimdallClaims)
	if !ok || claims == nil {
		return nil, errors.New("missing custom claims")
	}

	return &Principal{
		ID:    claims.Principal,
		Name:  claims.Name,
		Email: claims.Email,
		Image: claims.Picture,
	}, nil
}
