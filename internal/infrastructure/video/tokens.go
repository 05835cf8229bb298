// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package video

import (
	"fmt"
	"time"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain/models"
	"golang.org/x/oauth2"
	jose "gopkg.in/go-jose/go-jose.v2"
	"gopkg.in/go-jose/go-jose.v2/jwt"
)

const (
	// serverTokenTTL is the lifetime of server-side tokens. They are cached
	// and re-signed shortly before expiry.
	serverTokenTTL = time.Hour
	// clockSkew backdates iat so that tokens are accepted by servers whose
	// clock runs slightly behind.
	clockSkew = 60 * time.Second
)

type serverClaims struct {
	Server bool `json:"server"`
}

type userClaims struct {
	UserID string `json:"user_id"`
}

// TokenIssuer signs HS256 tokens with the provider api secret.
type TokenIssuer struct {
	signer jose.Signer
	err    error
	now    func() time.Time
}

// NewTokenIssuer creates an issuer for secret. A signer construction error
// is reported by every signing call.
func NewTokenIssuer(secret string) *TokenIssuer {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte(secret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	return &TokenIssuer{signer: signer, err: err, now: time.Now}
}

// ServerToken signs a token for server-side API calls.
func (t *TokenIssuer) ServerToken() (string, time.Time, error) {
	if t.err != nil {
		return "", time.Time{}, t.err
	}
	now := t.now()
	expiry := now.Add(serverTokenTTL)
	token, err := jwt.Signed(t.signer).
		Claims(serverClaims{Server: true}).
		Claims(jwt.Claims{
			IssuedAt: jwt.NewNumericDate(now.Add(-clockSkew)),
			Expiry:   jwt.NewNumericDate(expiry),
		}).
		CompactSerialize()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign server token: %w", err)
	}
	return token, expiry, nil
}

// UserToken signs a token that lets userID join calls for ttl.
func (t *TokenIssuer) UserToken(userID string, ttl time.Duration) (*models.VideoToken, error) {
	if t.err != nil {
		return nil, t.err
	}
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	now := t.now()
	expiry := now.Add(ttl)
	token, err := jwt.Signed(t.signer).
		Claims(userClaims{UserID: userID}).
		Claims(jwt.Claims{
			IssuedAt: jwt.NewNumericDate(now.Add(-clockSkew)),
			Expiry:   jwt.NewNumericDate(expiry),
		}).
		CompactSerialize()
	if err != nil {
		return nil, fmt.Errorf("sign user token: %w", err)
	}
	return &models.VideoToken{Token: token, UserID: userID, ExpiresAt: expiry.Unix()}, nil
}

// ServerTokenSource adapts ServerToken to oauth2.TokenSource so that
// oauth2.ReuseTokenSource can cache it until shortly before expiry.
func (t *TokenIssuer) ServerTokenSource() oauth2.TokenSource {
	return serverTokenSource{issuer: t}
}

type serverTokenSource struct {
	issuer *TokenIssuer
}

func (s serverTokenSource) Token() (*oauth2.Token, error) {
	token, expiry, err := s.issuer.ServerToken()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token, Expiry: expiry}, nil
}
