// Package auth provides credential plumbing for the outbound API client
// and request throttling for the local HTTP surface.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"flowsync/pkg/errors"
)

// TokenSource supplies the bearer token attached to outbound requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token, useful for tests and service
// keys that do not expire.
type StaticTokenSource struct {
	token string
}

func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	if s.token == "" {
		return "", errors.NewAuthError("no credentials configured")
	}
	return s.token, nil
}

// RefreshableTokenSource holds a token that may be replaced after a
// recovery flow. Reads and writes are safe from any goroutine.
type RefreshableTokenSource struct {
	mu    sync.RWMutex
	token string
}

func NewRefreshableTokenSource(initial string) *RefreshableTokenSource {
	return &RefreshableTokenSource{token: initial}
}

func (s *RefreshableTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", errors.NewAuthError("no credentials configured")
	}
	if expired, err := TokenExpired(s.token); err == nil && expired {
		return "", errors.NewAuthError("credentials expired")
	}
	return s.token, nil
}

// SetToken installs a fresh token.
func (s *RefreshableTokenSource) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// TokenExpired inspects a JWT's exp claim without verifying the
// signature. Verification belongs to the service; the client only needs
// to know whether sending the token is pointless.
func TokenExpired(token string) (bool, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, err
	}
	return exp.Before(time.Now()), nil
}
