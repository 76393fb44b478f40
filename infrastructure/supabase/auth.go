// Package supabase adapts Supabase auth to the session recovery port.
package supabase

import (
	"context"
	"sync"

	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"flowsync/pkg/auth"
	"flowsync/pkg/errors"
)

// SessionRecovery re-establishes credentials through the Supabase auth
// service. On a recovery request it refreshes the access token and
// installs the new one in the shared token source.
type SessionRecovery struct {
	client *supa.Client
	tokens *auth.RefreshableTokenSource
	logger *zap.Logger

	mu           sync.Mutex
	refreshToken string
}

func NewSessionRecovery(projectURL, anonKey, refreshToken string, tokens *auth.RefreshableTokenSource, logger *zap.Logger) (*SessionRecovery, error) {
	client, err := supa.NewClient(projectURL, anonKey, nil)
	if err != nil {
		return nil, errors.NewAuthError("failed to initialize auth client").WithCause(err)
	}
	return &SessionRecovery{
		client:       client,
		tokens:       tokens,
		logger:       logger,
		refreshToken: refreshToken,
	}, nil
}

// Recover implements ports.SessionRecoverer
func (r *SessionRecovery) Recover(ctx context.Context) error {
	r.mu.Lock()
	refreshToken := r.refreshToken
	r.mu.Unlock()

	if refreshToken == "" {
		return errors.NewAuthError("no refresh token available, sign-in required")
	}

	resp, err := r.client.Auth.RefreshToken(refreshToken)
	if err != nil {
		return errors.NewAuthError("token refresh rejected").WithCause(err)
	}

	r.mu.Lock()
	r.refreshToken = resp.RefreshToken
	r.mu.Unlock()
	r.tokens.SetToken(resp.AccessToken)

	r.logger.Info("session recovered")
	return nil
}

// Validate checks that the given token still identifies a user.
func (r *SessionRecovery) Validate(ctx context.Context, token string) error {
	if _, err := r.client.Auth.WithToken(token).GetUser(); err != nil {
		return errors.NewAuthError("token no longer valid").WithCause(err)
	}
	return nil
}
