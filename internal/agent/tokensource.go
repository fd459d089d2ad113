package agent

import (
	"context"
	"errors"

	"github.com/yapweiyih/auth-agent/internal/apperrors"
	"github.com/yapweiyih/auth-agent/internal/logger"
)

// TokenSource yields a usable delegated access token
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token, typically one injected through the
// environment during development
type StaticTokenSource string

func (s StaticTokenSource) AccessToken(context.Context) (string, error) {
	if s == "" {
		return "", apperrors.ErrTokenNotFound
	}
	return string(s), nil
}

// StateTokenSource reads the token the runtime placed in the session state
type StateTokenSource struct {
	State  map[string]any
	AuthID string
}

func (s StateTokenSource) AccessToken(context.Context) (string, error) {
	token, ok := TokenFromState(s.State, s.AuthID)
	if !ok {
		return "", apperrors.ErrTokenNotFound
	}
	return token, nil
}

// ChainTokenSource tries each source in order and settles on the first one
// that produces a token. ErrTokenNotFound moves on to the next source, any
// other error is final.
type ChainTokenSource struct {
	Sources []TokenSource
	Logger  logger.Logger
}

func (c ChainTokenSource) AccessToken(ctx context.Context) (string, error) {
	log := c.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	for _, source := range c.Sources {
		token, err := source.AccessToken(ctx)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, apperrors.ErrTokenNotFound) {
			return "", err
		}
		log.Debug("token source empty, trying next")
	}
	return "", apperrors.ErrTokenNotFound
}
