package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yapweiyih/auth-agent/internal/logger"
	"github.com/yapweiyih/auth-agent/internal/models"
)

// State of the token decision chain, mostly for logging and tests
type State int

const (
	StateNoCache State = iota
	StateCachedValid
	StateCachedExpiredWithRefresh
	StateCachedExpiredNoRefresh
	StateReauthorizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNoCache:
		return "no_cache"
	case StateCachedValid:
		return "cached_valid"
	case StateCachedExpiredWithRefresh:
		return "cached_expired_with_refresh"
	case StateCachedExpiredNoRefresh:
		return "cached_expired_no_refresh"
	case StateReauthorizing:
		return "reauthorizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TokenCache persists token records between runs
// Load has to return (nil, nil) when no record exists yet
type TokenCache interface {
	Load() (*models.TokenRecord, error)
	Save(rec models.TokenRecord) error
}

// CodeAcquirer runs the interactive part of the flow
// Has to return apperrors.ErrAuthorizationTimeout when the user never finishes
type CodeAcquirer interface {
	AcquireCode(ctx context.Context) (string, error)
}

// TokenExchanger talks to the provider token endpoint
// Non-2xx answers have to be returned as *TokenExchangeError
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (models.TokenRecord, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenRecord, error)
}

// Orchestrator decides on every call whether to reuse the cached token,
// refresh it, or start a fresh interactive authorization. The chain is strict
// fail-forward: every expired or invalid state degrades toward interactive
// re-authorization exactly once per call, never in a loop.
type Orchestrator struct {
	cache     TokenCache
	exchanger TokenExchanger
	initiator CodeAcquirer
	logger    logger.Logger
	now       func() time.Time
}

func NewOrchestrator(cache TokenCache, exchanger TokenExchanger, initiator CodeAcquirer, l logger.Logger) (*Orchestrator, error) {
	if cache == nil || exchanger == nil || initiator == nil {
		return nil, errors.New("cache, exchanger and initiator must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Orchestrator{
		cache:     cache,
		exchanger: exchanger,
		initiator: initiator,
		logger:    l,
		now:       time.Now,
	}, nil
}

// AccessToken returns a valid access token, refreshing or re-authorizing as
// needed. Errors surface only from the final interactive path: a failed
// refresh silently falls back to re-authorization.
func (o *Orchestrator) AccessToken(ctx context.Context) (string, error) {
	state, rec := o.classify()

	switch state {
	case StateCachedValid:
		o.logger.Debug("cached token still valid", "expires_at", rec.ExpirationTime)
		return rec.AccessToken, nil

	case StateCachedExpiredWithRefresh:
		o.logger.Info("access token expired, refreshing")

		refreshed, err := o.exchanger.Refresh(ctx, rec.RefreshToken)
		if err == nil {
			if err := o.cache.Save(refreshed); err != nil {
				return "", err
			}
			return refreshed.AccessToken, nil
		}

		var exchangeErr *TokenExchangeError
		if !errors.As(err, &exchangeErr) {
			// Transport-level trouble, not a rejected grant: surface it
			// instead of bothering the user with a browser window
			return "", fmt.Errorf("token refresh failed: %w", err)
		}
		o.logger.Warn("refresh token invalid or expired, re-authorizing",
			"status_code", exchangeErr.StatusCode,
		)

	case StateCachedExpiredNoRefresh:
		o.logger.Info("cached token expired and has no refresh token")

	case StateNoCache:
		o.logger.Info("no cached token found")
	}

	return o.reauthorize(ctx)
}

// classify loads the cache and maps it onto the decision states. An unreadable
// cache is logged and treated like an absent one so the flow can recover by
// re-authorizing instead of wedging on a corrupt file.
func (o *Orchestrator) classify() (State, *models.TokenRecord) {
	rec, err := o.cache.Load()
	if err != nil {
		o.logger.Warn("token cache unreadable, ignoring it", "error", err)
		return StateNoCache, nil
	}

	// A record without an access token must never reach CACHED_VALID, the
	// caller would get an empty credential back as if it were usable
	if rec != nil && rec.AccessToken == "" {
		o.logger.Warn("cached record has no access token, ignoring it")
		return StateNoCache, nil
	}

	switch {
	case rec == nil:
		return StateNoCache, nil
	case !rec.Expired(o.now()):
		return StateCachedValid, rec
	case rec.HasRefreshToken():
		return StateCachedExpiredWithRefresh, rec
	default:
		return StateCachedExpiredNoRefresh, rec
	}
}

// reauthorize runs the interactive flow once. Failures here are fatal for the
// call, there is no further fallback.
func (o *Orchestrator) reauthorize(ctx context.Context) (string, error) {
	o.logger.Info("starting interactive authorization")

	code, err := o.initiator.AcquireCode(ctx)
	if err != nil {
		return "", err
	}

	rec, err := o.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("code exchange failed: %w", err)
	}

	if err := o.cache.Save(rec); err != nil {
		return "", err
	}

	o.logger.Info("authorization complete", "expires_at", rec.ExpirationTime)
	return rec.AccessToken, nil
}
