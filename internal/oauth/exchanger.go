package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yapweiyih/auth-agent/internal/logger"
	"github.com/yapweiyih/auth-agent/internal/models"
)

const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
)

// Token endpoint responses can be large-ish JSON but never unbounded
const maxTokenResponseBytes = 1 << 20

// TokenExchangeError is a non-2xx answer from the token endpoint. Callers
// check for it with errors.As to decide between falling back to a fresh
// interactive flow (refresh path) and aborting (fresh exchange path).
type TokenExchangeError struct {
	Grant      string
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token endpoint rejected %s grant: status %d, body: %s", e.Grant, e.StatusCode, e.Body)
}

// Exchanger turns authorization codes and refresh tokens into token records
// via single synchronous POSTs to the provider token endpoint
type Exchanger struct {
	cfg    Config
	client *http.Client
	logger logger.Logger
	now    func() time.Time
}

func NewExchanger(cfg Config, l logger.Logger) *Exchanger {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Exchanger{
		cfg:    cfg,
		client: &http.Client{},
		logger: l,
		now:    time.Now,
	}
}

// ExchangeCode redeems an authorization code for a token record
func (e *Exchanger) ExchangeCode(ctx context.Context, code string) (models.TokenRecord, error) {
	form := url.Values{
		"grant_type":    {GrantAuthorizationCode},
		"client_id":     {e.cfg.ClientID},
		"client_secret": {e.cfg.ClientSecret},
		"redirect_uri":  {e.cfg.RedirectURL},
		"code":          {code},
	}

	return e.post(ctx, GrantAuthorizationCode, form)
}

// Refresh obtains a fresh token record using a refresh token
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (models.TokenRecord, error) {
	form := url.Values{
		"grant_type":    {GrantRefreshToken},
		"client_id":     {e.cfg.ClientID},
		"client_secret": {e.cfg.ClientSecret},
		"refresh_token": {refreshToken},
	}

	return e.post(ctx, GrantRefreshToken, form)
}

func (e *Exchanger) post(ctx context.Context, grant string, form url.Values) (models.TokenRecord, error) {
	var rec models.TokenRecord

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return rec, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return rec, fmt.Errorf("failed to call token endpoint: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return rec, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		e.logger.Warn("token endpoint returned error",
			"grant", grant,
			"status_code", resp.StatusCode,
		)
		return rec, &TokenExchangeError{Grant: grant, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return rec, fmt.Errorf("failed to decode token response: %w", err)
	}

	rec, err = models.NewTokenRecord(fields, e.now())
	if err != nil {
		return rec, fmt.Errorf("unusable token response: %w", err)
	}

	e.logger.Debug("token obtained",
		"grant", grant,
		"has_refresh_token", rec.HasRefreshToken(),
		"expires_in", rec.ExpiresIn,
	)
	return rec, nil
}
