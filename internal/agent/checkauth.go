package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/yapweiyih/auth-agent/internal/logger"
)

const defaultTokenInfoURL = "https://www.googleapis.com/oauth2/v3/tokeninfo"

// Authentication statuses reported by CheckAuth
const (
	StatusAuthenticated    = "authenticated"
	StatusNotAuthenticated = "not_authenticated"
	StatusError            = "error"
)

// AuthResult is the tool-call answer for a check_auth request
type AuthResult struct {
	Status   string         `json:"status"`
	UserInfo map[string]any `json:"user_info,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// Checker introspects delegated access tokens against the provider's
// tokeninfo endpoint
type Checker struct {
	client       *http.Client
	tokenInfoURL string
	logger       logger.Logger
}

func NewChecker(l logger.Logger) *Checker {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Checker{
		client:       &http.Client{Timeout: 15 * time.Second},
		tokenInfoURL: defaultTokenInfoURL,
		logger:       l,
	}
}

// CheckAuth resolves the token from the session state and introspects it.
// It never returns a Go error: tool calls answer with a status the model can
// reason about instead.
func (c *Checker) CheckAuth(ctx context.Context, state map[string]any, authID string) AuthResult {
	token, ok := TokenFromState(state, authID)
	if !ok {
		return AuthResult{
			Status:  StatusNotAuthenticated,
			Message: "No valid access token found",
		}
	}

	result := c.Introspect(ctx, token)
	if result.Status == StatusAuthenticated {
		// Upgrade the state entry to the record shape so later calls can see
		// both the token and who it belongs to
		state[StateKey(authID)] = map[string]any{
			"access_token": token,
			"user_info":    result.UserInfo,
		}
	}
	return result
}

// Introspect asks the tokeninfo endpoint who the token belongs to
func (c *Checker) Introspect(ctx context.Context, accessToken string) AuthResult {
	endpoint := fmt.Sprintf("%s?access_token=%s", c.tokenInfoURL, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return AuthResult{Status: StatusError, Message: err.Error()}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("tokeninfo request failed", "error", err)
		return AuthResult{Status: StatusError, Message: err.Error()}
	}
	defer resp.Body.Close() // nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return AuthResult{Status: StatusError, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return AuthResult{
			Status:  StatusError,
			Message: fmt.Sprintf("tokeninfo returned %d: %s", resp.StatusCode, string(body)),
		}
	}

	var userInfo map[string]any
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return AuthResult{Status: StatusError, Message: fmt.Sprintf("bad tokeninfo response: %v", err)}
	}

	c.logger.Debug("token introspected", "scope", userInfo["scope"])
	return AuthResult{Status: StatusAuthenticated, UserInfo: userInfo}
}
