// Package oauth implements the interactive authorization-code flow against a
// generic OAuth2 provider: a short-lived local callback listener, the code
// exchange and refresh calls, a file-backed token cache and the orchestrator
// that decides between the three on every run.
package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

const defaultAuthorizeTimeout = 60 * time.Second

// Config holds everything needed to run the authorization-code flow against
// one provider
type Config struct {
	// Provider authorization page the user is sent to
	AuthURL string

	// Provider token endpoint for code exchange and refresh
	TokenURL string

	// Client credentials, usually resolved from the secret provider
	ClientID     string
	ClientSecret string

	// Redirect URI registered with the provider. Host, port and path must
	// match exactly or the provider rejects the flow on its side.
	RedirectURL string

	// Requested scopes, space-joined into the authorization URL
	Scopes []string

	// How long to wait for the user to finish authorizing
	AuthorizeTimeout time.Duration
}

func (c Config) validate() error {
	switch {
	case c.AuthURL == "":
		return errors.New("auth URL must not be empty")
	case c.TokenURL == "":
		return errors.New("token URL must not be empty")
	case c.ClientID == "":
		return errors.New("client id must not be empty")
	case c.RedirectURL == "":
		return errors.New("redirect URL must not be empty")
	}

	if _, err := url.Parse(c.RedirectURL); err != nil {
		return fmt.Errorf("invalid redirect URL: %w", err)
	}
	return nil
}

func (c Config) authorizeTimeout() time.Duration {
	if c.AuthorizeTimeout > 0 {
		return c.AuthorizeTimeout
	}
	return defaultAuthorizeTimeout
}

// endpoint returns the x/oauth2 view of the provider used to build the
// authorization URL
func (c Config) endpoint() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthURL,
			TokenURL: c.TokenURL,
		},
	}
}

// generateState returns a random URL-safe state token for CSRF protection,
// 256 bits of entropy
func generateState() (string, error) {
	stateBytes := make([]byte, 32)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("failed to generate random state: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(stateBytes), nil
}
