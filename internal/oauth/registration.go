package oauth

import (
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
)

// RegistrationRedirectURL is the fixed redirect the managed runtime uses when
// the authorization resource is registered with it
const RegistrationRedirectURL = "https://vertexaisearch.cloud.google.com/oauth-redirect"

// WebClientConfig is the "web" section of a downloaded OAuth client JSON
type WebClientConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURI      string `json:"auth_uri"`
	TokenURI     string `json:"token_uri"`
}

// ParseWebClient reads the web-application client configuration out of the
// JSON document the provider console exports
func ParseWebClient(data []byte) (WebClientConfig, error) {
	var wrapper struct {
		Web *WebClientConfig `json:"web"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return WebClientConfig{}, fmt.Errorf("invalid client config JSON: %w", err)
	}
	if wrapper.Web == nil {
		return WebClientConfig{}, fmt.Errorf("client config has no web section")
	}
	if wrapper.Web.ClientID == "" || wrapper.Web.AuthURI == "" {
		return WebClientConfig{}, fmt.Errorf("web client config is missing client_id or auth_uri")
	}
	return *wrapper.Web, nil
}

// RegistrationURI builds the consent URL handed to the runtime when
// registering the authorization resource: explicit consent prompt, granted
// scopes included, fresh state per call
func RegistrationURI(client WebClientConfig, scopes []string) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", err
	}

	cfg := &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		RedirectURL:  RegistrationRedirectURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  client.AuthURI,
			TokenURL: client.TokenURI,
		},
	}

	return cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("access_type", "online"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}
