package agent

import (
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yapweiyih/auth-agent/internal/models"
)

// IDTokenClaims is the subset of OpenID Connect claims the tools care about
type IDTokenClaims struct {
	Subject string
	Email   string
	Name    string
}

// ParseIDTokenClaims reads identity claims out of an ID token without
// verifying the signature. Only for display when the tokeninfo endpoint is
// unreachable: the token was already accepted by the provider, so this is a
// decode, not an authentication step.
func ParseIDTokenClaims(idToken string) (IDTokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return IDTokenClaims{}, fmt.Errorf("failed to parse id token: %w", err)
	}

	result := IDTokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		result.Subject = sub
	}
	if email, ok := claims["email"].(string); ok {
		result.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		result.Name = name
	}
	return result, nil
}

// IDTokenClaimsFromRecord decodes the id_token the provider passed through in
// a cached token record. ok is false when the record carries none or it does
// not decode.
func IDTokenClaimsFromRecord(rec *models.TokenRecord) (IDTokenClaims, bool) {
	if rec == nil {
		return IDTokenClaims{}, false
	}

	raw, exists := rec.Raw["id_token"]
	if !exists {
		return IDTokenClaims{}, false
	}

	var idToken string
	if err := json.Unmarshal(raw, &idToken); err != nil || idToken == "" {
		return IDTokenClaims{}, false
	}

	claims, err := ParseIDTokenClaims(idToken)
	if err != nil {
		return IDTokenClaims{}, false
	}
	return claims, true
}
