package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExpiryBuffer is subtracted from the reported expiration so tokens are
// refreshed before the provider actually rejects them
const ExpiryBuffer = 5 * time.Minute

// Known token endpoint response fields. Everything else is carried in Raw
// untouched so provider-specific fields survive a save/load cycle.
const (
	fieldAccessToken    = "access_token"
	fieldRefreshToken   = "refresh_token"
	fieldExpiresIn      = "expires_in"
	fieldExpirationTime = "expiration_time"
)

// TokenRecord is the persisted unit of delegated authority: the bearer
// credential plus everything needed to refresh it later
type TokenRecord struct {
	// Bearer credential for downstream API calls
	AccessToken string

	// Empty if the provider issued no refresh token. Expiry then forces a
	// full interactive re-authorization.
	RefreshToken string

	// Provider-reported lifetime in seconds at issuance, 0 when not reported
	ExpiresIn int64

	// Absolute expiration derived at issuance time. Nil means the provider
	// reported no lifetime and the record must be treated as already expired.
	ExpirationTime *time.Time

	// Provider-specific passthrough fields (token type, scope, ...)
	Raw map[string]json.RawMessage
}

// NewTokenRecord builds a record from a decoded token endpoint response.
// ExpirationTime is always computed from the fresh expires_in value, never
// carried over from earlier records.
func NewTokenRecord(fields map[string]json.RawMessage, issuedAt time.Time) (TokenRecord, error) {
	rec := TokenRecord{Raw: make(map[string]json.RawMessage)}

	for key, value := range fields {
		switch key {
		case fieldAccessToken:
			if err := json.Unmarshal(value, &rec.AccessToken); err != nil {
				return rec, fmt.Errorf("invalid access_token field: %w", err)
			}
		case fieldRefreshToken:
			if err := json.Unmarshal(value, &rec.RefreshToken); err != nil {
				return rec, fmt.Errorf("invalid refresh_token field: %w", err)
			}
		case fieldExpiresIn:
			seconds, err := parseExpiresIn(value)
			if err != nil {
				return rec, fmt.Errorf("invalid expires_in field: %w", err)
			}
			rec.ExpiresIn = seconds
		case fieldExpirationTime:
			// Stale value from a previous issuance, recomputed below
		default:
			rec.Raw[key] = value
		}
	}

	if rec.AccessToken == "" {
		return rec, fmt.Errorf("token response has no access_token")
	}

	if rec.ExpiresIn > 0 {
		expiresAt := issuedAt.Add(time.Duration(rec.ExpiresIn) * time.Second)
		rec.ExpirationTime = &expiresAt
	}

	return rec, nil
}

// Expired reports whether the record should not be used at the given moment.
// Records without an expiration time are always expired (fail-safe), records
// with one expire ExpiryBuffer early.
func (r TokenRecord) Expired(now time.Time) bool {
	if r.ExpirationTime == nil {
		return true
	}
	return now.After(r.ExpirationTime.Add(-ExpiryBuffer))
}

// HasRefreshToken reports whether a refresh is possible without user interaction
func (r TokenRecord) HasRefreshToken() bool {
	return r.RefreshToken != ""
}

func (r TokenRecord) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(r.Raw)+4)
	for key, value := range r.Raw {
		fields[key] = value
	}

	set := func(key string, value any) error {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		fields[key] = encoded
		return nil
	}

	if err := set(fieldAccessToken, r.AccessToken); err != nil {
		return nil, err
	}
	if r.RefreshToken != "" {
		if err := set(fieldRefreshToken, r.RefreshToken); err != nil {
			return nil, err
		}
	}
	if r.ExpiresIn > 0 {
		if err := set(fieldExpiresIn, r.ExpiresIn); err != nil {
			return nil, err
		}
	}
	if r.ExpirationTime != nil {
		if err := set(fieldExpirationTime, r.ExpirationTime.Format(time.RFC3339Nano)); err != nil {
			return nil, err
		}
	}

	return json.Marshal(fields)
}

func (r *TokenRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	rec := TokenRecord{Raw: make(map[string]json.RawMessage)}

	for key, value := range fields {
		switch key {
		case fieldAccessToken:
			if err := json.Unmarshal(value, &rec.AccessToken); err != nil {
				return fmt.Errorf("invalid access_token field: %w", err)
			}
		case fieldRefreshToken:
			if err := json.Unmarshal(value, &rec.RefreshToken); err != nil {
				return fmt.Errorf("invalid refresh_token field: %w", err)
			}
		case fieldExpiresIn:
			seconds, err := parseExpiresIn(value)
			if err != nil {
				return fmt.Errorf("invalid expires_in field: %w", err)
			}
			rec.ExpiresIn = seconds
		case fieldExpirationTime:
			var raw string
			if err := json.Unmarshal(value, &raw); err != nil {
				return fmt.Errorf("invalid expiration_time field: %w", err)
			}
			parsed, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				return fmt.Errorf("invalid expiration_time field: %w", err)
			}
			rec.ExpirationTime = &parsed
		default:
			rec.Raw[key] = value
		}
	}

	*r = rec
	return nil
}

// parseExpiresIn accepts both numeric and string-encoded lifetimes since
// providers disagree on the type
func parseExpiresIn(value json.RawMessage) (int64, error) {
	var num json.Number
	if err := json.Unmarshal(value, &num); err != nil {
		var str string
		if strErr := json.Unmarshal(value, &str); strErr != nil {
			return 0, err
		}
		num = json.Number(str)
	}
	return num.Int64()
}
