// Package agent implements the tool calls the deployed assistant exposes:
// authentication introspection and Gmail send, plus the helpers that resolve
// the user's access token from the runtime session state.
package agent

import "fmt"

// StateKey returns the session-state key the runtime stores the delegated
// token under. The temp: prefix marks it as non-persisted state.
func StateKey(authID string) string {
	return fmt.Sprintf("temp:%s", authID)
}

// TokenFromState looks up the delegated access token in the runtime session
// state. The runtime writes either the bare token string or a record map with
// an access_token field, depending on which side stored it last. Absent or
// unusable entries report ok=false, never an empty token.
func TokenFromState(state map[string]any, authID string) (token string, ok bool) {
	value, exists := state[StateKey(authID)]
	if !exists {
		return "", false
	}

	switch v := value.(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case map[string]any:
		nested, ok := v["access_token"].(string)
		if !ok || nested == "" {
			return "", false
		}
		return nested, true
	default:
		return "", false
	}
}
