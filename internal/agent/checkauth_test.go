package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChecker(handler http.HandlerFunc) (*Checker, *httptest.Server) {
	srv := httptest.NewServer(handler)
	checker := NewChecker(nil)
	checker.tokenInfoURL = srv.URL
	return checker, srv
}

func TestChecker_CheckAuth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid token reports the identity", func(t *testing.T) {
		checker, srv := newTestChecker(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "T1", r.URL.Query().Get("access_token"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"email":"user@example.com","scope":"gmail.send","expires_in":"3600"}`))
		})
		defer srv.Close()

		state := map[string]any{"temp:auth-1": "T1"}
		result := checker.CheckAuth(ctx, state, "auth-1")

		require.Equal(t, StatusAuthenticated, result.Status)
		assert.Equal(t, "user@example.com", result.UserInfo["email"])

		// Successful introspection upgrades the state entry to record shape
		record, ok := state["temp:auth-1"].(map[string]any)
		require.True(t, ok, "state entry should now be a record")
		assert.Equal(t, "T1", record["access_token"])
	})

	t.Run("missing token short-circuits without network", func(t *testing.T) {
		checker, srv := newTestChecker(func(http.ResponseWriter, *http.Request) {
			t.Error("no request expected when the state has no token")
		})
		defer srv.Close()

		result := checker.CheckAuth(ctx, map[string]any{}, "auth-1")

		assert.Equal(t, StatusNotAuthenticated, result.Status)
		assert.Equal(t, "No valid access token found", result.Message)
	})

	t.Run("rejected token reports error status", func(t *testing.T) {
		checker, srv := newTestChecker(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
		})
		defer srv.Close()

		state := map[string]any{"temp:auth-1": "stale"}
		result := checker.CheckAuth(ctx, state, "auth-1")

		assert.Equal(t, StatusError, result.Status)
		assert.Contains(t, result.Message, "400")
		assert.Equal(t, "stale", state["temp:auth-1"], "failed introspection must not rewrite the state")
	})

	t.Run("unreachable endpoint reports error status", func(t *testing.T) {
		checker, srv := newTestChecker(func(http.ResponseWriter, *http.Request) {})
		srv.Close() // close before use

		result := checker.CheckAuth(ctx, map[string]any{"temp:auth-1": "T1"}, "auth-1")

		assert.Equal(t, StatusError, result.Status)
		assert.NotEmpty(t, result.Message)
	})
}
