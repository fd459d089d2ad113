package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchanger(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	newExchanger := func(tokenURL string) *Exchanger {
		e := NewExchanger(Config{
			AuthURL:      "https://provider.example/oauth_auth.do",
			TokenURL:     tokenURL,
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:8080/callback",
		}, nil)
		e.now = func() time.Time { return issuedAt }
		return e
	}

	t.Run("ExchangeCode", func(t *testing.T) {
		t.Run("success computes expiration", func(t *testing.T) {
			var gotForm map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				gotForm = map[string]string{
					"grant_type":    r.PostFormValue("grant_type"),
					"client_id":     r.PostFormValue("client_id"),
					"client_secret": r.PostFormValue("client_secret"),
					"redirect_uri":  r.PostFormValue("redirect_uri"),
					"code":          r.PostFormValue("code"),
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"access_token":"T1","refresh_token":"R1","expires_in":3600,"token_type":"Bearer"}`))
			}))
			defer srv.Close()

			rec, err := newExchanger(srv.URL).ExchangeCode(context.Background(), "abc")
			require.NoError(t, err)

			assert.Equal(t, map[string]string{
				"grant_type":    "authorization_code",
				"client_id":     "client-id",
				"client_secret": "client-secret",
				"redirect_uri":  "http://localhost:8080/callback",
				"code":          "abc",
			}, gotForm, "token request form should carry the full grant")

			assert.Equal(t, "T1", rec.AccessToken)
			assert.Equal(t, "R1", rec.RefreshToken)
			require.NotNil(t, rec.ExpirationTime)
			assert.Equal(t, issuedAt.Add(time.Hour), *rec.ExpirationTime)
			assert.Contains(t, rec.Raw, "token_type")
		})

		t.Run("non-2xx is a TokenExchangeError", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			}))
			defer srv.Close()

			_, err := newExchanger(srv.URL).ExchangeCode(context.Background(), "abc")

			var exchangeErr *TokenExchangeError
			require.ErrorAs(t, err, &exchangeErr)
			assert.Equal(t, GrantAuthorizationCode, exchangeErr.Grant)
			assert.Equal(t, http.StatusBadRequest, exchangeErr.StatusCode)
			assert.Contains(t, exchangeErr.Body, "invalid_grant")
		})

		t.Run("garbage response body", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			}))
			defer srv.Close()

			_, err := newExchanger(srv.URL).ExchangeCode(context.Background(), "abc")
			require.Error(t, err)

			var exchangeErr *TokenExchangeError
			assert.False(t, errors.As(err, &exchangeErr), "decode failures are not exchange errors")
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("success", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "refresh_token", r.PostFormValue("grant_type"))
				assert.Equal(t, "R_old", r.PostFormValue("refresh_token"))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"access_token":"T2","expires_in":1800}`))
			}))
			defer srv.Close()

			rec, err := newExchanger(srv.URL).Refresh(context.Background(), "R_old")
			require.NoError(t, err)

			assert.Equal(t, "T2", rec.AccessToken)
			assert.False(t, rec.HasRefreshToken(), "refresh token is not carried over unless the provider returns one")
			require.NotNil(t, rec.ExpirationTime)
			assert.Equal(t, issuedAt.Add(30*time.Minute), *rec.ExpirationTime)
		})

		t.Run("rejected refresh", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "invalid_grant", http.StatusBadRequest)
			}))
			defer srv.Close()

			_, err := newExchanger(srv.URL).Refresh(context.Background(), "R_old")

			var exchangeErr *TokenExchangeError
			require.ErrorAs(t, err, &exchangeErr)
			assert.Equal(t, GrantRefreshToken, exchangeErr.Grant)
		})
	})

	t.Run("no expires_in leaves expiration unset", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access_token":"T3"}`))
		}))
		defer srv.Close()

		rec, err := newExchanger(srv.URL).ExchangeCode(context.Background(), "abc")
		require.NoError(t, err)
		assert.Nil(t, rec.ExpirationTime, "unknown lifetime must stay unknown")
	})
}
