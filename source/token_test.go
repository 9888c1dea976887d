package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, status int, token string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body tokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@x.com", body.Email)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: token})
			return
		}
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestTokenVerifierREST(t *testing.T) {
	rec := &Record{ID: "u1", Email: "a@x.com"}

	tests := []struct {
		name    string
		status  int
		token   string
		want    bool
		wantErr error
	}{
		{name: "issued", status: http.StatusOK, token: "opaque-token", want: true},
		{name: "empty token", status: http.StatusOK, token: "", want: false},
		{name: "rejected", status: http.StatusBadRequest, want: false},
		{name: "upstream failure", status: http.StatusInternalServerError, wantErr: ErrUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := tokenServer(t, tc.status, tc.token)
			defer server.Close()

			v := NewTokenVerifier(NewRESTExchanger(server.URL, "", "anon-key", nil), "")
			ok, err := v.Verify(context.Background(), "pw", rec)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestTokenVerifierJWTCheck(t *testing.T) {
	const secret = "jwt-secret"
	rec := &Record{ID: "u1", Email: "a@x.com"}
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "sub matches", token: signHS256(t, secret, jwt.MapClaims{"sub": "u1", "exp": exp}), want: true},
		{name: "email matches", token: signHS256(t, secret, jwt.MapClaims{"sub": "other", "email": "A@x.com", "exp": exp}), want: true},
		{name: "other user", token: signHS256(t, secret, jwt.MapClaims{"sub": "u2", "email": "b@x.com", "exp": exp}), want: false},
		{name: "wrong secret", token: signHS256(t, "nope", jwt.MapClaims{"sub": "u1", "exp": exp}), want: false},
		{name: "expired", token: signHS256(t, secret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()}), want: false},
		{name: "not a jwt", token: "opaque", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := tokenServer(t, http.StatusOK, tc.token)
			defer server.Close()

			v := NewTokenVerifier(NewRESTExchanger(server.URL, "", "", nil), secret)
			ok, err := v.Verify(context.Background(), "pw", rec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestOAuth2Exchanger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		if r.PostForm.Get("password") != "right" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"bearer","expires_in":3600}`))
	}))
	defer server.Close()

	ex := NewOAuth2Exchanger(OAuth2Config{
		ClientID:     "credgate",
		ClientSecret: "secret",
		TokenURL:     server.URL + "/token",
	}, server.Client())

	tok, err := ex.Exchange(context.Background(), "a@x.com", "right")
	require.NoError(t, err)
	assert.Equal(t, "at-123", tok)

	_, err = ex.Exchange(context.Background(), "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrTokenRejected)
}
