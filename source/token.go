package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TokenExchanger trades an email and password for an access token. A refusal
// by the upstream is reported as [ErrTokenRejected].
type TokenExchanger interface {
	Exchange(ctx context.Context, email, password string) (string, error)
}

// RESTExchanger posts JSON credentials to a password-grant token endpoint:
//
//	POST {base}/auth/v1/token?grant_type=password  {"email":..., "password":...}
type RESTExchanger struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRESTExchanger derives the endpoint from baseURL unless endpoint is set.
func NewRESTExchanger(baseURL, endpoint, apiKey string, client *http.Client) *RESTExchanger {
	if endpoint == "" {
		endpoint = strings.TrimRight(baseURL, "/") + "/auth/v1/token?grant_type=password"
	}
	if client == nil {
		client = &http.Client{Timeout: defaultDirectoryTimeout}
	}
	return &RESTExchanger{endpoint: endpoint, apiKey: apiKey, client: client}
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Exchange implements [TokenExchanger].
func (e *RESTExchanger) Exchange(ctx context.Context, email, password string) (string, error) {
	payload, err := json.Marshal(tokenRequest{Email: email, Password: password})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("apikey", e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: read response", ErrUnavailable)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return "", ErrTokenRejected
	default:
		return "", fmt.Errorf("%w: token exchange: HTTP %d - %s", ErrUnavailable, resp.StatusCode, preview(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", ErrUnavailable, err)
	}
	return tr.AccessToken, nil
}

// OAuth2Exchanger uses the OAuth2 resource owner password grant.
type OAuth2Exchanger struct {
	config *oauth2.Config
	client *http.Client
}

// OAuth2Config is the subset of client settings the password grant needs.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

func NewOAuth2Exchanger(cfg OAuth2Config, client *http.Client) *OAuth2Exchanger {
	if client == nil {
		client = &http.Client{Timeout: defaultDirectoryTimeout}
	}
	return &OAuth2Exchanger{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
			Scopes:       cfg.Scopes,
		},
		client: client,
	}
}

// Exchange implements [TokenExchanger].
func (e *OAuth2Exchanger) Exchange(ctx context.Context, email, password string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client)
	tok, err := e.config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil &&
			re.Response.StatusCode >= 400 && re.Response.StatusCode < 500 &&
			re.Response.StatusCode != http.StatusTooManyRequests {
			return "", ErrTokenRejected
		}
		return "", fmt.Errorf("%w: oauth2 token exchange: %v", ErrUnavailable, err)
	}
	return tok.AccessToken, nil
}

// TokenVerifier accepts a password when the exchanger issues a non-empty
// access token for the row's email. With a secret configured the token must
// also be an HS256 JWT whose sub is the row ID or whose email is the row
// email.
type TokenVerifier struct {
	exchanger TokenExchanger
	secret    []byte
	leeway    time.Duration
}

// NewTokenVerifier wraps exchanger. secret may be empty.
func NewTokenVerifier(exchanger TokenExchanger, secret string) *TokenVerifier {
	return &TokenVerifier{
		exchanger: exchanger,
		secret:    []byte(secret),
		leeway:    30 * time.Second,
	}
}

func (v *TokenVerifier) Name() string { return "token_exchange" }

// Verify implements [Verifier].
func (v *TokenVerifier) Verify(ctx context.Context, password string, rec *Record) (bool, error) {
	if rec == nil || rec.Email == "" {
		return false, nil
	}

	token, err := v.exchanger.Exchange(ctx, rec.Email, password)
	if err != nil {
		if errors.Is(err, ErrTokenRejected) {
			return false, nil
		}
		return false, err
	}
	if token == "" {
		return false, nil
	}
	if len(v.secret) == 0 {
		return true, nil
	}
	return v.tokenMatches(token, rec), nil
}

func (v *TokenVerifier) tokenMatches(token string, rec *Record) bool {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil || !parsed.Valid {
		return false
	}

	if sub, err := claims.GetSubject(); err == nil && sub != "" && sub == rec.ID {
		return true
	}
	if email, ok := claims["email"].(string); ok && strings.EqualFold(email, rec.Email) {
		return true
	}
	return false
}
