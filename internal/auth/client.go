package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultScopes are requested on every login.
var DefaultScopes = []string{"openid", "profile", "email"}

// ClientConfig describes the registered W3ID OAuth client.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	AuthEndpoint string
	TokenURL     string
	RedirectURI  string
	Scopes       []string
}

// TokenResponse is the token endpoint's answer to a code exchange.
type TokenResponse struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
}

// Client talks to the provider's authorize and token endpoints.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewClient returns a Client.  httpClient should carry the per-call
// provider timeout.
func NewClient(cfg ClientConfig, httpClient *http.Client) *Client {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// AuthorizeURL builds the provider redirect for a new login.  The result
// depends only on configuration and state.
func (c *Client) AuthorizeURL(state string) (string, error) {
	u, err := url.Parse(c.cfg.AuthEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid auth endpoint: %w", err)
	}
	q := u.Query()
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(c.cfg.Scopes, " "))
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Exchange trades an authorization code for tokens.  Client credentials go
// both in the form body and as HTTP basic auth because W3ID flows differ
// in which one they read.
func (c *Client) Exchange(ctx context.Context, code string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.cfg.RedirectURI)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenResponse{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(url.QueryEscape(c.cfg.ClientID), url.QueryEscape(c.cfg.ClientSecret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("%w: token request: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return TokenResponse{}, fmt.Errorf("%w: token endpoint status %d", ErrServiceUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return TokenResponse{}, fmt.Errorf("%w: token endpoint status %d", ErrTokenExchange, resp.StatusCode)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return TokenResponse{}, fmt.Errorf("%w: decode: %v", ErrTokenExchange, err)
	}
	if payload.AccessToken == "" && payload.IDToken == "" {
		return TokenResponse{}, fmt.Errorf("%w: no tokens in response", ErrTokenExchange)
	}
	return TokenResponse{
		AccessToken:  payload.AccessToken,
		IDToken:      payload.IDToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    payload.TokenType,
		ExpiresIn:    time.Duration(payload.ExpiresIn) * time.Second,
	}, nil
}
