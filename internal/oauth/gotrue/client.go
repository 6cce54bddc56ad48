// Package gotrue is a client for the identity provider's auth API (Supabase GoTrue).
// It covers the grants the session lifecycle needs: password, refresh token and PKCE
// code exchange, plus sign-up, user lookup, logout and the OAuth authorize URL.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/creatorverse/internal/domain/types"
)

const maxBodyBytes = 1 << 20

// Config for the auth API client.
type Config struct {
	// BaseURL is the project URL (SUPABASE_URL); the client appends /auth/v1.
	BaseURL string
	// AnonKey is sent as the apikey header on every call.
	AnonKey    string
	HTTPClient *http.Client
}

// Client is the auth API client.
type Client struct {
	base    string
	anonKey string
	http    *http.Client
}

// New creates a new auth API client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/") + "/auth/v1",
		anonKey: cfg.AnonKey,
		http:    hc,
	}
}

// User is the provider's user object.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// Identity projects the user into the domain type.
func (u User) Identity() types.Identity {
	return types.Identity{Subject: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

// TokenResponse is returned by every token grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Session converts the grant into a domain session. ExpiresAt wins over ExpiresIn.
func (t *TokenResponse) Session(now time.Time) *types.Session {
	exp := time.Time{}
	switch {
	case t.ExpiresAt > 0:
		exp = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		exp = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return &types.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    exp,
		Subject:      t.User.ID,
		Identity:     t.User.Identity(),
	}
}

// SignUpResult carries a session when the project auto-confirms, or only the user
// when email confirmation is pending.
type SignUpResult struct {
	Token *TokenResponse
	User  User
}

// SignInWithPassword runs the password grant.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "",
		map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshSession exchanges a refresh token for a new pair.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "",
		map[string]string{"refresh_token": refreshToken}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ExchangeCodeForSession completes a PKCE flow.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code, verifier string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type=pkce", "",
		map[string]string{"auth_code": code, "code_verifier": verifier}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SignUp registers a new user. Metadata lands in user_metadata (e.g. full_name).
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error) {
	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &raw); err != nil {
		return nil, err
	}
	// With auto-confirm the response is a token grant; otherwise it is the bare user.
	var probe struct {
		AccessToken string `json:"access_token"`
	}
	_ = json.Unmarshal(raw, &probe)
	if probe.AccessToken != "" {
		var tr TokenResponse
		if err := json.Unmarshal(raw, &tr); err != nil {
			return nil, fmt.Errorf("gotrue: decode signup: %w", err)
		}
		return &SignUpResult{Token: &tr, User: tr.User}, nil
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("gotrue: decode signup: %w", err)
	}
	return &SignUpResult{User: u}, nil
}

// GetUser validates an access token against the provider and returns its user.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, &ProviderError{Status: http.StatusUnauthorized, Message: "user not found"}
	}
	return &u, nil
}

// SignOut revokes the session's refresh tokens (scope=local: only this session).
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout?scope=local", accessToken, nil, nil)
}

// AuthorizeParams for the OAuth redirect.
type AuthorizeParams struct {
	Provider   string
	RedirectTo string
	// PKCE; empty means implicit flow (tokens in the redirect fragment).
	CodeChallenge       string
	CodeChallengeMethod string
	Scopes              []string
}

// AuthorizeURL builds the provider consent URL the browser is sent to.
func (c *Client) AuthorizeURL(p AuthorizeParams) string {
	q := url.Values{}
	q.Set("provider", p.Provider)
	if p.RedirectTo != "" {
		q.Set("redirect_to", p.RedirectTo)
	}
	if len(p.Scopes) > 0 {
		q.Set("scopes", strings.Join(p.Scopes, " "))
	}
	if p.CodeChallenge != "" {
		q.Set("code_challenge", p.CodeChallenge)
		q.Set("code_challenge_method", p.CodeChallengeMethod)
		q.Set("flow_type", "pkce")
	}
	return c.base + "/authorize?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeProviderError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("gotrue: decode %s: %w", path, err)
	}
	return nil
}
