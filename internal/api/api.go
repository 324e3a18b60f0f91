// Package api is the REST client for the auth and user-directory
// endpoints of the backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/saurabh-saran/ChatUI/internal/chat"
)

// Client talks to the backend's REST API. Token is set after login and
// attached to authenticated requests.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResult is the identity handed back by the auth service.
type AuthResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (c *Client) Login(ctx context.Context, username, password string) (AuthResult, error) {
	return c.authenticate(ctx, "/api/auth/login", username, password)
}

func (c *Client) Register(ctx context.Context, username, password string) (AuthResult, error) {
	return c.authenticate(ctx, "/api/auth/register", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (AuthResult, error) {
	body, err := json.Marshal(credentials{Username: username, Password: password})
	if err != nil {
		return AuthResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return AuthResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return AuthResult{}, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return AuthResult{}, errors.New(apiError(resp))
	}

	var out AuthResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return AuthResult{}, fmt.Errorf("auth response invalid: %w", err)
	}
	c.Token = out.Token
	return out, nil
}

// Users fetches the contact directory, optionally filtered by a search
// query.
func (c *Client) Users(ctx context.Context, query string) ([]chat.RosterEntry, error) {
	endpoint := c.BaseURL + "/api/users"
	if query != "" {
		endpoint += "?q=" + url.QueryEscape(query)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(apiError(resp))
	}

	var users []chat.RosterEntry
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("users response invalid: %w", err)
	}
	return users, nil
}

// apiError extracts the server's error string, falling back to the
// HTTP status.
func apiError(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return body.Error
	}
	return fmt.Sprintf("server returned %d", resp.StatusCode)
}
