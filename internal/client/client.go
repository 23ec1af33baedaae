// Package client is a typed HTTP client for the wellnesshub API. Calls that
// need a caller take an explicit Credentials value; the client itself holds
// no login state.
package client

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

	"github.com/geocoder89/wellnesshub/internal/domain/session"
	"github.com/geocoder89/wellnesshub/internal/domain/user"
)

// Credentials is the bearer token and identity returned by register/login.
type Credentials struct {
	Token string        `json:"token"`
	User  user.Identity `json:"user"`
}

func (c Credentials) Valid() bool {
	return c.Token != ""
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, http.StatusText(e.Status))
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client for baseURL (e.g. "http://localhost:5000"). A nil
// httpClient gets a default with a 10s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Probe checks the server answers at all.
func (c *Client) Probe(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/", nil, nil, nil)
}

func (c *Client) Register(ctx context.Context, email, password string) (Credentials, error) {
	return c.authenticate(ctx, "/register", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (Credentials, error) {
	return c.authenticate(ctx, "/login", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (Credentials, error) {
	body := map[string]string{"email": email, "password": password}

	var out Credentials
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return Credentials{}, err
	}
	return out, nil
}

func (c *Client) ListPublished(ctx context.Context) ([]session.Public, error) {
	out := []session.Public{}
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMine(ctx context.Context, creds Credentials) ([]session.Session, error) {
	out := []session.Session{}
	if err := c.do(ctx, http.MethodGet, "/my-sessions", &creds, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetMine(ctx context.Context, creds Credentials, id string) (session.Session, error) {
	var out session.Session
	if err := c.do(ctx, http.MethodGet, "/my-sessions/"+url.PathEscape(id), &creds, nil, &out); err != nil {
		return session.Session{}, err
	}
	return out, nil
}

func (c *Client) SaveDraft(ctx context.Context, creds Credentials, req session.SaveRequest) (session.Session, error) {
	var out session.Session
	if err := c.do(ctx, http.MethodPost, "/my-sessions/save-draft", &creds, req, &out); err != nil {
		return session.Session{}, err
	}
	return out, nil
}

func (c *Client) Publish(ctx context.Context, creds Credentials, req session.SaveRequest) (session.Session, error) {
	var out session.Session
	if err := c.do(ctx, http.MethodPost, "/my-sessions/publish", &creds, req, &out); err != nil {
		return session.Session{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, creds *Credentials, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds != nil && creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &env); err == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}

	return apiErr
}
