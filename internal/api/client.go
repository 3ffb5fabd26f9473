// Package api is the HTTP client for the SpyPry backend. All calls carry the
// backend session cookie; the scanning, link-discovery and letter-generation
// logic live server-side and are reached only through this client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 90 * time.Second

// APIError is a non-2xx response from the backend, carrying the FastAPI-style
// detail message when one was present.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Unauthorized reports whether the backend rejected the session.
func (e *APIError) Unauthorized() bool { return e.StatusCode == http.StatusUnauthorized }

// Client talks to one SpyPry backend. The zero value is not usable; use New.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests, custom jars).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for the backend at baseURL. A cookie jar is installed
// so the session cookie set by the backend is carried automatically.
func New(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// ConnectURL is the browser navigation target that starts the Gmail OAuth
// flow. The backend redirects back to the app with the completion marker.
func (c *Client) ConnectURL() string { return c.baseURL + "/gmail/connect" }

// do issues a JSON request and decodes the response into out (when non-nil).
// Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// decodeError turns a non-2xx response into an *APIError, pulling the
// backend's {"detail": ...} message when the body has one.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	if err == nil {
		var payload struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Detail = payload.Detail
		}
	}
	return apiErr
}

// Me returns the authenticated user, or *APIError with status 401 when the
// session is missing or expired.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/me", nil, &out); err != nil {
		return nil, err
	}
	if out.User.Email == "" {
		return nil, fmt.Errorf("backend returned a session with no email")
	}
	return &out.User, nil
}

// GmailStatus asks whether the mail account is linked.
func (c *Client) GmailStatus(ctx context.Context) (ConnectionStatus, error) {
	var out ConnectionStatus
	err := c.do(ctx, http.MethodGet, "/gmail/status", nil, &out)
	return out, err
}

// Scan runs the backend mailbox scan and returns the detected companies in
// backend order. This is the slow call; pass a context with a deadline the
// caller is happy to wait for.
func (c *Client) Scan(ctx context.Context) ([]Company, error) {
	var out []Company
	if err := c.do(ctx, http.MethodGet, "/gmail/scan", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindDeleteLink asks the backend for the best deletion/privacy link for a
// domain. An unrecognized purpose in the response is normalized to unknown so
// downstream switches stay exhaustive.
func (c *Client) FindDeleteLink(ctx context.Context, domain string) (DeleteLinkResult, error) {
	body := struct {
		Domain string `json:"domain"`
	}{Domain: domain}

	var out DeleteLinkResult
	if err := c.do(ctx, http.MethodPost, "/privacy/find_delete_link", body, &out); err != nil {
		return DeleteLinkResult{}, err
	}
	if !out.Purpose.Valid() {
		out.Purpose = PurposeUnknown
	}
	return out, nil
}

// GenerateLetter asks the backend to write an opt-out letter. A response with
// ok=false is returned as a normal LetterResponse, not an error.
func (c *Client) GenerateLetter(ctx context.Context, req LetterRequest) (LetterResponse, error) {
	var out LetterResponse
	err := c.do(ctx, http.MethodPost, "/letter/generate", req, &out)
	return out, err
}

// DisconnectGmail unlinks the mail account. Failures are the caller's to
// swallow; the backend treats this as best-effort.
func (c *Client) DisconnectGmail(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/gmail/disconnect", nil, nil)
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// SessionCookies returns the cookies currently held for the backend origin.
func (c *Client) SessionCookies() []*http.Cookie {
	u, err := url.Parse(c.baseURL)
	if err != nil || c.http.Jar == nil {
		return nil
	}
	return c.http.Jar.Cookies(u)
}

// SetSessionCookies seeds the jar with previously saved cookies.
func (c *Client) SetSessionCookies(cookies []*http.Cookie) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse base URL: %w", err)
	}
	if c.http.Jar == nil {
		return fmt.Errorf("client has no cookie jar")
	}
	c.http.Jar.SetCookies(u, cookies)
	return nil
}
