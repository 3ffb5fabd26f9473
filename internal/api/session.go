package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// savedCookie is the on-disk form of one session cookie. Only the fields the
// backend actually needs to recognize the session are kept.
type savedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// DefaultSessionPath returns where the CLI persists the backend session.
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.json"
	}
	return filepath.Join(home, ".spypry", "session.json")
}

// SaveSession writes the client's current cookies to path with 0600
// permissions so later CLI invocations can reuse the session.
func (c *Client) SaveSession(path string) error {
	var saved []savedCookie
	for _, ck := range c.SessionCookies() {
		saved = append(saved, savedCookie{
			Name:    ck.Name,
			Value:   ck.Value,
			Path:    ck.Path,
			Expires: ck.Expires,
		})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadSession seeds the client from a previously saved session file. A
// missing file is not an error; the caller simply starts unauthenticated.
func (c *Client) LoadSession(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var saved []savedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		return err
	}

	cookies := make([]*http.Cookie, 0, len(saved))
	for _, sc := range saved {
		cookies = append(cookies, &http.Cookie{
			Name:    sc.Name,
			Value:   sc.Value,
			Path:    sc.Path,
			Expires: sc.Expires,
		})
	}
	return c.SetSessionCookies(cookies)
}

// ClearSession removes the saved session file, ignoring a missing file.
func ClearSession(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
