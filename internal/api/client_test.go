package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)
	return c
}

func TestMeDecodesUser(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user": {"email": "user@example.com", "name": "Test User"}}`))
	}))

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, "Test User", user.Name)
}

func TestMeUnauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Not authenticated"}`))
	}))

	_, err := c.Me(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Unauthorized())
	assert.Equal(t, "Not authenticated", apiErr.Error())
}

func TestErrorWithoutDetailBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.GmailStatus(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "HTTP 502", apiErr.Error())
}

func TestScanPreservesOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"domain": "zeta.com", "confidence": "low", "evidence": ["reset"]},
			{"domain": "alpha.com", "displayName": "Alpha", "confidence": "high", "evidence": ["welcome"], "count": 7}
		]`))
	}))

	companies, err := c.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "zeta.com", companies[0].Domain, "backend ranking is authoritative, never re-sorted")
	assert.Equal(t, "alpha.com", companies[1].Domain)
	assert.Equal(t, "Alpha", companies[1].DisplayName)
	assert.Equal(t, 7, companies[1].Count)
}

func TestFindDeleteLinkNormalizesUnknownPurpose(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"domain": "acme.com", "purpose": "telepathy", "confidence": 0.2}`))
	}))

	result, err := c.FindDeleteLink(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, PurposeUnknown, result.Purpose)
}

func TestGenerateLetterNotOKIsNotAnError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": false, "missing": {"privacy_policy_url": true, "privacy_contact_email": false}}`))
	}))

	resp, err := c.GenerateLetter(context.Background(), LetterRequest{CompanyName: "Acme"})
	require.NoError(t, err)
	assert.False(t, resp.OK)
	require.NotNil(t, resp.Missing)
	assert.True(t, resp.Missing.PrivacyPolicyURL)
}

func TestSessionCookieCarriedAcrossCalls(t *testing.T) {
	var sawCookie bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc123", Path: "/"})
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"user": {"email": "user@example.com"}}`))
		case "/gmail/status":
			if cookie, err := r.Cookie("session"); err == nil && cookie.Value == "abc123" {
				sawCookie = true
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"connected": true}`))
		}
	}))

	_, err := c.Me(context.Background())
	require.NoError(t, err)
	_, err = c.GmailStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, sawCookie, "jar must replay the session cookie")
}

func TestLinkPurposeValid(t *testing.T) {
	tests := []struct {
		purpose LinkPurpose
		want    bool
	}{
		{PurposeAccountDelete, true},
		{PurposePrivacyRights, true},
		{PurposeContactSupport, true},
		{PurposeUnknown, true},
		{LinkPurpose("telepathy"), false},
		{LinkPurpose(""), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.purpose.Valid(), "purpose %q", tt.purpose)
	}
}
