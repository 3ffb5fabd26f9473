package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc123", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user": {"email": "user@example.com"}}`))
	}))
	defer srv.Close()

	first, err := New(srv.URL)
	require.NoError(t, err)
	_, err = first.Me(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "session.json")
	require.NoError(t, first.SaveSession(path))

	second, err := New(srv.URL)
	require.NoError(t, err)
	require.NoError(t, second.LoadSession(path))

	cookies := second.SessionCookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "abc123", cookies[0].Value)
}

func TestLoadSessionMissingFileIsFine(t *testing.T) {
	c, err := New("http://localhost:0")
	require.NoError(t, err)
	assert.NoError(t, c.LoadSession(filepath.Join(t.TempDir(), "absent.json")))
	assert.Empty(t, c.SessionCookies())
}

func TestClearSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	c, err := New("http://localhost:0")
	require.NoError(t, err)
	require.NoError(t, c.SaveSession(path))

	require.NoError(t, ClearSession(path))
	require.NoError(t, ClearSession(path), "clearing twice is harmless")
}
