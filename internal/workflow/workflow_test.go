package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/spypry/spypry/internal/api"
)

// backendStub is a fake SpyPry backend that counts requests per path so
// tests can assert how many network calls an operation really issued.
type backendStub struct {
	mu       sync.Mutex
	counts   map[string]int
	handlers map[string]http.HandlerFunc
	server   *httptest.Server
}

func newBackendStub(t *testing.T) *backendStub {
	t.Helper()
	b := &backendStub{
		counts:   make(map[string]int),
		handlers: make(map[string]http.HandlerFunc),
	}
	b.server = httptest.NewServer(b)
	t.Cleanup(b.server.Close)

	// Defaults: a logged-in user with a linked mailbox.
	b.handle("/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"user": map[string]any{"email": "user@example.com", "name": "Test User"}})
	})
	b.handle("/gmail/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"connected": true, "email": "user@example.com"})
	})
	return b
}

func (b *backendStub) handle(path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[path] = h
}

func (b *backendStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.counts[r.URL.Path]++
	h, ok := b.handlers[r.URL.Path]
	b.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "not found"})
		return
	}
	h(w, r)
}

func (b *backendStub) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[path]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// newTestController returns a started controller wired to the stub, with a
// fast progress interval so scan tests do not crawl.
func newTestController(t *testing.T, b *backendStub, opts ...Option) *Controller {
	t.Helper()

	client, err := api.New(b.server.URL)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	opts = append([]Option{WithProgressInterval(5 * time.Millisecond)}, opts...)
	c := New(client, opts...)
	t.Cleanup(c.Close)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start controller: %v", err)
	}
	return c
}

// waitForPhase polls until the scan leaves the scanning phase.
func waitForPhase(t *testing.T, c *Controller, want ScanPhase) State {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := c.Snapshot()
		if st.Scan.Phase == want {
			return st
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("scan never reached phase %q (now %q)", want, c.Snapshot().Scan.Phase)
	return State{}
}
