// Package web serves the local SpyPry dashboard: a single page that follows
// the workflow controller through connect, scan, link lookup and letter
// generation. It binds to localhost only; the backend session cookie never
// reaches the page, it stays inside the controller's HTTP client.
package web

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"github.com/spypry/spypry/internal/api"
	"github.com/spypry/spypry/internal/browser"
	"github.com/spypry/spypry/internal/config"
	"github.com/spypry/spypry/internal/email"
	"github.com/spypry/spypry/internal/history"
	"github.com/spypry/spypry/internal/workflow"
)

//go:embed templates/*
var templatesFS embed.FS

const (
	defaultRateLimit  = 30
	defaultRateWindow = time.Minute
)

type Server struct {
	config       *config.Config
	controller   *workflow.Controller
	historyStore *history.Store
	templates    *template.Template
	httpServer   *http.Server
	addr         string
	csrfKey      []byte
	rateLimiter  *RateLimiter

	mu        sync.Mutex
	letterIDs map[string]int64 // domain -> history letter record id
}

func NewServer(addr string, cfg *config.Config, ctrl *workflow.Controller, historyStore *history.Store) (*Server, error) {
	csrfKey := make([]byte, 32)
	if _, err := rand.Read(csrfKey); err != nil {
		return nil, fmt.Errorf("failed to generate CSRF key: %w", err)
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		config:       cfg,
		controller:   ctrl,
		historyStore: historyStore,
		templates:    tmpl,
		addr:         addr,
		csrfKey:      csrfKey,
		rateLimiter:  NewRateLimiter(defaultRateLimit, defaultRateWindow),
		letterIDs:    make(map[string]int64),
	}, nil
}

// Start runs the dashboard until the server is shut down, opening the
// browser shortly after listen begins.
func (s *Server) Start() error {
	router := s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 6 * time.Minute, // enrichment requests can be slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		time.Sleep(500 * time.Millisecond)
		_ = browser.Open("http://" + s.addr)
	}()

	fmt.Printf("SpyPry dashboard at http://%s\n", s.addr)
	fmt.Println("Press Ctrl+C to stop")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(securityHeaders)

	host := s.addr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	csrfMiddleware := csrf.Protect(
		s.csrfKey,
		csrf.Secure(false), // localhost is plain HTTP
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader("X-CSRF-Token"),
		csrf.TrustedOrigins([]string{"localhost", "127.0.0.1", s.addr, host}),
	)
	r.Use(csrfMiddleware)

	r.Get("/", s.handleIndex)
	r.Get("/connect", s.handleConnect)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/history", s.handleHistory)
		r.Post("/scan", s.handleScanStart)
		r.Post("/scan/back", s.handleScanBack)
		r.Post("/link", s.handleLink)
		r.Post("/link/close", s.handleLinkClose)
		r.Post("/letter", s.handleLetter)
		r.Post("/letter/close", s.handleLetterClose)
		r.Post("/letter/send", s.handleLetterSend)
		r.Post("/disconnect", s.handleDisconnect)
		r.Post("/logout", s.handleLogout)
	})

	return r
}

// securityHeaders adds the usual localhost-dashboard hardening.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data:; connect-src 'self'; frame-ancestors 'none'; form-action 'self'; base-uri 'self'")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")
		next.ServeHTTP(w, r)
	})
}

// handleIndex is the entry page. It gates on the backend session, consumes
// the OAuth completion marker when the backend redirected here with one, and
// then serves the dashboard.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.controller.User() == nil {
		if err := s.controller.Start(r.Context()); err != nil {
			s.render(w, "login.html", map[string]any{
				"BackendURL": s.config.Backend.URL,
			})
			return
		}
	}

	query := r.URL.Query()
	cleaned, err := s.controller.CompleteOAuth(r.Context(), query)
	if err != nil {
		log.Printf("OAuth completion failed: %v", err)
	}
	if err == nil && !urlValuesEqual(query, cleaned) {
		target := r.URL.Path
		if encoded := cleaned.Encode(); encoded != "" {
			target += "?" + encoded
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	state, _ := json.Marshal(s.controller.Snapshot())
	s.render(w, "index.html", map[string]any{
		"CSRFToken":    csrf.Token(r),
		"InitialState": template.JS(state),
		"ScanSteps":    workflow.ScanSteps,
	})
}

func urlValuesEqual(a, b url.Values) bool {
	if len(a) != len(b) {
		return false
	}
	for k, vs := range a {
		other, ok := b[k]
		if !ok || len(other) != len(vs) {
			return false
		}
		for i := range vs {
			if vs[i] != other[i] {
				return false
			}
		}
	}
	return true
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.controller.ConnectURL(), http.StatusFound)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleScanStart(w http.ResponseWriter, r *http.Request) {
	err := s.controller.StartScan()
	switch {
	case errors.Is(err, workflow.ErrNotConnected):
		writeJSONError(w, http.StatusConflict, "Connect your mailbox before scanning.")
		return
	case errors.Is(err, workflow.ErrScanInProgress):
		writeJSONError(w, http.StatusConflict, "A scan is already running.")
		return
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, s.controller.Snapshot())
}

func (s *Server) handleScanBack(w http.ResponseWriter, r *http.Request) {
	s.controller.BackToResults()
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	if !s.rateLimiter.Allow("link") {
		writeJSONError(w, http.StatusTooManyRequests, "Too many lookups; wait a moment.")
		return
	}

	var req struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Domain) == "" {
		writeJSONError(w, http.StatusBadRequest, "domain is required")
		return
	}

	result, err := s.controller.LookupDeleteLink(r.Context(), req.Domain)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	if s.historyStore != nil {
		rec := &history.LookupRecord{
			Domain:     result.Domain,
			Purpose:    string(result.Purpose),
			Confidence: result.Confidence,
		}
		if result.BestURL != nil {
			rec.BestURL = *result.BestURL
		}
		if err := s.historyStore.AddLookup(rec); err != nil {
			log.Printf("Warning: failed to record lookup: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLinkClose(w http.ResponseWriter, r *http.Request) {
	s.controller.CloseLink()
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleLetter(w http.ResponseWriter, r *http.Request) {
	if !s.rateLimiter.Allow("letter") {
		writeJSONError(w, http.StatusTooManyRequests, "Too many letter requests; wait a moment.")
		return
	}

	var req struct {
		Domain      string `json:"domain"`
		CompanyName string `json:"company_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Domain) == "" {
		writeJSONError(w, http.StatusBadRequest, "domain is required")
		return
	}
	if req.CompanyName == "" {
		req.CompanyName = workflow.CompanyDisplayName(api.Company{Domain: req.Domain})
	}

	outcome, err := s.controller.GenerateLetter(r.Context(), req.Domain, req.CompanyName)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	if outcome.Letter != nil && !outcome.FromCache && s.historyStore != nil {
		rec := &history.LetterRecord{
			Domain:       req.Domain,
			CompanyName:  outcome.Letter.CompanyName,
			EmailAddress: outcome.Letter.EmailAddress,
			Subject:      outcome.Letter.Subject,
			Status:       history.LetterGenerated,
		}
		if err := s.historyStore.AddLetter(rec); err != nil {
			log.Printf("Warning: failed to record letter: %v", err)
		} else {
			s.mu.Lock()
			s.letterIDs[req.Domain] = rec.ID
			s.mu.Unlock()
		}
	}

	resp := map[string]any{"from_cache": outcome.FromCache}
	if outcome.Letter != nil {
		resp["letter"] = map[string]string{
			"body":          outcome.Letter.Body,
			"email_address": outcome.Letter.EmailAddress,
			"company_name":  outcome.Letter.CompanyName,
			"subject":       outcome.Letter.Subject,
		}
	}
	if outcome.Missing != nil {
		resp["missing"] = outcome.Missing
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLetterClose(w http.ResponseWriter, r *http.Request) {
	s.controller.CloseLetter()
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

// handleLetterSend mails a previously generated letter through the user's
// configured SMTP account.
func (s *Server) handleLetterSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Domain) == "" {
		writeJSONError(w, http.StatusBadRequest, "domain is required")
		return
	}

	letter, ok := s.controller.CachedLetter(req.Domain)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "no generated letter for this company")
		return
	}

	if err := s.config.ValidateEmail(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Sending is not configured: "+err.Error())
		return
	}

	sender, err := email.NewSender(s.config.Email)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result := sender.Send(ctx, email.Message{
		To:      letter.EmailAddress,
		From:    s.config.Email.From,
		Subject: letter.Subject,
		Body:    letter.Body,
	})

	if s.historyStore != nil {
		s.mu.Lock()
		id, tracked := s.letterIDs[req.Domain]
		s.mu.Unlock()
		if tracked {
			if err := s.historyStore.MarkLetterSent(id, result.Error); err != nil {
				log.Printf("Warning: failed to record send: %v", err)
			}
		}
	}

	if !result.Success {
		msg := "send failed"
		if result.Error != nil {
			msg = result.Error.Error()
		}
		writeJSONError(w, http.StatusBadGateway, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message_id": result.MessageID})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.controller.Disconnect(r.Context())
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.controller.Logout(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.historyStore == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}

	scans, err := s.historyStore.RecentScans(20)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	lookups, err := s.historyStore.RecentLookups(50)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	letters, err := s.historyStore.RecentLetters(50)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scans":   scans,
		"lookups": lookups,
		"letters": letters,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
