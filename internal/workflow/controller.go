// Package workflow is the client-side controller for the SpyPry remediation
// flow. It tracks who is logged in and whether their mailbox is linked,
// completes the Gmail OAuth redirect handshake, runs the mailbox scan with a
// user-visible progress sequence, and memoizes the two per-company lookups
// (delete-link discovery and opt-out letter generation) so repeated requests
// for the same domain never hit the network twice.
//
// Presentation layers (the local web dashboard, the CLI) consume the
// controller through Snapshot and never see its internals.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spypry/spypry/internal/api"
)

// Completion marker the backend appends to the redirect URL after the Gmail
// OAuth flow finishes. Consumed exactly once, then stripped.
const (
	oauthMarkerKey   = "gmail"
	oauthMarkerValue = "connected"
)

const (
	defaultProgressInterval = 400 * time.Millisecond
	defaultScanTimeout      = 5 * time.Minute
)

var (
	// ErrNotAuthenticated means the backend has no session for us. Callers
	// redirect to the entry page and perform no further work.
	ErrNotAuthenticated = errors.New("not logged in")

	// ErrNotConnected rejects a scan before any network call is made.
	ErrNotConnected = errors.New("connect your mailbox before scanning")

	// ErrScanInProgress rejects a second scan while one is running.
	ErrScanInProgress = errors.New("a scan is already running")

	// ErrOAuthInconsistent means the OAuth completion marker was present but
	// the backend reported no linked account. This is a cross-system state
	// mismatch, so it fails loud rather than degrading to "not connected".
	ErrOAuthInconsistent = errors.New("OAuth completed upstream but no session found")
)

// Profile is the letter-request identity; fields left empty fall back to the
// authenticated user.
type Profile struct {
	FullName string
	Email    string
	Product  string
}

// Controller holds all client-side workflow state for one authenticated
// session. Create with New, activate with Start, release with Close.
type Controller struct {
	api              *api.Client
	profile          Profile
	progressInterval time.Duration
	scanTimeout      time.Duration
	scanHook         func([]api.Company, error)

	mu              sync.Mutex
	sessionID       string
	starting        bool
	user            *api.User
	connected       bool
	connectedEmail  string
	oauthConfirming bool
	oauthDone       bool
	oauthErr        string
	scan            scanState
	pendingLink     string // domain of the lookup currently shown as "searching"

	links   *resultCache[api.DeleteLinkResult]
	letters *resultCache[Letter]
}

// Option configures a Controller.
type Option func(*Controller)

// WithProfile sets the identity used in letter-generation requests.
func WithProfile(p Profile) Option {
	return func(c *Controller) { c.profile = p }
}

// WithProgressInterval overrides how often the scan progress label advances.
func WithProgressInterval(d time.Duration) Option {
	return func(c *Controller) { c.progressInterval = d }
}

// WithScanTimeout bounds how long the backend scan call may take.
func WithScanTimeout(d time.Duration) Option {
	return func(c *Controller) { c.scanTimeout = d }
}

// WithScanHook registers a callback invoked once per finished scan, success
// or failure. Used for history recording.
func WithScanHook(fn func([]api.Company, error)) Option {
	return func(c *Controller) { c.scanHook = fn }
}

// New creates an inactive controller bound to a backend client.
func New(client *api.Client, opts ...Option) *Controller {
	c := &Controller{
		api:              client,
		progressInterval: defaultProgressInterval,
		scanTimeout:      defaultScanTimeout,
		links:            newResultCache[api.DeleteLinkResult](),
		letters:          newResultCache[Letter](),
	}
	c.scan.phase = PhaseIdle
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start is the session guard. It asks the backend who is logged in; if there
// is no session it returns ErrNotAuthenticated and the controller stays
// inactive. On success it stores the user, assigns a workflow session ID and
// runs the connection check once. Downstream operations must not be invoked
// until Start returns.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.starting = true
	c.mu.Unlock()

	user, err := c.api.Me(ctx)

	c.mu.Lock()
	c.starting = false
	if err != nil {
		c.user = nil
		c.mu.Unlock()
		// Any failure to establish identity gates entry; the entry page is
		// the safe destination either way.
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	c.user = user
	c.sessionID = uuid.New().String()
	c.mu.Unlock()

	c.RefreshConnection(ctx)
	return nil
}

// RefreshConnection runs one status exchange with the backend. A transport
// failure is treated as "not connected" rather than surfaced: absence of a
// link is the safe default.
func (c *Controller) RefreshConnection(ctx context.Context) api.ConnectionStatus {
	status, err := c.api.GmailStatus(ctx)
	if err != nil {
		status = api.ConnectionStatus{}
	}

	c.mu.Lock()
	c.connected = status.Connected
	c.connectedEmail = status.Email
	c.mu.Unlock()
	return status
}

// CompleteOAuth inspects the page query for the backend's completion marker.
// The query is an explicit input so the handshake is testable without a real
// navigation context; the caller rewrites its URL to the returned values.
//
// With no marker present this is a no-op: no network call, no state change,
// query returned unchanged. With the marker present the connection status is
// re-confirmed; on success the marker is stripped (all other parameters
// preserved) so the transition cannot re-enter on reload. If the backend
// reports no link despite the marker, or the confirmation call fails, the
// marker is kept so the condition stays diagnosable and ErrOAuthInconsistent
// is returned.
func (c *Controller) CompleteOAuth(ctx context.Context, query url.Values) (url.Values, error) {
	if query.Get(oauthMarkerKey) != oauthMarkerValue {
		return query, nil
	}

	c.mu.Lock()
	if c.oauthDone {
		c.mu.Unlock()
		return stripMarker(query), nil
	}
	if c.oauthConfirming {
		c.mu.Unlock()
		return query, nil
	}
	c.oauthConfirming = true
	c.mu.Unlock()

	status, err := c.api.GmailStatus(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.oauthConfirming = false

	if err != nil {
		c.oauthErr = ErrOAuthInconsistent.Error()
		return query, fmt.Errorf("%w: %v", ErrOAuthInconsistent, err)
	}
	if !status.Connected {
		c.oauthErr = ErrOAuthInconsistent.Error()
		return query, ErrOAuthInconsistent
	}

	c.connected = true
	c.connectedEmail = status.Email
	c.oauthDone = true
	c.oauthErr = ""
	return stripMarker(query), nil
}

// stripMarker returns a copy of query without the completion marker.
func stripMarker(query url.Values) url.Values {
	cleaned := make(url.Values, len(query))
	for k, vs := range query {
		if k == oauthMarkerKey {
			continue
		}
		cleaned[k] = append([]string(nil), vs...)
	}
	return cleaned
}

// ConnectURL is the browser navigation target that starts the Gmail OAuth
// flow on the backend.
func (c *Controller) ConnectURL() string { return c.api.ConnectURL() }

// User returns the authenticated user, or nil before Start succeeds.
func (c *Controller) User() *api.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Connected reports whether the mailbox is currently linked.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Disconnect unlinks the mailbox. The backend call is best-effort: the local
// connection state is reset whether or not it succeeds.
func (c *Controller) Disconnect(ctx context.Context) {
	_ = c.api.DisconnectGmail(ctx)

	c.mu.Lock()
	c.connected = false
	c.connectedEmail = ""
	c.oauthDone = false
	c.oauthErr = ""
	c.mu.Unlock()
}

// Logout ends the workflow session. The backend call is best-effort; local
// state is torn down regardless, destroying the caches and the company list.
func (c *Controller) Logout(ctx context.Context) {
	_ = c.api.Logout(ctx)
	c.Close()

	c.mu.Lock()
	c.user = nil
	c.sessionID = ""
	c.connected = false
	c.connectedEmail = ""
	c.oauthDone = false
	c.oauthErr = ""
	c.scan = scanState{phase: PhaseIdle}
	c.pendingLink = ""
	c.mu.Unlock()

	c.links.reset()
	c.letters.reset()
}

// Close releases controller resources, in particular any running scan
// progress ticker. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	run := c.scan.run
	c.mu.Unlock()
	if run != nil {
		run.halt()
	}
}

// letterIdentity resolves the name/email used in a letter request: the
// configured profile wins, the session user fills the gaps.
func (c *Controller) letterIdentity() (fullName, email string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fullName = c.profile.FullName
	email = c.profile.Email
	if c.user != nil {
		if fullName == "" {
			fullName = c.user.Name
		}
		if email == "" {
			email = c.user.Email
		}
	}
	return fullName, email
}
