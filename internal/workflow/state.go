package workflow

import "github.com/spypry/spypry/internal/api"

// ScanView is the orchestrator state as presentation sees it.
type ScanView struct {
	Phase     ScanPhase     `json:"phase"`
	Step      int           `json:"step"`
	StepLabel string        `json:"step_label"`
	Companies []api.Company `json:"companies"`
	Err       string        `json:"error,omitempty"`
}

// State is one coherent snapshot of the whole workflow, deep-copied so
// presentation never aliases controller internals.
type State struct {
	SessionID      string                `json:"session_id,omitempty"`
	Loading        bool                  `json:"loading"`
	User           *api.User             `json:"user,omitempty"`
	Connected      bool                  `json:"connected"`
	ConnectedEmail string                `json:"connected_email,omitempty"`
	OAuthError     string                `json:"oauth_error,omitempty"`
	Scan           ScanView              `json:"scan"`
	OpenLink       *api.DeleteLinkResult `json:"open_link,omitempty"`
	LinkLoading    map[string]bool       `json:"link_loading,omitempty"`
	OpenLetter     *Letter               `json:"open_letter,omitempty"`
	OpenLetterFor  string                `json:"open_letter_for,omitempty"`
	LetterLoading  map[string]bool       `json:"letter_loading,omitempty"`
}

// Snapshot captures the current view state. While a delete-link lookup is in
// flight and nothing else is open, OpenLink carries the searching
// placeholder so the UI has something to show immediately.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	st := State{
		SessionID:      c.sessionID,
		Loading:        c.starting,
		Connected:      c.connected,
		ConnectedEmail: c.connectedEmail,
		OAuthError:     c.oauthErr,
		Scan: ScanView{
			Phase:     c.scan.phase,
			Step:      c.scan.step,
			StepLabel: ScanSteps[min(c.scan.step, len(ScanSteps)-1)],
			Companies: append([]api.Company(nil), c.scan.companies...),
			Err:       c.scan.err,
		},
	}
	if c.user != nil {
		u := *c.user
		st.User = &u
	}
	pendingLink := c.pendingLink
	c.mu.Unlock()

	if _, link, ok := c.links.openResult(); ok {
		l := link
		st.OpenLink = &l
	} else if pendingLink != "" && c.links.isLoading(pendingLink) {
		placeholder := searchingPlaceholder(pendingLink)
		st.OpenLink = &placeholder
	}
	st.LinkLoading = c.links.loadingDomains()

	if domain, letter, ok := c.letters.openResult(); ok {
		l := letter
		st.OpenLetter = &l
		st.OpenLetterFor = domain
	}
	st.LetterLoading = c.letters.loadingDomains()

	return st
}
