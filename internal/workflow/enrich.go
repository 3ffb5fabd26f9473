package workflow

import (
	"context"
	"fmt"

	"github.com/spypry/spypry/internal/api"
)

// searchingPlaceholder is the synthetic result displayed for a domain while
// its real lookup is in flight: nothing found yet, nothing claimed.
func searchingPlaceholder(domain string) api.DeleteLinkResult {
	return api.DeleteLinkResult{
		Domain:     domain,
		BestURL:    nil,
		Purpose:    api.PurposeUnknown,
		Confidence: 0,
		Steps:      []string{},
		Evidence:   []api.EvidenceItem{},
		Notes:      "Searching for an official deletion link",
	}
}

// LookupDeleteLink resolves the best deletion/privacy link for a domain.
//
// A cached result is returned immediately, with no network call, and becomes
// the open result. Otherwise the domain is marked loading (Snapshot shows a
// searching placeholder meanwhile), the backend is asked once, and a
// successful answer fills the cache — idempotently, an existing entry is
// never overwritten — and opens the result. On transport failure the loading
// flag and open result are cleared and the cache entry stays absent so the
// lookup can be retried.
//
// If the same domain is re-triggered while a lookup is in flight, the earlier
// completion is discarded by generation fencing rather than overwriting the
// newer request's outcome.
func (c *Controller) LookupDeleteLink(ctx context.Context, domain string) (api.DeleteLinkResult, error) {
	if cached, ok := c.links.get(domain); ok {
		c.links.setOpen(domain)
		return cached, nil
	}

	gen := c.links.begin(domain)
	c.mu.Lock()
	c.pendingLink = domain
	c.mu.Unlock()

	result, err := c.api.FindDeleteLink(ctx, domain)

	if err != nil {
		c.links.fail(domain, gen)
		c.clearPendingLink(domain)
		return api.DeleteLinkResult{}, fmt.Errorf("find delete link for %s: %w", domain, err)
	}

	if !c.links.complete(domain, gen, result) {
		// A newer lookup for this domain superseded us. Serve whatever the
		// cache holds now; our response must not become visible state.
		if current, ok := c.links.get(domain); ok {
			return current, nil
		}
		return result, nil
	}

	c.clearPendingLink(domain)
	return result, nil
}

func (c *Controller) clearPendingLink(domain string) {
	c.mu.Lock()
	if c.pendingLink == domain {
		c.pendingLink = ""
	}
	c.mu.Unlock()
}

// CloseLink dismisses the currently open delete-link result.
func (c *Controller) CloseLink() {
	c.links.closeOpen()
}

// LinkLoading reports whether a lookup for domain is in flight.
func (c *Controller) LinkLoading(domain string) bool {
	return c.links.isLoading(domain)
}
