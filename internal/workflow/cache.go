package workflow

import "sync"

// resultCache memoizes one result per domain for the lifetime of a workflow
// session. Both per-company workflows (delete-link lookup and letter
// generation) share this shape: a cache map, per-domain loading flags, the
// domain whose result is currently open in the UI, and a per-domain request
// generation used to discard stale completions.
//
// The fill is idempotent: once a domain has a result it is never overwritten
// by a later completion for the same domain.
type resultCache[T any] struct {
	mu      sync.Mutex
	results map[string]T
	loading map[string]bool
	gen     map[string]uint64
	open    string // domain of the currently open result, "" when none
}

func newResultCache[T any]() *resultCache[T] {
	return &resultCache[T]{
		results: make(map[string]T),
		loading: make(map[string]bool),
		gen:     make(map[string]uint64),
	}
}

// get returns the cached result for domain, if any.
func (c *resultCache[T]) get(domain string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.results[domain]
	return v, ok
}

// begin marks domain as loading and returns the generation number for this
// request. A later begin for the same domain invalidates earlier generations.
func (c *resultCache[T]) begin(domain string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[domain]++
	c.loading[domain] = true
	return c.gen[domain]
}

// complete records a successful result for domain. It returns false when a
// newer request for the same domain has started since gen was issued, in
// which case nothing is stored and the caller should discard the response.
func (c *resultCache[T]) complete(domain string, gen uint64, v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[domain] != gen {
		return false
	}
	delete(c.loading, domain)
	if _, exists := c.results[domain]; !exists {
		c.results[domain] = v
	}
	c.open = domain
	return true
}

// fail clears the loading flag after a transport failure, leaving the cache
// entry absent so a retry is possible. The open result is cleared only if it
// was not superseded by a newer request.
func (c *resultCache[T]) fail(domain string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[domain] != gen {
		return
	}
	delete(c.loading, domain)
	c.open = ""
}

// setOpen makes domain the currently open result. No-op unless cached.
func (c *resultCache[T]) setOpen(domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.results[domain]; ok {
		c.open = domain
	}
}

// closeOpen clears the currently open result without touching the cache.
func (c *resultCache[T]) closeOpen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = ""
}

// openResult returns the currently open result, if one is open and cached.
func (c *resultCache[T]) openResult() (string, T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if c.open == "" {
		return "", zero, false
	}
	v, ok := c.results[c.open]
	if !ok {
		return "", zero, false
	}
	return c.open, v, true
}

// isLoading reports whether a request for domain is in flight.
func (c *resultCache[T]) isLoading(domain string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading[domain]
}

// loadingDomains returns a copy of the set of in-flight domains.
func (c *resultCache[T]) loadingDomains() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]bool, len(c.loading))
	for d := range c.loading {
		out[d] = true
	}
	return out
}

// reset drops everything; used at logout when the workflow session ends.
func (c *resultCache[T]) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = make(map[string]T)
	c.loading = make(map[string]bool)
	c.gen = make(map[string]uint64)
	c.open = ""
}
