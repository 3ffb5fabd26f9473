package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultCacheFillIsIdempotent(t *testing.T) {
	c := newResultCache[string]()

	gen := c.begin("acme.com")
	assert.True(t, c.complete("acme.com", gen, "first"))

	gen2 := c.begin("acme.com")
	assert.True(t, c.complete("acme.com", gen2, "second"))

	v, ok := c.get("acme.com")
	assert.True(t, ok)
	assert.Equal(t, "first", v, "an existing entry is never overwritten")
}

func TestResultCacheDiscardsStaleCompletion(t *testing.T) {
	c := newResultCache[string]()

	stale := c.begin("acme.com")
	fresh := c.begin("acme.com")

	assert.False(t, c.complete("acme.com", stale, "stale"), "superseded request must not land")
	_, ok := c.get("acme.com")
	assert.False(t, ok)

	assert.True(t, c.complete("acme.com", fresh, "fresh"))
	v, _ := c.get("acme.com")
	assert.Equal(t, "fresh", v)
}

func TestResultCacheStaleFailureDoesNotClearNewerRequest(t *testing.T) {
	c := newResultCache[string]()

	stale := c.begin("acme.com")
	fresh := c.begin("acme.com")

	c.fail("acme.com", stale)
	assert.True(t, c.isLoading("acme.com"), "newer request still in flight")

	c.fail("acme.com", fresh)
	assert.False(t, c.isLoading("acme.com"))
}

func TestResultCacheOpenTracking(t *testing.T) {
	c := newResultCache[int]()

	c.setOpen("acme.com")
	_, _, ok := c.openResult()
	assert.False(t, ok, "cannot open what is not cached")

	gen := c.begin("acme.com")
	c.complete("acme.com", gen, 42)

	domain, v, ok := c.openResult()
	assert.True(t, ok, "completion opens the result")
	assert.Equal(t, "acme.com", domain)
	assert.Equal(t, 42, v)

	c.closeOpen()
	_, _, ok = c.openResult()
	assert.False(t, ok)

	c.setOpen("acme.com")
	_, v, ok = c.openResult()
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestResultCacheReset(t *testing.T) {
	c := newResultCache[string]()
	gen := c.begin("acme.com")
	c.complete("acme.com", gen, "value")
	c.begin("netflix.com")

	c.reset()

	_, ok := c.get("acme.com")
	assert.False(t, ok)
	assert.False(t, c.isLoading("netflix.com"))
	assert.Empty(t, c.loadingDomains())
	_, _, open := c.openResult()
	assert.False(t, open)
}
