// Package linkcheck verifies discovered delete links before the user trusts
// them: it fetches the page and checks whether it actually talks about
// account deletion or privacy rights, rather than being a dead link or a
// generic marketing page.
package linkcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Patterns that indicate the page really is about deleting an account or
// exercising privacy rights.
var (
	strongPatterns = []string{
		"delete your account", "delete my account", "account deletion",
		"close your account", "close my account",
		"erase your data", "right to erasure", "right to be forgotten",
		"data deletion request", "deletion request",
		"do not sell", "ccpa", "gdpr",
	}

	moderatePatterns = []string{
		"privacy rights", "privacy request", "data subject",
		"personal data", "personal information",
		"opt out", "opt-out",
		"delete", "deletion", "erasure",
	}

	// Patterns that disqualify the page outright.
	deadPatterns = []string{
		"page not found", "404", "no longer available",
		"access denied", "forbidden",
	}
)

// Verdict is the result of checking one discovered link.
type Verdict struct {
	URL        string
	FinalURL   string
	StatusCode int
	Reachable  bool
	Title      string
	Score      int
	Matched    []string
	Assessment string
}

// Checker fetches and assesses candidate deletion pages.
type Checker struct {
	client *http.Client
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checker) { c.client = hc }
}

func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check fetches the URL and scores the page content. A network failure is an
// error; an unpromising page is a Verdict with a low score, not an error.
func (c *Checker) Check(ctx context.Context, rawURL string) (*Verdict, error) {
	verdict := &Verdict{URL: rawURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	// Some privacy pages refuse obvious non-browser agents.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	verdict.StatusCode = resp.StatusCode
	verdict.FinalURL = resp.Request.URL.String()
	verdict.Reachable = resp.StatusCode >= 200 && resp.StatusCode < 400

	if !verdict.Reachable {
		verdict.Assessment = fmt.Sprintf("page returned HTTP %d", resp.StatusCode)
		return verdict, nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	verdict.Title = strings.TrimSpace(doc.Find("title").First().Text())
	verdict.Score, verdict.Matched = scorePage(doc)
	verdict.Assessment = assess(verdict.Score)
	return verdict, nil
}

// scorePage weighs the page's title, headings and body text. Headings count
// more than body text; a dead-page marker zeroes everything.
func scorePage(doc *goquery.Document) (int, []string) {
	title := strings.ToLower(doc.Find("title").First().Text())

	var headings strings.Builder
	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		headings.WriteString(strings.ToLower(s.Text()))
		headings.WriteString(" ")
	})

	body := strings.ToLower(doc.Find("body").Text())

	for _, p := range deadPatterns {
		if strings.Contains(title, p) || strings.Contains(headings.String(), p) {
			return 0, nil
		}
	}

	score := 0
	var matched []string
	seen := make(map[string]bool)

	add := func(pattern string, points int) {
		if seen[pattern] {
			return
		}
		seen[pattern] = true
		score += points
		matched = append(matched, pattern)
	}

	for _, p := range strongPatterns {
		if strings.Contains(title, p) || strings.Contains(headings.String(), p) {
			add(p, 10)
		} else if strings.Contains(body, p) {
			add(p, 5)
		}
	}
	for _, p := range moderatePatterns {
		if strings.Contains(title, p) || strings.Contains(headings.String(), p) {
			add(p, 3)
		} else if strings.Contains(body, p) {
			add(p, 1)
		}
	}

	// A form on a deletion-flavored page is a good sign it is actionable.
	if score > 0 && doc.Find("form").Length() > 0 {
		add("has form", 3)
	}

	return score, matched
}

func assess(score int) string {
	switch {
	case score >= 10:
		return "page clearly covers account deletion or privacy rights"
	case score >= 4:
		return "page mentions deletion or privacy but may be generic"
	case score > 0:
		return "page barely mentions deletion; verify manually"
	default:
		return "page does not appear to cover account deletion"
	}
}
