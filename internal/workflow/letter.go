package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/spypry/spypry/internal/api"
)

// Letter is a generated opt-out letter, ready to show or send.
type Letter struct {
	Body         string
	EmailAddress string
	CompanyName  string
	Subject      string
}

// LetterOutcome discriminates the three ways generation can go: a letter
// (fresh or cached), or a structured report of which prerequisites the
// backend could not find. Transport failures are returned as errors, never
// as an outcome.
type LetterOutcome struct {
	Letter    *Letter
	Missing   *api.MissingFields
	FromCache bool
}

// GenerateLetter produces an opt-out letter for a company, keyed by domain.
//
// A cached letter is returned immediately with FromCache set — presentation
// treats that as "view" rather than "generate". Otherwise a website URL is
// derived from the domain (or synthesized from the company name when no
// domain exists), the backend is asked once, and the response interpreted:
// a complete success is cached and returned; a failure or incomplete
// response becomes a missing-fields outcome and caches nothing; a transport
// failure is an error distinct from both, also caching nothing.
func (c *Controller) GenerateLetter(ctx context.Context, domain, companyName string) (LetterOutcome, error) {
	if cached, ok := c.letters.get(domain); ok {
		c.letters.setOpen(domain)
		return LetterOutcome{Letter: &cached, FromCache: true}, nil
	}

	gen := c.letters.begin(domain)

	fullName, email := c.letterIdentity()
	req := api.LetterRequest{
		CompanyName:          companyName,
		CompanyWebsiteURL:    websiteURL(domain, companyName),
		ProductOrServiceUsed: c.profile.Product,
		UserFullName:         fullName,
		UserEmail:            email,
	}

	resp, err := c.api.GenerateLetter(ctx, req)
	if err != nil {
		c.letters.fail(domain, gen)
		return LetterOutcome{}, fmt.Errorf("generate letter for %s: %w", companyName, err)
	}

	if !resp.OK || resp.Letter == "" || resp.EmailAddress == "" || resp.EmailSubject == "" {
		c.letters.fail(domain, gen)
		missing := api.MissingFields{}
		if resp.Missing != nil {
			missing = *resp.Missing
		}
		return LetterOutcome{Missing: &missing}, nil
	}

	letter := Letter{
		Body:         resp.Letter,
		EmailAddress: resp.EmailAddress,
		CompanyName:  resp.CompanyName,
		Subject:      resp.EmailSubject,
	}
	if letter.CompanyName == "" {
		letter.CompanyName = companyName
	}

	if !c.letters.complete(domain, gen, letter) {
		if current, ok := c.letters.get(domain); ok {
			return LetterOutcome{Letter: &current, FromCache: true}, nil
		}
	}
	return LetterOutcome{Letter: &letter}, nil
}

// CachedLetter returns the letter previously generated for domain, if any.
func (c *Controller) CachedLetter(domain string) (Letter, bool) {
	return c.letters.get(domain)
}

// CloseLetter dismisses the currently open letter.
func (c *Controller) CloseLetter() {
	c.letters.closeOpen()
}

// websiteURL derives the company_website_url field for a generation request:
// the domain with a scheme prefixed when absent, or, with no domain at all, a
// best-guess URL built from the sanitized company name.
func websiteURL(domain, companyName string) string {
	d := strings.TrimSpace(domain)
	if d != "" {
		if strings.HasPrefix(d, "http://") || strings.HasPrefix(d, "https://") {
			return d
		}
		return "https://" + d
	}

	name := sanitizeCompanyName(companyName)
	if name == "" {
		return ""
	}
	return "https://" + name + ".com"
}

// sanitizeCompanyName lowercases a display name and strips everything but
// letters and digits, e.g. "Old Forum!" -> "oldforum".
func sanitizeCompanyName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CompanyDisplayName is the human label for a scan result: the backend's
// display name when present, otherwise the capitalized first label of the
// domain ("netflix.com" -> "Netflix").
func CompanyDisplayName(company api.Company) string {
	if company.DisplayName != "" {
		return company.DisplayName
	}
	label := company.Domain
	if i := strings.IndexByte(label, '.'); i > 0 {
		label = label[:i]
	}
	if label == "" {
		return company.Domain
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
