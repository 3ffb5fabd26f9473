// Package template renders fallback opt-out letters locally. The backend
// writes the real, company-specific letters; this engine only covers the case
// where the backend cannot find enough public information and the user still
// wants a generic request they can paste into a contact form.
package template

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"text/template"
	"time"

	"github.com/spypry/spypry/internal/config"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// LetterData is what the fallback templates can reference.
type LetterData struct {
	FullName       string
	Email          string
	Product        string
	CompanyName    string
	CompanyWebsite string
	Date           string
	Year           int
}

// Letter is a rendered fallback letter. There is no recipient address; the
// backend could not find one, so delivery is up to the user.
type Letter struct {
	Subject string
	Body    string
}

// Engine renders the embedded fallback letter templates.
type Engine struct {
	templates map[string]*template.Template
}

func NewEngine() (*Engine, error) {
	e := &Engine{templates: make(map[string]*template.Template)}

	for _, name := range []string{"gdpr", "ccpa", "generic"} {
		content, err := embeddedTemplates.ReadFile("templates/" + name + ".tmpl")
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded template %s: %w", name, err)
		}
		tmpl, err := template.New(name).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		e.templates[name] = tmpl
	}
	return e, nil
}

// Render produces a fallback letter for a company. Profile fields fill the
// signature; empty ones render as blanks for the user to complete.
func (e *Engine) Render(templateName string, profile config.Profile, companyName, companyWebsite string) (*Letter, error) {
	tmpl, ok := e.templates[templateName]
	if !ok {
		return nil, fmt.Errorf("unknown template %q (available: %v)", templateName, e.AvailableTemplates())
	}

	now := time.Now()
	data := LetterData{
		FullName:       profile.FullName,
		Email:          profile.Email,
		Product:        profile.Product,
		CompanyName:    companyName,
		CompanyWebsite: companyWebsite,
		Date:           now.Format("January 2, 2006"),
		Year:           now.Year(),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Letter{
		Subject: subjectFor(templateName),
		Body:    buf.String(),
	}, nil
}

func subjectFor(templateName string) string {
	switch templateName {
	case "gdpr":
		return "Data Erasure Request - GDPR Article 17 Right to Erasure"
	case "ccpa":
		return "Data Deletion Request - CCPA Right to Delete Personal Information"
	default:
		return "Personal Data Removal Request"
	}
}

// AvailableTemplates returns the template names, sorted.
func (e *Engine) AvailableTemplates() []string {
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
