// Package ignore keeps a local list of companies the user has already dealt
// with, so finished work stops cluttering scan output. The list is a small
// YAML file in the user's home directory and never leaves the machine.
package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spypry/spypry/internal/api"
)

// Entry is one domain the user considers handled.
type Entry struct {
	Domain  string    `yaml:"domain"`
	Reason  string    `yaml:"reason,omitempty"` // e.g. "account deleted", "letter sent"
	AddedAt time.Time `yaml:"added_at"`
}

type List struct {
	Entries []Entry `yaml:"ignored"`
}

func normalize(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// Load reads the list from path. A missing file is an empty list.
func Load(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &List{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore list: %w", err)
	}

	var list List
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse ignore list: %w", err)
	}
	return &list, nil
}

func (l *List) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to serialize ignore list: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Add records a domain as handled. Adding a domain twice is an error so a
// typo'd reason does not silently shadow the original entry.
func (l *List) Add(domain, reason string) error {
	d := normalize(domain)
	if d == "" {
		return fmt.Errorf("domain is required")
	}
	if l.Contains(d) {
		return fmt.Errorf("%s is already ignored", d)
	}
	l.Entries = append(l.Entries, Entry{Domain: d, Reason: reason, AddedAt: time.Now()})
	return nil
}

// Remove deletes a domain from the list, returning the removed entry or nil.
func (l *List) Remove(domain string) *Entry {
	d := normalize(domain)
	for i := range l.Entries {
		if l.Entries[i].Domain == d {
			removed := l.Entries[i]
			l.Entries = append(l.Entries[:i], l.Entries[i+1:]...)
			return &removed
		}
	}
	return nil
}

func (l *List) Contains(domain string) bool {
	d := normalize(domain)
	for i := range l.Entries {
		if l.Entries[i].Domain == d {
			return true
		}
	}
	return false
}

// Filter returns the companies not on the list, in their original order.
func (l *List) Filter(companies []api.Company) []api.Company {
	if len(l.Entries) == 0 {
		return companies
	}
	var result []api.Company
	for _, c := range companies {
		if !l.Contains(c.Domain) {
			result = append(result, c)
		}
	}
	return result
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ignore.yaml"
	}
	return filepath.Join(home, ".spypry", "ignore.yaml")
}
