package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: https://spypry.example.com
profile:
  full_name: Jordan Smith
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Backend.URL != "https://spypry.example.com" {
		t.Errorf("backend url = %q", cfg.Backend.URL)
	}
	if cfg.Web.ListenAddr != defaultListenAddr {
		t.Errorf("listen addr = %q, want default %q", cfg.Web.ListenAddr, defaultListenAddr)
	}
	if cfg.Scan.ProgressIntervalMs != defaultProgressIntervalMs {
		t.Errorf("progress interval = %d, want %d", cfg.Scan.ProgressIntervalMs, defaultProgressIntervalMs)
	}
	if cfg.Scan.TimeoutSec != defaultScanTimeoutSec {
		t.Errorf("scan timeout = %d, want %d", cfg.Scan.TimeoutSec, defaultScanTimeoutSec)
	}
	if cfg.Profile.FullName != "Jordan Smith" {
		t.Errorf("profile name = %q", cfg.Profile.FullName)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Backend.URL != defaultBackendURL {
		t.Errorf("backend url = %q, want %q", cfg.Backend.URL, defaultBackendURL)
	}
}

func TestLoadRejectsBadBackendURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"no scheme", "spypry.example.com"},
		{"wrong scheme", "ftp://spypry.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "backend:\n  url: "+tt.url+"\n")
			if _, err := Load(path); err == nil {
				t.Errorf("Load() accepted backend url %q", tt.url)
			}
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "backend: [not: a: mapping\n")
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted malformed YAML")
	}
}

func TestValidateEmail(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateEmail(); err == nil {
		t.Error("ValidateEmail() accepted empty email config")
	}

	cfg.Email.From = "me@example.com"
	cfg.Email.SMTP.Host = "smtp.example.com"
	cfg.Email.SMTP.Port = 587
	if err := cfg.ValidateEmail(); err != nil {
		t.Errorf("ValidateEmail() error: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{
		Backend: BackendConfig{URL: "http://localhost:9000"},
		Profile: Profile{FullName: "Jordan Smith", Product: "newsletter"},
	}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Backend.URL != "http://localhost:9000" {
		t.Errorf("backend url = %q", loaded.Backend.URL)
	}
	if loaded.Profile.Product != "newsletter" {
		t.Errorf("product = %q", loaded.Profile.Product)
	}
}
