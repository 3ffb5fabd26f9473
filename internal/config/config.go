package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	defaultBackendURL         = "http://localhost:8000"
	defaultListenAddr         = "127.0.0.1:8787"
	defaultProgressIntervalMs = 400
	defaultScanTimeoutSec     = 300
)

func checkFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %04o; should be 0600", path, perm)
	}
	return nil
}

type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Profile Profile       `yaml:"profile,omitempty"`
	Email   EmailConfig   `yaml:"email,omitempty"`
	Web     WebConfig     `yaml:"web,omitempty"`
	Scan    ScanConfig    `yaml:"scan,omitempty"`
}

// BackendConfig points at the SpyPry backend that holds the session and
// performs the actual mailbox scanning.
type BackendConfig struct {
	URL         string `yaml:"url"`
	SessionFile string `yaml:"session_file,omitempty"` // default: ~/.spypry/session.json
}

// Profile is the identity placed into generated opt-out letters. Empty
// fields fall back to the logged-in account.
type Profile struct {
	FullName string `yaml:"full_name,omitempty"`
	Email    string `yaml:"email,omitempty"`
	Product  string `yaml:"product,omitempty"` // e.g. "online account"
}

// EmailConfig holds the outbound SMTP settings used by `spypry letter --send`.
// Letter generation itself never needs this; only sending does.
type EmailConfig struct {
	From string     `yaml:"from"`
	SMTP SMTPConfig `yaml:"smtp,omitempty"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UseTLS   bool   `yaml:"use_tls"`
}

// WebConfig configures the local dashboard served by `spypry serve`.
type WebConfig struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// ScanConfig tunes the scan progress display and the request deadline.
type ScanConfig struct {
	ProgressIntervalMs int `yaml:"progress_interval_ms,omitempty"`
	TimeoutSec         int `yaml:"timeout_sec,omitempty"`
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".spypry", "config.yaml")
}

// Load reads and validates a config file, filling in defaults. A missing
// file is not an error; everything has a workable default.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		applyDefaults(&cfg)
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if permErr := checkFilePermissions(path); permErr != nil {
		fmt.Fprintf(os.Stderr, "WARNING: %v\n", permErr)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = defaultBackendURL
	}
	if cfg.Web.ListenAddr == "" {
		cfg.Web.ListenAddr = defaultListenAddr
	}
	if cfg.Scan.ProgressIntervalMs == 0 {
		cfg.Scan.ProgressIntervalMs = defaultProgressIntervalMs
	}
	if cfg.Scan.TimeoutSec == 0 {
		cfg.Scan.TimeoutSec = defaultScanTimeoutSec
	}
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend: url %q is not a valid http(s) URL", c.Backend.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend: url scheme %q is not supported", u.Scheme)
	}
	if c.Scan.ProgressIntervalMs < 0 {
		return fmt.Errorf("scan: progress_interval_ms must not be negative")
	}
	if c.Scan.TimeoutSec < 0 {
		return fmt.Errorf("scan: timeout_sec must not be negative")
	}
	return nil
}

// ValidateEmail checks the settings needed to actually send a letter. Only
// called by the send path; browsing and generating letters work without it.
func (c *Config) ValidateEmail() error {
	if c.Email.From == "" {
		return fmt.Errorf("email: from address is required")
	}
	if c.Email.SMTP.Host == "" {
		return fmt.Errorf("email.smtp: host is required")
	}
	if c.Email.SMTP.Port == 0 {
		return fmt.Errorf("email.smtp: port is required")
	}
	return nil
}
