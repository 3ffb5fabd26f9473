// Package history keeps a local activity log: finished scans, delete-link
// lookups, and generated or sent opt-out letters. Everything lives in a
// single sqlite file under the user's home directory; nothing here ever
// leaves the machine.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// LetterStatus tracks how far an opt-out letter got.
type LetterStatus string

const (
	LetterGenerated LetterStatus = "generated"
	LetterSent      LetterStatus = "sent"
	LetterFailed    LetterStatus = "failed"
)

// ScanRecord is one finished mailbox scan.
type ScanRecord struct {
	ID             int64
	SessionID      string
	CompaniesFound int
	Error          string
	CreatedAt      time.Time
}

// LookupRecord is one delete-link discovery outcome.
type LookupRecord struct {
	ID         int64
	Domain     string
	Purpose    string
	BestURL    string
	Confidence float64
	CreatedAt  time.Time
}

// LetterRecord is one generated letter and, if it was sent, the send outcome.
type LetterRecord struct {
	ID           int64
	Domain       string
	CompanyName  string
	EmailAddress string
	Subject      string
	Status       LetterStatus
	Error        string
	SentAt       time.Time
	CreatedAt    time.Time
}

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		companies_found INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);

	CREATE TABLE IF NOT EXISTS lookups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		purpose TEXT NOT NULL,
		best_url TEXT,
		confidence REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_lookups_domain ON lookups(domain);

	CREATE TABLE IF NOT EXISTS letters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		company_name TEXT NOT NULL,
		email_address TEXT,
		subject TEXT,
		status TEXT NOT NULL,
		error TEXT,
		sent_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_letters_domain ON letters(domain);
	CREATE INDEX IF NOT EXISTS idx_letters_status ON letters(status);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *Store) AddScan(record *ScanRecord) error {
	result, err := s.db.Exec(
		`INSERT INTO scans (session_id, companies_found, error, created_at) VALUES (?, ?, ?, ?)`,
		record.SessionID, record.CompaniesFound, record.Error, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id
	return nil
}

func (s *Store) RecentScans(limit int) ([]ScanRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, companies_found, error, created_at FROM scans ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var r ScanRecord
		var errStr sql.NullString
		var createdAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.SessionID, &r.CompaniesFound, &errStr, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Error = errStr.String
		r.CreatedAt = createdAt.Time
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) AddLookup(record *LookupRecord) error {
	result, err := s.db.Exec(
		`INSERT INTO lookups (domain, purpose, best_url, confidence, created_at) VALUES (?, ?, ?, ?, ?)`,
		record.Domain, record.Purpose, record.BestURL, record.Confidence, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lookup: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id
	return nil
}

func (s *Store) LastLookupForDomain(domain string) (*LookupRecord, error) {
	var r LookupRecord
	var bestURL sql.NullString
	var confidence sql.NullFloat64
	var createdAt sql.NullTime

	err := s.db.QueryRow(
		`SELECT id, domain, purpose, best_url, confidence, created_at
		 FROM lookups WHERE domain = ? ORDER BY created_at DESC LIMIT 1`,
		domain,
	).Scan(&r.ID, &r.Domain, &r.Purpose, &bestURL, &confidence, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query lookup: %w", err)
	}

	r.BestURL = bestURL.String
	r.Confidence = confidence.Float64
	r.CreatedAt = createdAt.Time
	return &r, nil
}

func (s *Store) RecentLookups(limit int) ([]LookupRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, domain, purpose, best_url, confidence, created_at
		 FROM lookups ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookups: %w", err)
	}
	defer rows.Close()

	var records []LookupRecord
	for rows.Next() {
		var r LookupRecord
		var bestURL sql.NullString
		var confidence sql.NullFloat64
		var createdAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.Domain, &r.Purpose, &bestURL, &confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.BestURL = bestURL.String
		r.Confidence = confidence.Float64
		r.CreatedAt = createdAt.Time
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) AddLetter(record *LetterRecord) error {
	result, err := s.db.Exec(
		`INSERT INTO letters (domain, company_name, email_address, subject, status, error, sent_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Domain, record.CompanyName, record.EmailAddress, record.Subject,
		record.Status, record.Error, record.SentAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert letter: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id
	return nil
}

// MarkLetterSent records the outcome of an SMTP send for a previously
// generated letter.
func (s *Store) MarkLetterSent(id int64, sendErr error) error {
	status := LetterSent
	errStr := ""
	if sendErr != nil {
		status = LetterFailed
		errStr = sendErr.Error()
	}

	_, err := s.db.Exec(
		`UPDATE letters SET status = ?, error = ?, sent_at = ? WHERE id = ?`,
		status, errStr, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update letter: %w", err)
	}
	return nil
}

func (s *Store) RecentLetters(limit int) ([]LetterRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, domain, company_name, email_address, subject, status, error, sent_at, created_at
		 FROM letters ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query letters: %w", err)
	}
	defer rows.Close()

	var records []LetterRecord
	for rows.Next() {
		var r LetterRecord
		var emailAddress, subject, errStr sql.NullString
		var sentAt, createdAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.Domain, &r.CompanyName, &emailAddress, &subject,
			&r.Status, &errStr, &sentAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.EmailAddress = emailAddress.String
		r.Subject = subject.String
		r.Error = errStr.String
		r.SentAt = sentAt.Time
		r.CreatedAt = createdAt.Time
		records = append(records, r)
	}
	return records, rows.Err()
}

// Stats summarizes the activity log for `spypry history`.
func (s *Store) Stats() (scans, lookups, lettersSent int, err error) {
	err = s.db.QueryRow(`SELECT COUNT(*) FROM scans`).Scan(&scans)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count scans: %w", err)
	}
	err = s.db.QueryRow(`SELECT COUNT(*) FROM lookups`).Scan(&lookups)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count lookups: %w", err)
	}
	err = s.db.QueryRow(`SELECT COUNT(*) FROM letters WHERE status = ?`, LetterSent).Scan(&lettersSent)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count letters: %w", err)
	}
	return scans, lookups, lettersSent, nil
}

func (s *Store) Close() error { return s.db.Close() }

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "spypry_history.db"
	}
	return filepath.Join(home, ".spypry", "history.db")
}
