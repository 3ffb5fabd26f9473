package api

// User identifies the authenticated principal, as reported by GET /me.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// ConnectionStatus is the backend's answer to "is the mailbox linked?".
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Email     string `json:"email,omitempty"`
}

// Confidence is the backend's coarse estimate that a detected account is genuine.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Evidence names the kind of email that suggested an account exists.
type Evidence string

const (
	EvidenceWelcome    Evidence = "welcome"
	EvidenceReceipt    Evidence = "receipt"
	EvidenceReset      Evidence = "reset"
	EvidenceLoginAlert Evidence = "login_alert"
)

// Company is one detected account from a mailbox scan. Domain is the stable
// identity used as the cache key for all per-company lookups.
type Company struct {
	Domain      string     `json:"domain"`
	DisplayName string     `json:"displayName,omitempty"`
	Confidence  Confidence `json:"confidence"`
	Evidence    []Evidence `json:"evidence"`
	LastSeen    string     `json:"lastSeen,omitempty"` // yyyy-mm-dd
	Count       int        `json:"count,omitempty"`
}

// LinkPurpose classifies what a discovered URL is actually for.
type LinkPurpose string

const (
	PurposeAccountDelete  LinkPurpose = "account_delete"
	PurposePrivacyRights  LinkPurpose = "privacy_rights"
	PurposeContactSupport LinkPurpose = "contact_support"
	PurposeUnknown        LinkPurpose = "unknown"
)

// Valid reports whether p is one of the known purposes.
func (p LinkPurpose) Valid() bool {
	switch p {
	case PurposeAccountDelete, PurposePrivacyRights, PurposeContactSupport, PurposeUnknown:
		return true
	}
	return false
}

// EvidenceItem is one search hit backing a delete-link result.
type EvidenceItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// DeleteLinkResult is the backend's best guess at an official
// account-deletion or privacy-contact link for a domain.
type DeleteLinkResult struct {
	Domain     string         `json:"domain"`
	BestURL    *string        `json:"best_url"`
	Purpose    LinkPurpose    `json:"purpose"`
	Confidence float64        `json:"confidence"`
	Steps      []string       `json:"steps"`
	Evidence   []EvidenceItem `json:"evidence"`
	Notes      string         `json:"notes"`
}

// LetterRequest is the body of POST /letter/generate.
type LetterRequest struct {
	CompanyName          string `json:"company_name"`
	CompanyWebsiteURL    string `json:"company_website_url"`
	ProductOrServiceUsed string `json:"product_or_service_used"`
	UserFullName         string `json:"user_full_name"`
	UserEmail            string `json:"user_email"`
}

// MissingFields reports which prerequisites the backend could not discover
// for letter generation. This is a business-rule outcome, not a transport error.
type MissingFields struct {
	PrivacyPolicyURL    bool `json:"privacy_policy_url"`
	PrivacyContactEmail bool `json:"privacy_contact_email"`
}

// LetterResponse is the backend's answer to a generation request. When OK is
// false, Missing says what could not be found and the letter fields are empty.
type LetterResponse struct {
	OK           bool           `json:"ok"`
	Letter       string         `json:"letter,omitempty"`
	EmailAddress string         `json:"email_address,omitempty"`
	CompanyName  string         `json:"company_name,omitempty"`
	EmailSubject string         `json:"email_subject,omitempty"`
	Missing      *MissingFields `json:"missing,omitempty"`
}
