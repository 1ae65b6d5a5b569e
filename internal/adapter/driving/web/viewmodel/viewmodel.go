// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// NavItem is one entry of the persistent sidebar.
type NavItem struct {
	Label  string
	Path   string
	Active bool
}

// FlashViewModel is a one-shot notice shown at the top of a page.
type FlashViewModel struct {
	Kind    string // "success" or "error"
	Message string
}

// ShellViewModel holds the data the page layout needs around the content.
type ShellViewModel struct {
	Title          string
	Nav            []NavItem
	Flash          *FlashViewModel
	RefreshSeconds int // Non-zero adds a meta refresh to the page head.
}

// CredentialViewModel holds presentation-ready data for one key card.
// The secret is only carried masked.
type CredentialViewModel struct {
	ID          string
	Provider    string
	Name        string
	MaskedKey   string
	IsActive    bool
	CreatedAt   string
	ActivateURL string
	RemoveURL   string
}

// KeyFormViewModel holds the add-key form values and per-field errors.
type KeyFormViewModel struct {
	Provider string
	Name     string
	Errors   map[string]string
}

// KeysPageViewModel holds everything rendered on the key management page.
type KeysPageViewModel struct {
	CSRFToken   string
	Credentials []CredentialViewModel
	Form        KeyFormViewModel
	AddURL      string
	ShowForm    bool // Re-open the form after a validation failure.
}

// OptionViewModel is one choice of a select or radio group.
type OptionViewModel struct {
	Value    string
	Label    string
	Selected bool
}

// GenerationFormViewModel holds the generation form values and per-field errors.
type GenerationFormViewModel struct {
	URL         string
	Modes       []OptionViewModel
	VoiceModels []OptionViewModel
	Personality string
	Errors      map[string]string
}

// JobViewModel holds presentation-ready data for a generation job.
type JobViewModel struct {
	ID              string
	SourceURL       string
	SourceTitle     string
	ModeLabel       string
	VoiceModelLabel string
	StyleHTML       string // Sanitized HTML rendered from the style prompt.
	Status          string
	Progress        int
	Message         string
	ResultURL       string
	Error           string
	CreatedAt       string
	IsTerminal      bool
	IsCompleted     bool
	CanCancel       bool
	DetailPath      string
	CancelURL       string
}

// CreatePageViewModel holds everything rendered on the generation page.
type CreatePageViewModel struct {
	CSRFToken        string
	Form             GenerationFormViewModel
	SubmitURL        string
	ActiveCredential string // Name of the active key; empty when none.
	RecentJobs       []JobViewModel
}

// JobPageViewModel holds the job status page.
type JobPageViewModel struct {
	CSRFToken string
	Job       JobViewModel
}
