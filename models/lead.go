package models

import "time"

// RawListing holds one scraped business snapshot exactly as the extractor
// saw it. String fields use "" for absent; numeric fields that can be
// genuinely unknown (rather than zero) are pointers.
type RawListing struct {
	Name        string
	Address     string
	Phone       string
	Website     string
	Rating      *float64
	ReviewCount int
	Category    string
	// MapsLink is the stable per-business place URL and the only field
	// the merge logic treats as an identity key.
	MapsLink string
	PhotoURL string

	PhotoCount     int
	HasDescription bool
	HasServices    bool
	OwnerResponds  bool
	// NewestReviewAgeDays is nil when no reviews were found at all.
	NewestReviewAgeDays *int
	HasHours            bool
}

// ScoreResult is the outcome of scoring one listing. Higher score = weaker
// online presence = better sales prospect.
type ScoreResult struct {
	Score   int
	Reasons []string
}

// LeadRecord is the persisted entity: scraped fields, score, the
// operator-owned CRM fields, and run metadata.
type LeadRecord struct {
	RawListing
	ScoreResult

	// CRM fields — owned by the operator, never overwritten by a scrape.
	ContactStatus string
	LastContacted string
	Notes         string

	SearchQuery string
	ScrapedAt   time.Time
	CreatedAt   time.Time
}

// ScoredListing pairs a listing with its score for reporting; the reporter
// works on these without ever touching the store.
type ScoredListing struct {
	Listing *RawListing
	Result  ScoreResult
}

// RunSummary aggregates the per-listing outcomes of one pipeline run.
type RunSummary struct {
	RunID      string
	Query      string
	StartedAt  time.Time
	Attempted  int
	Skipped    int
	Saved      int
	FailedSave int
}

// Float64Ptr and IntPtr are small helpers for building listings with
// present optional fields, mostly in tests.
func Float64Ptr(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }
