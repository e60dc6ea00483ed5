package storage

import (
	"time"

	"lead-scraper/models"
)

// LeadStore is the interface any persistent lead backend must satisfy.
// Upsert merges a freshly scraped listing into the store keyed by its maps
// link: scraped fields, score, and metadata are overwritten on every call,
// while operator-owned CRM fields and created_at survive from the first
// insert. Each Upsert is atomic.
type LeadStore interface {
	Upsert(listing *models.RawListing, score models.ScoreResult, query string, now time.Time) (*models.LeadRecord, error)
	QueryByScore(minScore int) ([]*models.LeadRecord, error)
	Close() error
}
