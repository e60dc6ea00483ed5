package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lead-scraper/models"
)

// snapshot is the JSON shape of one run artifact: a header describing the
// run followed by the filtered leads. The snapshot is a derived, disposable
// view; the store stays the source of truth.
type snapshot struct {
	RunID       string         `json:"run_id"`
	Query       string         `json:"query"`
	GeneratedAt time.Time      `json:"generated_at"`
	Attempted   int            `json:"attempted"`
	Skipped     int            `json:"skipped"`
	Saved       int            `json:"saved"`
	FailedSave  int            `json:"failed_save"`
	Leads       []snapshotLead `json:"leads"`
}

type snapshotLead struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`

	Name        string   `json:"name"`
	Category    string   `json:"category,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Website     string   `json:"website,omitempty"`
	Address     string   `json:"address,omitempty"`
	MapsLink    string   `json:"maps_link"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount int      `json:"review_count"`
	PhotoURL    string   `json:"photo_url,omitempty"`
	PhotoCount  int      `json:"photo_count"`

	HasDescription      bool `json:"has_description"`
	HasServices         bool `json:"has_services"`
	OwnerResponds       bool `json:"owner_responds"`
	NewestReviewAgeDays *int `json:"newest_review_age_days,omitempty"`
	HasHours            bool `json:"has_hours"`
}

// WriteSnapshot writes the JSON snapshot for one run. Intermediate
// directories are created automatically.
func WriteSnapshot(path string, summary *models.RunSummary, leads []*models.ScoredListing) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("snapshot: create output dir: %w", err)
	}

	snap := snapshot{
		RunID:       summary.RunID,
		Query:       summary.Query,
		GeneratedAt: summary.StartedAt,
		Attempted:   summary.Attempted,
		Skipped:     summary.Skipped,
		Saved:       summary.Saved,
		FailedSave:  summary.FailedSave,
		Leads:       make([]snapshotLead, 0, len(leads)),
	}

	for _, sl := range leads {
		l := sl.Listing
		snap.Leads = append(snap.Leads, snapshotLead{
			Score:               sl.Result.Score,
			Reasons:             sl.Result.Reasons,
			Name:                l.Name,
			Category:            l.Category,
			Phone:               l.Phone,
			Website:             l.Website,
			Address:             l.Address,
			MapsLink:            l.MapsLink,
			Rating:              l.Rating,
			ReviewCount:         l.ReviewCount,
			PhotoURL:            l.PhotoURL,
			PhotoCount:          l.PhotoCount,
			HasDescription:      l.HasDescription,
			HasServices:         l.HasServices,
			OwnerResponds:       l.OwnerResponds,
			NewestReviewAgeDays: l.NewestReviewAgeDays,
			HasHours:            l.HasHours,
		})
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("snapshot: write %q: %w", path, err)
	}
	return nil
}
