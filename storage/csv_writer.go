package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"lead-scraper/models"
)

// LeadCSVWriter writes one run's filtered, scored leads to a CSV file.
// It is safe for concurrent use.
type LeadCSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewLeadCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewLeadCSVWriter(path string) (*LeadCSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	// Scoring columns first, then contact, then the raw signals.
	if err := w.Write([]string{
		"score", "score_reasons",
		"name", "category", "phone", "website", "address", "maps_link",
		"rating", "review_count", "photo_count", "newest_review_age_days",
		"has_description", "has_services", "owner_responds", "has_hours",
		"photo_url",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &LeadCSVWriter{file: f, writer: w}, nil
}

// WriteLeads appends one row per scored lead in the given order.
func (c *LeadCSVWriter) WriteLeads(leads []*models.ScoredListing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sl := range leads {
		l := sl.Listing

		rating := ""
		if l.Rating != nil {
			rating = strconv.FormatFloat(*l.Rating, 'f', 1, 64)
		}
		reviewAge := ""
		if l.NewestReviewAgeDays != nil {
			reviewAge = strconv.Itoa(*l.NewestReviewAgeDays)
		}

		row := []string{
			strconv.Itoa(sl.Result.Score),
			joinReasons(sl.Result.Reasons),
			l.Name,
			l.Category,
			l.Phone,
			l.Website,
			l.Address,
			l.MapsLink,
			rating,
			strconv.Itoa(l.ReviewCount),
			strconv.Itoa(l.PhotoCount),
			reviewAge,
			strconv.FormatBool(l.HasDescription),
			strconv.FormatBool(l.HasServices),
			strconv.FormatBool(l.OwnerResponds),
			strconv.FormatBool(l.HasHours),
			l.PhotoURL,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *LeadCSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
