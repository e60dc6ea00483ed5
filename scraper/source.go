package scraper

import (
	"context"
	"fmt"

	"lead-scraper/models"
)

// LeadSource produces a finite, ordered sequence of raw listings for a
// query, at most maxResults of them, invoking emit once per listing as it
// is extracted. Scoring and persistence never depend on how the listings
// are obtained, so a fixture-backed source can stand in for the browser.
type LeadSource interface {
	Extract(ctx context.Context, query string, maxResults int, emit func(*models.RawListing) error) error
}

// SessionError means the search page never loaded or the results panel
// never appeared. It is the only fatal extraction failure and is always
// raised before any listing has been emitted.
type SessionError struct {
	Query string
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("maps session for %q: %v", e.Query, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// ListingParseError means a single result could not be parsed into a
// RawListing. The listing is skipped and the run continues.
type ListingParseError struct {
	Link string
	Err  error
}

func (e *ListingParseError) Error() string {
	return fmt.Sprintf("parse listing %s: %v", e.Link, e.Err)
}

func (e *ListingParseError) Unwrap() error { return e.Err }
