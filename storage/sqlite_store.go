package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"lead-scraper/models"
)

// SQLiteStore is the default lead backend: a single local file with WAL
// enabled so reads during a run never block the writer.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database file at path and
// runs schema migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS leads (
			maps_link              TEXT PRIMARY KEY,
			name                   TEXT NOT NULL,
			address                TEXT NOT NULL DEFAULT '',
			phone                  TEXT NOT NULL DEFAULT '',
			website                TEXT NOT NULL DEFAULT '',
			rating                 REAL,
			review_count           INTEGER NOT NULL DEFAULT 0,
			category               TEXT NOT NULL DEFAULT '',
			photo_url              TEXT NOT NULL DEFAULT '',
			photo_count            INTEGER NOT NULL DEFAULT 0,
			has_description        INTEGER NOT NULL DEFAULT 0,
			has_services           INTEGER NOT NULL DEFAULT 0,
			owner_responds         INTEGER NOT NULL DEFAULT 0,
			newest_review_age_days INTEGER,
			has_hours              INTEGER NOT NULL DEFAULT 0,
			score                  INTEGER NOT NULL DEFAULT 0,
			score_reasons          TEXT NOT NULL DEFAULT '',
			contact_status         TEXT NOT NULL DEFAULT 'new',
			last_contacted         TEXT NOT NULL DEFAULT '',
			notes                  TEXT NOT NULL DEFAULT '',
			search_query           TEXT NOT NULL DEFAULT '',
			scraped_at             TIMESTAMP NOT NULL,
			created_at             TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_leads_score  ON leads(score);
		CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(contact_status);
	`)
	return err
}

// Upsert merges one scraped listing into the store. A single statement so
// the merge is atomic: scraped, score, and metadata columns always take the
// new values; CRM columns and created_at only take effect on first insert.
func (s *SQLiteStore) Upsert(l *models.RawListing, score models.ScoreResult, query string, now time.Time) (*models.LeadRecord, error) {
	if l.MapsLink == "" {
		return nil, fmt.Errorf("sqlite: upsert: empty maps_link for %q", l.Name)
	}

	_, err := s.db.Exec(`
		INSERT INTO leads (
			maps_link, name, address, phone, website, rating, review_count,
			category, photo_url, photo_count, has_description, has_services,
			owner_responds, newest_review_age_days, has_hours,
			score, score_reasons,
			contact_status, last_contacted, notes,
			search_query, scraped_at, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,'new','','',?,?,?)
		ON CONFLICT(maps_link) DO UPDATE SET
			name                   = excluded.name,
			address                = excluded.address,
			phone                  = excluded.phone,
			website                = excluded.website,
			rating                 = excluded.rating,
			review_count           = excluded.review_count,
			category               = excluded.category,
			photo_url              = excluded.photo_url,
			photo_count            = excluded.photo_count,
			has_description        = excluded.has_description,
			has_services           = excluded.has_services,
			owner_responds         = excluded.owner_responds,
			newest_review_age_days = excluded.newest_review_age_days,
			has_hours              = excluded.has_hours,
			score                  = excluded.score,
			score_reasons          = excluded.score_reasons,
			search_query           = excluded.search_query,
			scraped_at             = excluded.scraped_at
	`,
		l.MapsLink, l.Name, l.Address, l.Phone, l.Website,
		nullFloat(l.Rating), l.ReviewCount, l.Category, l.PhotoURL, l.PhotoCount,
		l.HasDescription, l.HasServices, l.OwnerResponds,
		nullInt(l.NewestReviewAgeDays), l.HasHours,
		score.Score, joinReasons(score.Reasons),
		query, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: upsert %q: %w", l.MapsLink, err)
	}

	return s.getByLink(l.MapsLink)
}

// QueryByScore returns all leads with score >= minScore, best prospects
// first, ties broken by most recently scraped.
func (s *SQLiteStore) QueryByScore(minScore int) ([]*models.LeadRecord, error) {
	rows, err := s.db.Query(leadColumns+`
		FROM leads
		WHERE score >= ?
		ORDER BY score DESC, scraped_at DESC
	`, minScore)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query by score: %w", err)
	}
	defer rows.Close()

	var records []*models.LeadRecord
	for rows.Next() {
		rec, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpdateCRM sets the three operator-owned fields for one lead. The pipeline
// never calls this; it exists for CRM tooling working over the same file.
func (s *SQLiteStore) UpdateCRM(mapsLink, contactStatus, lastContacted, notes string) error {
	res, err := s.db.Exec(`
		UPDATE leads
		SET contact_status = ?, last_contacted = ?, notes = ?
		WHERE maps_link = ?
	`, contactStatus, lastContacted, notes, mapsLink)
	if err != nil {
		return fmt.Errorf("sqlite: update crm %q: %w", mapsLink, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update crm %q: %w", mapsLink, err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite: update crm: no lead with maps_link %q", mapsLink)
	}
	return nil
}

func (s *SQLiteStore) getByLink(mapsLink string) (*models.LeadRecord, error) {
	row := s.db.QueryRow(leadColumns+` FROM leads WHERE maps_link = ?`, mapsLink)
	rec, err := scanLead(row)
	if err != nil {
		return nil, fmt.Errorf("sqlite: read back %q: %w", mapsLink, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const leadColumns = `
	SELECT maps_link, name, address, phone, website, rating, review_count,
	       category, photo_url, photo_count, has_description, has_services,
	       owner_responds, newest_review_age_days, has_hours,
	       score, score_reasons,
	       contact_status, last_contacted, notes,
	       search_query, scraped_at, created_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanLead reads one lead row in leadColumns order. Shared by the sqlite
// and postgres backends, whose column sets are identical.
func scanLead(row rowScanner) (*models.LeadRecord, error) {
	rec := &models.LeadRecord{}
	var rating sql.NullFloat64
	var reviewAge sql.NullInt64
	var reasons string

	err := row.Scan(
		&rec.MapsLink, &rec.Name, &rec.Address, &rec.Phone, &rec.Website,
		&rating, &rec.ReviewCount, &rec.Category, &rec.PhotoURL, &rec.PhotoCount,
		&rec.HasDescription, &rec.HasServices, &rec.OwnerResponds,
		&reviewAge, &rec.HasHours,
		&rec.Score, &reasons,
		&rec.ContactStatus, &rec.LastContacted, &rec.Notes,
		&rec.SearchQuery, &rec.ScrapedAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		rec.Rating = &rating.Float64
	}
	if reviewAge.Valid {
		age := int(reviewAge.Int64)
		rec.NewestReviewAgeDays = &age
	}
	rec.Reasons = splitReasons(reasons)
	return rec, nil
}

func joinReasons(reasons []string) string {
	return strings.Join(reasons, ", ")
}

func splitReasons(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ", ")
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
