package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"lead-scraper/models"
)

// PostgresStore is the alternate lead backend for setups where the store is
// shared with other tooling (dashboards, CRM scripts).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection, waits for the server to come up, and
// runs schema migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS leads (
			maps_link              TEXT PRIMARY KEY,
			name                   TEXT NOT NULL,
			address                TEXT NOT NULL DEFAULT '',
			phone                  TEXT NOT NULL DEFAULT '',
			website                TEXT NOT NULL DEFAULT '',
			rating                 NUMERIC(3,1),
			review_count           INTEGER NOT NULL DEFAULT 0,
			category               TEXT NOT NULL DEFAULT '',
			photo_url              TEXT NOT NULL DEFAULT '',
			photo_count            INTEGER NOT NULL DEFAULT 0,
			has_description        BOOLEAN NOT NULL DEFAULT FALSE,
			has_services           BOOLEAN NOT NULL DEFAULT FALSE,
			owner_responds         BOOLEAN NOT NULL DEFAULT FALSE,
			newest_review_age_days INTEGER,
			has_hours              BOOLEAN NOT NULL DEFAULT FALSE,
			score                  INTEGER NOT NULL DEFAULT 0,
			score_reasons          TEXT NOT NULL DEFAULT '',
			contact_status         TEXT NOT NULL DEFAULT 'new',
			last_contacted         TEXT NOT NULL DEFAULT '',
			notes                  TEXT NOT NULL DEFAULT '',
			search_query           TEXT NOT NULL DEFAULT '',
			scraped_at             TIMESTAMPTZ NOT NULL,
			created_at             TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_leads_score  ON leads(score);
		CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(contact_status);
	`)
	return err
}

// Upsert has the same merge semantics as the sqlite backend: one atomic
// statement, CRM columns and created_at only apply on first insert.
func (s *PostgresStore) Upsert(l *models.RawListing, score models.ScoreResult, query string, now time.Time) (*models.LeadRecord, error) {
	if l.MapsLink == "" {
		return nil, fmt.Errorf("postgres: upsert: empty maps_link for %q", l.Name)
	}

	_, err := s.db.Exec(`
		INSERT INTO leads (
			maps_link, name, address, phone, website, rating, review_count,
			category, photo_url, photo_count, has_description, has_services,
			owner_responds, newest_review_age_days, has_hours,
			score, score_reasons,
			contact_status, last_contacted, notes,
			search_query, scraped_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,'new','','',$18,$19,$20)
		ON CONFLICT (maps_link) DO UPDATE SET
			name                   = EXCLUDED.name,
			address                = EXCLUDED.address,
			phone                  = EXCLUDED.phone,
			website                = EXCLUDED.website,
			rating                 = EXCLUDED.rating,
			review_count           = EXCLUDED.review_count,
			category               = EXCLUDED.category,
			photo_url              = EXCLUDED.photo_url,
			photo_count            = EXCLUDED.photo_count,
			has_description        = EXCLUDED.has_description,
			has_services           = EXCLUDED.has_services,
			owner_responds         = EXCLUDED.owner_responds,
			newest_review_age_days = EXCLUDED.newest_review_age_days,
			has_hours              = EXCLUDED.has_hours,
			score                  = EXCLUDED.score,
			score_reasons          = EXCLUDED.score_reasons,
			search_query           = EXCLUDED.search_query,
			scraped_at             = EXCLUDED.scraped_at
	`,
		l.MapsLink, l.Name, l.Address, l.Phone, l.Website,
		nullFloat(l.Rating), l.ReviewCount, l.Category, l.PhotoURL, l.PhotoCount,
		l.HasDescription, l.HasServices, l.OwnerResponds,
		nullInt(l.NewestReviewAgeDays), l.HasHours,
		score.Score, joinReasons(score.Reasons),
		query, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: upsert %q: %w", l.MapsLink, err)
	}

	row := s.db.QueryRow(leadColumns+` FROM leads WHERE maps_link = $1`, l.MapsLink)
	rec, err := scanLead(row)
	if err != nil {
		return nil, fmt.Errorf("postgres: read back %q: %w", l.MapsLink, err)
	}
	return rec, nil
}

// QueryByScore returns all leads with score >= minScore, best prospects
// first, ties broken by most recently scraped.
func (s *PostgresStore) QueryByScore(minScore int) ([]*models.LeadRecord, error) {
	rows, err := s.db.Query(leadColumns+`
		FROM leads
		WHERE score >= $1
		ORDER BY score DESC, scraped_at DESC
	`, minScore)
	if err != nil {
		return nil, fmt.Errorf("postgres: query by score: %w", err)
	}
	defer rows.Close()

	var records []*models.LeadRecord
	for rows.Next() {
		rec, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpdateCRM sets the three operator-owned fields for one lead.
func (s *PostgresStore) UpdateCRM(mapsLink, contactStatus, lastContacted, notes string) error {
	res, err := s.db.Exec(`
		UPDATE leads
		SET contact_status = $1, last_contacted = $2, notes = $3
		WHERE maps_link = $4
	`, contactStatus, lastContacted, notes, mapsLink)
	if err != nil {
		return fmt.Errorf("postgres: update crm %q: %w", mapsLink, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: update crm %q: %w", mapsLink, err)
	}
	if n == 0 {
		return fmt.Errorf("postgres: update crm: no lead with maps_link %q", mapsLink)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
