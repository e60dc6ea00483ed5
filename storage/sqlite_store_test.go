package storage

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"lead-scraper/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "leads.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testListing(link string) *models.RawListing {
	return &models.RawListing{
		Name:                "Joe's Plumbing",
		Address:             "12 High St, Leeds",
		Phone:               "0113 496 0000",
		Website:             "https://joesplumbing.example.com",
		Rating:              models.Float64Ptr(4.2),
		ReviewCount:         8,
		Category:            "Plumber",
		MapsLink:            link,
		PhotoCount:          3,
		NewestReviewAgeDays: models.IntPtr(45),
		HasHours:            true,
	}
}

func TestUpsertInsertsNewLead(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	score := models.ScoreResult{Score: 7, Reasons: []string{"low reviews", "no owner responses", "few photos"}}

	rec, err := s.Upsert(testListing("https://maps.example/place/joes"), score, "plumbers in leeds", now)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if rec.Name != "Joe's Plumbing" || rec.Score != 7 {
		t.Errorf("got name=%q score=%d", rec.Name, rec.Score)
	}
	if !reflect.DeepEqual(rec.Reasons, score.Reasons) {
		t.Errorf("reasons: got %v, want %v", rec.Reasons, score.Reasons)
	}
	if rec.ContactStatus != "new" {
		t.Errorf("contact status: got %q, want new", rec.ContactStatus)
	}
	if rec.LastContacted != "" || rec.Notes != "" {
		t.Errorf("crm fields should start empty: %q %q", rec.LastContacted, rec.Notes)
	}
	if rec.SearchQuery != "plumbers in leeds" {
		t.Errorf("search query: got %q", rec.SearchQuery)
	}
	if !rec.CreatedAt.Equal(rec.ScrapedAt) {
		t.Errorf("created_at %v != scraped_at %v on first insert", rec.CreatedAt, rec.ScrapedAt)
	}
	if rec.Rating == nil || *rec.Rating != 4.2 {
		t.Errorf("rating: got %v", rec.Rating)
	}
	if rec.NewestReviewAgeDays == nil || *rec.NewestReviewAgeDays != 45 {
		t.Errorf("review age: got %v", rec.NewestReviewAgeDays)
	}
	if !rec.HasHours || rec.HasDescription {
		t.Errorf("bool flags wrong: hours=%v description=%v", rec.HasHours, rec.HasDescription)
	}
}

func TestUpsertIsIdempotentForCRM(t *testing.T) {
	s := newTestStore(t)
	link := "https://maps.example/place/joes"
	score := models.ScoreResult{Score: 7, Reasons: []string{"low reviews"}}

	t1 := time.Now()
	first, err := s.Upsert(testListing(link), score, "plumbers in leeds", t1)
	if err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	t2 := t1.Add(time.Hour)
	second, err := s.Upsert(testListing(link), score, "plumbers in leeds", t2)
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	if second.ContactStatus != first.ContactStatus ||
		second.LastContacted != first.LastContacted ||
		second.Notes != first.Notes {
		t.Errorf("crm fields changed across identical upserts")
	}
	if !second.ScrapedAt.Equal(t2) {
		t.Errorf("scraped_at: got %v, want %v", second.ScrapedAt, t2)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed: %v vs %v", second.CreatedAt, first.CreatedAt)
	}
}

func TestUpsertPreservesOperatorEdits(t *testing.T) {
	s := newTestStore(t)
	link := "https://maps.example/place/joes"
	score := models.ScoreResult{Score: 7, Reasons: []string{"low reviews"}}

	if _, err := s.Upsert(testListing(link), score, "plumbers in leeds", time.Now()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.UpdateCRM(link, "contacted", "2026-08-15", "left voicemail"); err != nil {
		t.Fatalf("UpdateCRM: %v", err)
	}

	fresh := testListing(link)
	fresh.Phone = "0113 496 9999"
	fresh.ReviewCount = 12
	rec, err := s.Upsert(fresh, models.ScoreResult{Score: 4, Reasons: []string{"few photos"}}, "plumbers leeds", time.Now())
	if err != nil {
		t.Fatalf("re-Upsert: %v", err)
	}

	if rec.ContactStatus != "contacted" || rec.LastContacted != "2026-08-15" || rec.Notes != "left voicemail" {
		t.Errorf("operator edits clobbered: %q %q %q", rec.ContactStatus, rec.LastContacted, rec.Notes)
	}
	if rec.Phone != "0113 496 9999" || rec.ReviewCount != 12 || rec.Score != 4 {
		t.Errorf("scraped fields not updated: phone=%q reviews=%d score=%d", rec.Phone, rec.ReviewCount, rec.Score)
	}
}

func TestUpsertRescoreKeepsCreatedAt(t *testing.T) {
	s := newTestStore(t)
	link := "https://maps.example/place/joes"

	t1 := time.Now()
	first, err := s.Upsert(testListing(link), models.ScoreResult{Score: 6, Reasons: []string{"low reviews"}}, "q", t1)
	if err != nil {
		t.Fatalf("run 1 Upsert: %v", err)
	}

	t2 := t1.Add(24 * time.Hour)
	second, err := s.Upsert(testListing(link), models.ScoreResult{Score: 4, Reasons: []string{"few photos"}}, "q", t2)
	if err != nil {
		t.Fatalf("run 2 Upsert: %v", err)
	}

	if second.Score != 4 {
		t.Errorf("score: got %d, want 4", second.Score)
	}
	if !second.ScrapedAt.Equal(t2) {
		t.Errorf("scraped_at: got %v, want %v", second.ScrapedAt, t2)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed on re-score")
	}
}

func TestUpsertRejectsEmptyMapsLink(t *testing.T) {
	s := newTestStore(t)
	l := testListing("")
	if _, err := s.Upsert(l, models.ScoreResult{}, "q", time.Now()); err == nil {
		t.Fatal("expected error for empty maps_link")
	}
}

func TestQueryByScoreFilterAndOrder(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()

	insert := func(link string, score int, at time.Time) {
		t.Helper()
		l := testListing(link)
		l.Name = link
		if _, err := s.Upsert(l, models.ScoreResult{Score: score, Reasons: []string{}}, "q", at); err != nil {
			t.Fatalf("Upsert %s: %v", link, err)
		}
	}

	insert("https://maps.example/place/low", 3, base)
	insert("https://maps.example/place/old-seven", 7, base.Add(time.Minute))
	insert("https://maps.example/place/new-seven", 7, base.Add(2*time.Minute))
	insert("https://maps.example/place/nine", 9, base.Add(3*time.Minute))

	records, err := s.QueryByScore(5)
	if err != nil {
		t.Fatalf("QueryByScore: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	wantOrder := []string{
		"https://maps.example/place/nine",
		"https://maps.example/place/new-seven",
		"https://maps.example/place/old-seven",
	}
	for i, want := range wantOrder {
		if records[i].MapsLink != want {
			t.Errorf("position %d: got %s, want %s", i, records[i].MapsLink, want)
		}
	}
}

func TestUpdateCRMUnknownLink(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateCRM("https://maps.example/place/nope", "contacted", "", ""); err == nil {
		t.Fatal("expected error for unknown maps_link")
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leads.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	link := "https://maps.example/place/joes"
	if _, err := s.Upsert(testListing(link), models.ScoreResult{Score: 7, Reasons: []string{"low reviews"}}, "q", time.Now()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	records, err := reopened.QueryByScore(0)
	if err != nil {
		t.Fatalf("QueryByScore: %v", err)
	}
	if len(records) != 1 || records[0].MapsLink != link {
		t.Fatalf("lead lost across reopen: %v", records)
	}
}
