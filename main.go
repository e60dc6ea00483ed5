package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"lead-scraper/config"
	"lead-scraper/models"
	"lead-scraper/scraper"
	"lead-scraper/scraper/maps"
	"lead-scraper/services"
	"lead-scraper/storage"
	"lead-scraper/utils"
)

func main() {
	maxResults := flag.Int("max", 20, "maximum number of listings to extract")
	minScore := flag.Int("min-score", 5, "minimum presence score for a lead to be reported")
	emitAll := flag.Bool("all", false, "report every lead regardless of score")
	flag.Parse()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] \"plumbers in leeds\"\n\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *maxResults < 1 {
		*maxResults = 1
	}

	cfg := config.Load()
	logger := utils.NewLogger(cfg.Debug)

	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		Query:     query,
		StartedAt: time.Now(),
	}

	logger.Info("=== Lead scraper starting — run %s ===", summary.RunID)
	logger.Info("Query: %q | max results: %d | min score: %d | backend: %s",
		query, *maxResults, *minScore, cfg.StoreBackend)

	sel, err := config.LoadSelectors(cfg.SelectorsPath)
	if err != nil {
		logger.Warn("Selector overrides ignored: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("Failed to open lead store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	source := maps.New(cfg, sel, logger)

	var batch []*models.ScoredListing
	err = source.Extract(context.Background(), query, *maxResults, func(l *models.RawListing) error {
		result := services.ScorePresence(l)
		batch = append(batch, &models.ScoredListing{Listing: l, Result: result})

		// A failed save loses one record, not the run.
		if _, err := store.Upsert(l, result, query, time.Now()); err != nil {
			summary.FailedSave++
			logger.Error("Save failed for %q: %v", l.Name, err)
			return nil
		}
		summary.Saved++
		return nil
	})

	summary.Skipped = source.Skipped()
	summary.Attempted = len(batch) + summary.Skipped

	if err != nil {
		var sessionErr *scraper.SessionError
		if errors.As(err, &sessionErr) {
			logger.Error("Run aborted: %v", sessionErr)
			os.Exit(1)
		}
		logger.Error("Extraction stopped early: %v", err)
	}

	reporter := services.NewReporter(logger, *minScore, *emitAll, cfg.OutputDir)
	leads := reporter.Filter(batch)
	reporter.PrintConsole(leads, summary)

	if _, _, err := reporter.WriteArtifacts(leads, summary); err != nil {
		logger.Error("Artifact write failed: %v", err)
	}

	if stored, err := store.QueryByScore(*minScore); err != nil {
		logger.Warn("Store count unavailable: %v", err)
	} else {
		logger.Info("Store now holds %d leads with score >= %d", len(stored), *minScore)
	}

	logger.Info("Run complete — attempted %d, skipped %d, saved %d, failed %d, reported %d",
		summary.Attempted, summary.Skipped, summary.Saved, summary.FailedSave, len(leads))
}

// openStore picks the backend by STORE_BACKEND: sqlite (default) or
// postgres.
func openStore(cfg *config.Config) (storage.LeadStore, error) {
	switch cfg.StoreBackend {
	case "postgres":
		return storage.NewPostgresStore(cfg.DSN())
	case "sqlite", "":
		return storage.NewSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
