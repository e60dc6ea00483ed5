package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"lead-scraper/models"
	"lead-scraper/storage"
	"lead-scraper/utils"
)

// Reporter renders one run's scored batch: threshold filter, score-descending
// sort, console listing, and the per-run JSON/CSV artifacts. It reads only
// the in-memory batch and never touches the lead store.
type Reporter struct {
	logger    *utils.Logger
	minScore  int
	emitAll   bool
	outputDir string
}

// NewReporter creates a Reporter. With emitAll set the minScore threshold
// is ignored.
func NewReporter(logger *utils.Logger, minScore int, emitAll bool, outputDir string) *Reporter {
	return &Reporter{
		logger:    logger,
		minScore:  minScore,
		emitAll:   emitAll,
		outputDir: outputDir,
	}
}

// Filter applies the score threshold and sorts score-descending. The sort
// is stable so equal scores keep their discovery order.
func (r *Reporter) Filter(batch []*models.ScoredListing) []*models.ScoredListing {
	leads := make([]*models.ScoredListing, 0, len(batch))
	for _, sl := range batch {
		if r.emitAll || sl.Result.Score >= r.minScore {
			leads = append(leads, sl)
		}
	}
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].Result.Score > leads[j].Result.Score
	})
	return leads
}

// PrintConsole writes the per-lead lines and the run summary block.
func (r *Reporter) PrintConsole(leads []*models.ScoredListing, summary *models.RunSummary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🎯 LEADS FOR %q\033[0m\n", summary.Query)
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	if len(leads) == 0 {
		fmt.Printf("  No leads above the score threshold\n")
	}

	for _, sl := range leads {
		fmt.Printf("  \033[1m[SCORE %2d]\033[0m %s | %s | %s\n",
			sl.Result.Score,
			truncate(sl.Listing.Name, 35),
			orDash(sl.Listing.Phone),
			truncate(orDash(sl.Listing.Website), 30),
		)
		if len(sl.Result.Reasons) > 0 {
			fmt.Printf("      \033[2m→ %s\033[0m\n", strings.Join(sl.Result.Reasons, ", "))
		}
	}

	fmt.Printf("\n\033[1;33m  Run Summary\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Run ID    : %s\n", summary.RunID)
	fmt.Printf("  Attempted : \033[1m%d\033[0m\n", summary.Attempted)
	fmt.Printf("  Skipped   : \033[1m%d\033[0m\n", summary.Skipped)
	fmt.Printf("  Saved     : \033[1m%d\033[0m\n", summary.Saved)
	fmt.Printf("  Failed    : \033[1m%d\033[0m\n", summary.FailedSave)
	fmt.Printf("  Reported  : \033[1m%d\033[0m\n", len(leads))
	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

// WriteArtifacts writes the JSON snapshot and the CSV export for the run,
// returning the two paths. Both files contain exactly the filtered leads.
func (r *Reporter) WriteArtifacts(leads []*models.ScoredListing, summary *models.RunSummary) (string, string, error) {
	base := fmt.Sprintf("%s_%s", Slug(summary.Query), summary.StartedAt.Format("20060102_150405"))

	jsonPath := filepath.Join(r.outputDir, base+".json")
	if err := storage.WriteSnapshot(jsonPath, summary, leads); err != nil {
		return "", "", err
	}

	csvPath := filepath.Join(r.outputDir, base+".csv")
	csvWriter, err := storage.NewLeadCSVWriter(csvPath)
	if err != nil {
		return "", "", err
	}
	defer csvWriter.Close()

	if err := csvWriter.WriteLeads(leads); err != nil {
		return "", "", err
	}

	r.logger.Info("[report] Artifacts written: %s, %s", jsonPath, csvPath)
	return jsonPath, csvPath, nil
}

// Slug turns a search query into a filesystem-safe file name fragment:
// lowercased, runs of non-alphanumerics collapsed to a single underscore.
func Slug(query string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(query) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
