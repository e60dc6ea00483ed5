package maps

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"lead-scraper/config"
	"lead-scraper/models"
	"lead-scraper/scraper"
	"lead-scraper/utils"
)

const (
	baseURL         = "https://www.google.com"
	searchURLFormat = baseURL + "/maps/search/%s?hl=en"

	detailNavTimeout = 45 * time.Second
	detailWait       = 10 * time.Second
)

// Scraper extracts business listings from Google Maps search results using
// a headless browser.
type Scraper struct {
	cfg    *config.Config
	sel    config.Selectors
	logger *utils.Logger
	pacer  *utils.Pacer
	seen   *utils.LinkSet
	retry  *utils.RetryConfig

	skipped int
}

var _ scraper.LeadSource = (*Scraper)(nil)

// New creates a ready-to-use maps Scraper.
func New(cfg *config.Config, sel config.Selectors, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		sel:    sel,
		logger: logger,
		pacer: utils.NewPacer(
			time.Duration(cfg.DelayMinMs)*time.Millisecond,
			time.Duration(cfg.DelayMaxMs)*time.Millisecond,
		),
		seen: utils.NewLinkSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Extract runs one search session: load the results page, scroll the feed
// until maxResults links are collected or it stops growing, then visit each
// place page and emit the parsed listing. Failures before the first link is
// collected are fatal (SessionError); per-listing failures are logged and
// skipped.
func (s *Scraper) Extract(ctx context.Context, query string, maxResults int, emit func(*models.RawListing) error) error {
	s.skipped = 0

	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Info("[maps] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	cards, err := s.collectCards(browserCtx, query, maxResults)
	if err != nil {
		return &scraper.SessionError{Query: query, Err: err}
	}
	if len(cards) == 0 {
		return &scraper.SessionError{Query: query, Err: fmt.Errorf("no results found")}
	}

	s.logger.Info("[maps] Collected %d place links for %q", len(cards), query)

	for i, card := range cards {
		s.pacer.Wait()

		listing, err := s.scrapeDetail(browserCtx, card)
		if err != nil {
			s.skipped++
			s.logger.Warn("[maps] %v", &scraper.ListingParseError{Link: card.Link, Err: err})
			continue
		}

		s.logger.Debug("[maps] Extracted %d/%d: %s", i+1, len(cards), listing.Name)

		if err := emit(listing); err != nil {
			return err
		}
	}

	return nil
}

// Skipped reports how many discovered listings could not be parsed during
// the last Extract call.
func (s *Scraper) Skipped() int { return s.skipped }

// collectCards loads the search page, scrolls the results feed until it has
// maxResults links or the feed goes stale, and parses the rendered cards.
func (s *Scraper) collectCards(browserCtx context.Context, query string, maxResults int) ([]CardInfo, error) {
	searchURL := fmt.Sprintf(searchURLFormat, url.PathEscape(query))
	s.logger.Info("[maps] Searching: %s", searchURL)

	navTimeout := time.Duration(s.cfg.NavTimeoutSec) * time.Second

	err := s.retry.Do("open-search", func() error {
		ctx, cancel := context.WithTimeout(browserCtx, navTimeout)
		defer cancel()

		return chromedp.Run(ctx,
			chromedp.Navigate(searchURL),
			chromedp.WaitReady("body"),
			chromedp.Evaluate(consentScript, nil),
			chromedp.WaitVisible(s.sel.PlaceLink, chromedp.ByQuery),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("results panel never appeared: %w", err)
	}

	// Scroll until enough links are loaded or the count stops growing.
	linkCount := 0
	staleRounds := 0
	for linkCount < maxResults && staleRounds < s.cfg.ScrollMaxStale {
		var count int
		scrollCtx, cancel := context.WithTimeout(browserCtx, navTimeout)
		err := chromedp.Run(scrollCtx,
			chromedp.Evaluate(s.scrollScript(), &count),
			chromedp.Sleep(1500*time.Millisecond),
		)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("feed scroll: %w", err)
		}

		if count > linkCount {
			linkCount = count
			staleRounds = 0
		} else {
			staleRounds++
		}
		s.logger.Debug("[maps] Feed holds %d links (stale rounds: %d)", linkCount, staleRounds)
	}

	var feedHTML string
	htmlCtx, cancel := context.WithTimeout(browserCtx, navTimeout)
	err = chromedp.Run(htmlCtx, chromedp.OuterHTML("html", &feedHTML, chromedp.ByQuery))
	cancel()
	if err != nil {
		return nil, fmt.Errorf("read results feed: %w", err)
	}

	parsed, err := ParseCards(feedHTML, s.sel)
	if err != nil {
		return nil, fmt.Errorf("parse results feed: %w", err)
	}

	cards := make([]CardInfo, 0, maxResults)
	for _, c := range parsed {
		c.Link = normalizeLink(c.Link)
		if c.Link == "" || !s.seen.Add(c.Link) {
			continue
		}
		cards = append(cards, c)
		if len(cards) >= maxResults {
			break
		}
	}
	return cards, nil
}

// scrapeDetail navigates to one place page and parses the full listing,
// backfilling gaps from the result card.
func (s *Scraper) scrapeDetail(browserCtx context.Context, card CardInfo) (*models.RawListing, error) {
	var pageHTML string

	err := s.retry.Do("place-page", func() error {
		ctx, cancel := context.WithTimeout(browserCtx, detailNavTimeout)
		defer cancel()

		if err := chromedp.Run(ctx, chromedp.Navigate(card.Link)); err != nil {
			return fmt.Errorf("navigate: %w", err)
		}

		waitCtx, cancelWait := context.WithTimeout(ctx, detailWait)
		defer cancelWait()
		// The heading is the last thing the place panel renders; ignore a
		// timeout here and parse whatever did load.
		if err := chromedp.Run(waitCtx, chromedp.WaitVisible(s.sel.DetailName, chromedp.ByQuery)); err != nil {
			s.logger.Debug("[maps] Place heading slow to render for %s", card.Link)
		}

		return chromedp.Run(ctx, chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery))
	})
	if err != nil {
		return nil, err
	}

	listing, err := ParseDetail(pageHTML, card.Link, s.sel)
	if err != nil {
		return nil, err
	}

	mergeCard(listing, card)
	if listing.Name == "" {
		return nil, fmt.Errorf("no business name on page")
	}
	return listing, nil
}

// mergeCard fills listing gaps from the search-result card.
func mergeCard(l *models.RawListing, card CardInfo) {
	if l.Name == "" {
		l.Name = card.Name
	}
	if l.Rating == nil {
		l.Rating = card.Rating
	}
	if l.ReviewCount == 0 {
		l.ReviewCount = card.ReviewCount
	}
	if l.Category == "" {
		l.Category = card.Category
	}
}

// scrollScript scrolls the results feed to the bottom and returns how many
// place links are currently rendered.
func (s *Scraper) scrollScript() string {
	return `
		(function() {
			var feed = document.querySelector('` + s.sel.ResultsFeed + `');
			if (feed) {
				feed.scrollTop = feed.scrollHeight;
			}
			return document.querySelectorAll('` + s.sel.PlaceLink + `').length;
		})()
	`
}

// consentScript clicks through the consent interstitial when it shows up.
const consentScript = `
	(function() {
		var labels = ['Accept all', 'I agree', 'Reject all'];
		var buttons = document.querySelectorAll('button, form[action*="consent"] input[type="submit"]');
		for (var i = 0; i < buttons.length; i++) {
			var text = (buttons[i].innerText || buttons[i].getAttribute('aria-label') || '').trim();
			for (var j = 0; j < labels.length; j++) {
				if (text.indexOf(labels[j]) !== -1) {
					buttons[i].click();
					return true;
				}
			}
		}
		return false;
	})()
`

func normalizeLink(link string) string {
	if strings.HasPrefix(link, "/") {
		return baseURL + link
	}
	if !strings.HasPrefix(link, "http") {
		return ""
	}
	return link
}

// findChromeBinary locates the Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
