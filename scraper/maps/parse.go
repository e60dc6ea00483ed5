package maps

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"lead-scraper/config"
	"lead-scraper/models"
)

var (
	// ratingRegexp captures a numeric rating in the 1.0–5.0 range
	ratingRegexp = regexp.MustCompile(`\b([1-5](?:[.,]\d)?)\b`)
	// reviewParenRegexp captures review counts like "(123)" or "(1,234)"
	reviewParenRegexp = regexp.MustCompile(`\(([0-9,.]+)\)`)
	// reviewWordRegexp captures "123 reviews"
	reviewWordRegexp = regexp.MustCompile(`(?i)(\d[\d,]*)\s*review`)
	// reviewAgeRegexp captures relative ages like "3 weeks ago", "a year ago"
	reviewAgeRegexp = regexp.MustCompile(`(?i)\b(an?|\d+)\s+(day|week|month|year)s?\s+ago\b`)
	// photoCountRegexp captures "128 photos" from a button aria-label
	photoCountRegexp = regexp.MustCompile(`(?i)(\d[\d,]*)\s*photo`)
	// hoursTextRegexp matches opening-hours phrasing in the page text
	hoursTextRegexp = regexp.MustCompile(`Open 24 hours|Opens |Closes |Closed ⋅`)
	// labelPrefixRegexp strips aria-label prefixes like "Address: "
	labelPrefixRegexp = regexp.MustCompile(`^[^:]{1,20}:\s*`)
	nonDigitRegexp    = regexp.MustCompile(`\D`)
)

// googleHosts are never a business website; links through these are either
// maps chrome or redirect wrappers.
var googleHosts = []string{"google.", "gstatic.", "googleusercontent.", "g.page"}

// CardInfo is the subset of listing fields visible on a search-result card.
// It backfills detail-page gaps, since cards sometimes show rating and
// category the place page renders lazily.
type CardInfo struct {
	Name        string
	Link        string
	Rating      *float64
	ReviewCount int
	Category    string
}

// ParseCards extracts one CardInfo per place link from the rendered results
// feed, preserving on-screen order.
func ParseCards(feedHTML string, sel config.Selectors) ([]CardInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(feedHTML))
	if err != nil {
		return nil, err
	}

	var cards []CardInfo
	seen := make(map[string]struct{})

	doc.Find(sel.PlaceLink).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		card := a.Closest("div.Nv2PK")
		if card.Length() == 0 {
			card = a.Parent()
		}

		info := CardInfo{Link: href}

		info.Name = strings.TrimSpace(card.Find(sel.CardName).First().Text())
		if info.Name == "" {
			if aria, ok := a.Attr("aria-label"); ok {
				info.Name = strings.TrimSpace(aria)
			}
		}

		info.Rating = ParseRating(card.Find(sel.CardRating).First().Text())
		info.ReviewCount = ParseReviewCount(card.Find(sel.CardReviews).First().Text())
		info.Category = pickCategory(card.Find(sel.CardInfoLine), info.Name)

		cards = append(cards, info)
	})

	return cards, nil
}

// pickCategory picks the first info-line span that reads like a business
// category: short, not the name, not rating/review/price/hours noise.
func pickCategory(lines *goquery.Selection, name string) string {
	category := ""
	lines.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" || text == name || len(text) >= 60 {
			return true
		}
		first, _ := utf8.DecodeRuneInString(text)
		if !unicode.IsLetter(first) {
			return true
		}
		lower := strings.ToLower(text)
		if strings.Contains(lower, "review") ||
			strings.HasPrefix(text, "Open") || strings.HasPrefix(text, "Closed") {
			return true
		}
		category = text
		return false
	})
	return category
}

// ParseDetail extracts the full raw field set from a place page. Every
// field is best-effort: anything the markup does not yield stays at its
// absent value. The caller supplies the maps link (it navigated there).
func ParseDetail(pageHTML, mapsLink string, sel config.Selectors) (*models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, err
	}

	main := doc.Find(sel.DetailMain).First()
	if main.Length() == 0 {
		main = doc.Selection
	}
	pageText := main.Text()

	l := &models.RawListing{MapsLink: mapsLink}

	l.Name = strings.TrimSpace(doc.Find(sel.DetailName).First().Text())
	l.Address = extractLabeled(doc, sel.DetailAddress)
	l.Phone = extractPhone(doc, sel.DetailPhone)
	l.Website = extractWebsite(doc, sel.DetailWebsite)
	l.PhotoURL = extractPhotoURL(doc, sel.DetailPhoto)
	l.PhotoCount = extractPhotoCount(doc)
	l.Rating = extractDetailRating(doc)
	l.ReviewCount = extractDetailReviews(doc)

	l.HasDescription = doc.Find(sel.DetailAbout).Length() > 0 ||
		(strings.Contains(pageText, "About") && strings.Contains(pageText, "From the business"))
	l.HasServices = doc.Find(sel.DetailService).Length() > 0
	l.OwnerResponds = strings.Contains(pageText, "Response from the owner")
	l.HasHours = doc.Find(sel.DetailHours).Length() > 0 || hoursTextRegexp.MatchString(pageText)

	if ageText := strings.TrimSpace(doc.Find(sel.ReviewDate).First().Text()); ageText != "" {
		l.NewestReviewAgeDays = ParseReviewAgeDays(ageText)
	} else if m := reviewAgeRegexp.FindString(pageText); m != "" {
		l.NewestReviewAgeDays = ParseReviewAgeDays(m)
	}

	return l, nil
}

// extractLabeled pulls text from aria-label ("Address: 123 Main St") with
// the element text as fallback.
func extractLabeled(doc *goquery.Document, selector string) string {
	el := doc.Find(selector).First()
	if el.Length() == 0 {
		return ""
	}
	if aria, ok := el.Attr("aria-label"); ok {
		if cleaned := strings.TrimSpace(labelPrefixRegexp.ReplaceAllString(aria, "")); cleaned != "" {
			return cleaned
		}
	}
	return strings.TrimSpace(el.Text())
}

func extractPhone(doc *goquery.Document, selector string) string {
	el := doc.Find(selector).First()
	if el.Length() == 0 {
		return ""
	}
	if href, ok := el.Attr("href"); ok && strings.HasPrefix(strings.ToLower(href), "tel:") {
		return strings.TrimSpace(href[4:])
	}
	if aria, ok := el.Attr("aria-label"); ok {
		cleaned := strings.TrimSpace(labelPrefixRegexp.ReplaceAllString(aria, ""))
		if digits := nonDigitRegexp.ReplaceAllString(cleaned, ""); len(digits) >= 7 {
			return cleaned
		}
	}
	text := strings.TrimSpace(el.Text())
	if digits := nonDigitRegexp.ReplaceAllString(text, ""); len(digits) >= 7 {
		return text
	}
	return ""
}

func extractWebsite(doc *goquery.Document, selector string) string {
	website := ""
	doc.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		href, ok := el.Attr("href")
		if !ok {
			return true
		}
		if w := CleanWebsiteURL(href); w != "" {
			website = w
			return false
		}
		return true
	})
	return website
}

// CleanWebsiteURL unwraps google redirect links and rejects non-http or
// google-owned hosts.
func CleanWebsiteURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if idx := strings.Index(raw, "/url?q="); idx != -1 {
		raw = raw[idx+len("/url?q="):]
		if amp := strings.Index(raw, "&"); amp != -1 {
			raw = raw[:amp]
		}
	}

	if !strings.HasPrefix(strings.ToLower(raw), "http") {
		return ""
	}
	lower := strings.ToLower(raw)
	for _, host := range googleHosts {
		if strings.Contains(lower, host) {
			return ""
		}
	}
	return raw
}

func extractPhotoURL(doc *goquery.Document, selector string) string {
	src := ""
	doc.Find(selector).EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if s, ok := img.Attr("src"); ok && strings.Contains(s, "googleusercontent") {
			src = s
			return false
		}
		return true
	})
	return src
}

// extractPhotoCount reads the photo count from any button aria-label like
// "128 photos", falling back to counting photo buttons.
func extractPhotoCount(doc *goquery.Document) int {
	count := 0
	doc.Find("button[aria-label]").EachWithBreak(func(_ int, btn *goquery.Selection) bool {
		aria, _ := btn.Attr("aria-label")
		if m := photoCountRegexp.FindStringSubmatch(aria); m != nil {
			count = parseThousands(m[1])
			return false
		}
		return true
	})
	if count == 0 {
		count = doc.Find(`button[jsaction*="photo"]`).Length()
	}
	return count
}

func extractDetailRating(doc *goquery.Document) *float64 {
	if r := ParseRating(doc.Find("span.F7nice span[aria-hidden]").First().Text()); r != nil {
		return r
	}
	return ParseRating(doc.Find("div.F7nice, span.F7nice").First().Text())
}

func extractDetailReviews(doc *goquery.Document) int {
	return ParseReviewCount(doc.Find("div.F7nice, span.F7nice").First().Text())
}

// ParseRating parses a rating like "4.5" or "4,5", nil when absent or out
// of the 1.0–5.0 range.
func ParseRating(text string) *float64 {
	m := ratingRegexp.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil
	}
	val, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || val < 1.0 || val > 5.0 {
		return nil
	}
	return &val
}

// ParseReviewCount parses "(1,234)" or "123 reviews" style counts; 0 when
// nothing matches.
func ParseReviewCount(text string) int {
	if m := reviewParenRegexp.FindStringSubmatch(text); m != nil {
		return parseThousands(m[1])
	}
	if m := reviewWordRegexp.FindStringSubmatch(text); m != nil {
		return parseThousands(m[1])
	}
	return 0
}

// ParseReviewAgeDays converts a relative age like "3 weeks ago" or "a year
// ago" into days. nil means the text carried no recognizable age, which the
// scorer treats the same as "no reviews".
func ParseReviewAgeDays(text string) *int {
	m := reviewAgeRegexp.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	n := 1
	if m[1] != "a" && m[1] != "an" && m[1] != "A" && m[1] != "An" {
		parsed, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		n = parsed
	}

	days := n
	switch strings.ToLower(m[2]) {
	case "week":
		days = n * 7
	case "month":
		days = n * 30
	case "year":
		days = n * 365
	}
	return &days
}

func parseThousands(s string) int {
	cleaned := strings.NewReplacer(",", "", ".", "").Replace(s)
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}
