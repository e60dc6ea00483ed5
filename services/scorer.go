package services

import "lead-scraper/models"

// staleReviewAgeDays is the cutoff for "no recent reviews". Roughly six
// months expressed as a fixed day count so the rule is deterministic.
const staleReviewAgeDays = 182

// presenceRule is one signal in the scoring table. Rules are evaluated
// independently and every firing rule adds its points and its reason.
type presenceRule struct {
	reason string
	points int
	fires  func(l *models.RawListing) bool
}

// presenceRules is the fixed scoring table. Order matters: reasons are
// reported in this order so identical failure patterns produce identical
// reason lists. A higher total means a weaker online presence and a better
// sales prospect. Maximum total is 14.
var presenceRules = []presenceRule{
	{"low reviews", 3, func(l *models.RawListing) bool {
		return l.ReviewCount < 10
	}},
	{"no owner responses", 2, func(l *models.RawListing) bool {
		return !l.OwnerResponds
	}},
	{"few photos", 2, func(l *models.RawListing) bool {
		return l.PhotoCount < 5
	}},
	// An unknown rating is not penalized; only a known-low one is.
	{"low rating", 2, func(l *models.RawListing) bool {
		return l.Rating != nil && *l.Rating < 4.0
	}},
	// Unknown recency is the worst case: no reviews at all.
	{"no recent reviews", 2, func(l *models.RawListing) bool {
		return l.NewestReviewAgeDays == nil || *l.NewestReviewAgeDays > staleReviewAgeDays
	}},
	{"no description", 1, func(l *models.RawListing) bool {
		return !l.HasDescription
	}},
	{"no services listed", 1, func(l *models.RawListing) bool {
		return !l.HasServices
	}},
	{"no website", 1, func(l *models.RawListing) bool {
		return l.Website == ""
	}},
}

// ScorePresence maps a raw listing to its presence score and the list of
// triggered reasons. Pure and deterministic.
func ScorePresence(l *models.RawListing) models.ScoreResult {
	result := models.ScoreResult{Reasons: []string{}}
	for _, rule := range presenceRules {
		if rule.fires(l) {
			result.Score += rule.points
			result.Reasons = append(result.Reasons, rule.reason)
		}
	}
	return result
}

// MaxPresenceScore returns the highest score the rule table can produce.
func MaxPresenceScore() int {
	total := 0
	for _, rule := range presenceRules {
		total += rule.points
	}
	return total
}
