package ingest

import (
	"math"
	"strings"

	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// EngagementMetrics holds the source-specific interaction counters that feed
// the engagement score.
type EngagementMetrics struct {
	Likes    int
	Retweets int
	Upvotes  int
	Comments int
	Replies  int
	Views    int
}

// urgencyBase maps an urgency category to its base score.
var urgencyBase = map[storage.UrgencyCategory]int{
	storage.UrgencyCritical: 10,
	storage.UrgencyHigh:     8,
	storage.UrgencyMedium:   5,
	storage.UrgencyLow:      3,
}

// valueBase maps a customer tier to its base value score.
var valueBase = map[storage.CustomerTier]int{
	storage.TierEnterprise: 9,
	storage.TierPro:        7,
	storage.TierFree:       4,
}

// urgencyBoost is an ordered keyword-set-to-adjustment rule.
type urgencyBoost struct {
	keywords []string
	boost    int
}

var urgencyBoosts = []urgencyBoost{
	{keywords: []string{"urgent", "critical"}, boost: 2},
	{keywords: []string{"blocking", "can't", "cannot"}, boost: 1},
	{keywords: []string{"production", "outage"}, boost: 2},
	{keywords: []string{"data loss", "security"}, boost: 2},
}

// UrgencyScore computes a bounded urgency score from the record's category,
// text, and customer tier. The result is always in [1,10].
func UrgencyScore(category storage.UrgencyCategory, text string, tier storage.CustomerTier) int {
	score, ok := urgencyBase[category]
	if !ok {
		score = urgencyBase[storage.UrgencyMedium]
	}

	lower := strings.ToLower(text)
	for _, rule := range urgencyBoosts {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				score += rule.boost
				break
			}
		}
	}

	if tier == storage.TierEnterprise {
		score++
	}

	return clampScore(score)
}

// ValueScore computes a bounded business-value score from customer tier,
// engagement, and revenue/compliance signals in the text. Always in [1,10].
func ValueScore(tier storage.CustomerTier, text string, metrics EngagementMetrics) int {
	score, ok := valueBase[tier]
	if !ok {
		score = valueBase[storage.TierFree]
	}

	weighted := float64(metrics.Likes) + 2*float64(metrics.Upvotes) + float64(metrics.Comments)
	switch {
	case weighted > 50:
		score += 2
	case weighted > 20:
		score++
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "revenue") || strings.Contains(lower, "customer") {
		score++
	}
	if strings.Contains(lower, "compliance") || strings.Contains(lower, "security") {
		score++
	}

	return clampScore(score)
}

// EngagementScore computes the weighted engagement sum, rounded to two
// decimal places. It is unbounded above and on a different scale from the
// urgency and value scores.
func EngagementScore(metrics EngagementMetrics) float64 {
	score := float64(metrics.Likes)*1 +
		float64(metrics.Retweets)*2 +
		float64(metrics.Upvotes)*2 +
		float64(metrics.Comments)*3 +
		float64(metrics.Replies)*3 +
		float64(metrics.Views)*0.01

	return math.Round(score*100) / 100
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
