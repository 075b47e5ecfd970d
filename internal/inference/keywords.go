package inference

import (
	"strings"

	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// Sentiment keyword sets. The three sets are disjoint; frustratedKeywords
// capture escalation language rather than plain negativity.
var (
	negativeKeywords = []string{
		"broken", "bug", "crash", "fail", "error", "doesn't work", "does not work",
		"not working", "bad", "terrible", "awful", "disappointed", "unusable", "hate",
	}
	positiveKeywords = []string{
		"love", "great", "awesome", "excellent", "amazing", "fantastic",
		"thank", "works well", "perfect", "helpful", "good",
	}
	frustratedKeywords = []string{
		"frustrat", "fed up", "ridiculous", "unacceptable", "again and again",
		"still broken", "how many times", "giving up", "sick of", "!!!",
	}
)

// Urgency keyword sets, checked in severity order.
var (
	criticalUrgencyKeywords = []string{
		"critical", "urgent", "emergency", "asap", "production down", "outage",
		"data loss", "security breach", "immediately",
	}
	highUrgencyKeywords = []string{
		"blocking", "blocker", "can't", "cannot", "broken", "major", "severe", "deadline",
	}
	lowUrgencyKeywords = []string{
		"nice to have", "suggestion", "minor", "someday", "whenever", "low priority",
	}
)

// InferTheme returns the first vocabulary theme whose keyword set matches the
// text, or DefaultTheme when nothing matches.
func InferTheme(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range ThemeVocabulary {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Theme
			}
		}
	}
	return DefaultTheme
}

// InferSentiment derives a sentiment label from keyword counts.
// Frustration indicators, or negativity combined with a "but" contrast, take
// priority; otherwise the larger of the negative/positive counts wins and a
// tie is Neutral.
func InferSentiment(text string) storage.Sentiment {
	lower := strings.ToLower(text)

	negatives := countMatches(lower, negativeKeywords)
	positives := countMatches(lower, positiveKeywords)
	frustrated := countMatches(lower, frustratedKeywords) > 0

	switch {
	case frustrated || (negatives > 0 && strings.Contains(lower, "but")):
		return storage.SentimentFrustrated
	case negatives > positives:
		return storage.SentimentNegative
	case positives > negatives:
		return storage.SentimentPositive
	default:
		return storage.SentimentNeutral
	}
}

// InferUrgency derives an urgency category from the text. The critical check
// runs first so a text containing both critical and low-priority language
// resolves to Critical.
func InferUrgency(text string) storage.UrgencyCategory {
	lower := strings.ToLower(text)

	if containsAny(lower, criticalUrgencyKeywords) || strings.Contains(text, "!!!") {
		return storage.UrgencyCritical
	}
	if containsAny(lower, highUrgencyKeywords) {
		return storage.UrgencyHigh
	}
	if containsAny(lower, lowUrgencyKeywords) {
		return storage.UrgencyLow
	}
	return storage.UrgencyMedium
}

func countMatches(lower string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
