// Package search translates free-text questions into parameterized SQL and
// natural-language summaries over stored feedback.
package search

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/signalsift-ai/feedback-engine/internal/enrichment"
	"github.com/signalsift-ai/feedback-engine/internal/ingest"
	"github.com/signalsift-ai/feedback-engine/internal/observability"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// Limit bounds. Listing-style queries widen the default; an explicit number
// in the query always wins, clamped to the same bounds.
const (
	DefaultLimit = 20
	ListingLimit = 50
	MaxLimit     = 100
)

// DefaultSortKey orders results by urgency unless the query asks otherwise.
const DefaultSortKey = "urgency_score"

// QueryIntent is the structured filter/sort/limit form of a free-text query.
// Empty slices and strings mean no filter on that dimension.
type QueryIntent struct {
	Urgency      []storage.UrgencyCategory
	Sentiments   []storage.Sentiment
	CustomerTier storage.CustomerTier
	ProductArea  string
	Theme        string
	SortBy       string
	Limit        int
}

var embeddedNumberRe = regexp.MustCompile(`\b(\d{1,3})\b`)

// listingKeywords flag a browse-style query; severityKeywords cancel the
// browse interpretation.
var (
	listingKeywords  = []string{"review", "show me", "list"}
	severityKeywords = []string{"urgent", "critical", "negative", "positive"}
)

// themeFilters maps distinctive query terms to theme names, checked in order.
var themeFilters = []struct {
	Keyword string
	Theme   string
}{
	{"rate limit", "Rate Limiting"},
	{"billing", "Pricing & Billing"},
	{"pricing", "Pricing & Billing"},
	{"performance", "Performance"},
	{"slow", "Performance"},
	{"documentation", "Documentation"},
	{"docs", "Documentation"},
	{"auth", "Authentication"},
	{"login", "Authentication"},
	{"security", "Security"},
	{"feature request", "Feature Request"},
}

// ParseIntent converts a free-text query into a QueryIntent using keyword
// rules only. It is total: any text yields a valid intent with a clamped
// limit.
func ParseIntent(query string) QueryIntent {
	lower := strings.ToLower(query)

	intent := QueryIntent{
		SortBy: DefaultSortKey,
		Limit:  DefaultLimit,
	}

	listing := containsAny(lower, listingKeywords) && !containsAny(lower, severityKeywords)

	if !listing {
		switch {
		case strings.Contains(lower, "critical"), strings.Contains(lower, "urgent"):
			intent.Urgency = []storage.UrgencyCategory{storage.UrgencyCritical}
		case strings.Contains(lower, "high-priority"),
			strings.Contains(lower, "high priority"),
			strings.Contains(lower, "high"),
			strings.Contains(lower, "important"):
			intent.Urgency = []storage.UrgencyCategory{storage.UrgencyCritical, storage.UrgencyHigh}
		}

		switch {
		case strings.Contains(lower, "negative"), strings.Contains(lower, "complaint"):
			intent.Sentiments = []storage.Sentiment{storage.SentimentNegative, storage.SentimentFrustrated}
		case strings.Contains(lower, "positive"), strings.Contains(lower, "happy"):
			intent.Sentiments = []storage.Sentiment{storage.SentimentPositive}
		}
	}

	// Tier and product filters apply in both modes.
	switch {
	case strings.Contains(lower, "enterprise"):
		intent.CustomerTier = storage.TierEnterprise
	case strings.Contains(lower, "pro "), strings.HasSuffix(lower, "pro"):
		intent.CustomerTier = storage.TierPro
	case strings.Contains(lower, "free"):
		intent.CustomerTier = storage.TierFree
	}

	if product, ok := ingest.MatchProduct(query); ok {
		intent.ProductArea = product
	}

	for _, tf := range themeFilters {
		if strings.Contains(lower, tf.Keyword) {
			intent.Theme = tf.Theme
			break
		}
	}

	intent.SortBy = sortKeyFor(lower)
	intent.Limit = resolveLimit(lower, containsAny(lower, listingKeywords))

	return intent
}

// sortKeyFor picks a sort column from query phrasing. The result is always a
// member of the sort whitelist.
func sortKeyFor(lower string) string {
	switch {
	case strings.Contains(lower, "valuable"), strings.Contains(lower, "by value"):
		return "value_score"
	case strings.Contains(lower, "popular"), strings.Contains(lower, "engagement"):
		return "engagement_score"
	case strings.Contains(lower, "recent"), strings.Contains(lower, "latest"), strings.Contains(lower, "newest"):
		return "created_at"
	}
	return DefaultSortKey
}

// resolveLimit applies the precedence rules: an explicit in-range number wins,
// listing keywords widen the default, and everything is clamped.
func resolveLimit(lower string, listing bool) int {
	if m := embeddedNumberRe.FindString(lower); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n >= 1 && n <= MaxLimit {
			return n
		}
	}
	if listing {
		return ListingLimit
	}
	return DefaultLimit
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// analyticalPhrases are query-structure words a model sometimes mistakes for
// themes. They are filtered from model-parsed intents only; the keyword
// parser never produces them.
var analyticalPhrases = []string{
	"analysis", "root cause", "summary", "overview", "breakdown", "report", "trend",
}

const intentSystemPrompt = `You translate customer feedback questions into JSON filters. Respond with a single JSON object:
{"urgency": ["Critical"|"High"|"Medium"|"Low", ...], "sentiment": ["Positive"|"Neutral"|"Negative"|"Frustrated", ...], "tier": "Enterprise"|"Pro"|"Free"|"", "product": "<product or empty>", "theme": "<theme or empty>", "limit": <1-100>}
Respond with JSON only, no prose.`

type intentPayload struct {
	Urgency   []string `json:"urgency"`
	Sentiment []string `json:"sentiment"`
	Tier      string   `json:"tier"`
	Product   string   `json:"product"`
	Theme     string   `json:"theme"`
	Limit     int      `json:"limit"`
}

// AIIntentParser is the model-backed intent strategy. The production path
// uses ParseIntent; this strategy exists for experimentation and falls back
// to the keyword parser on any fault.
type AIIntentParser struct {
	logger    *observability.Logger
	completer enrichment.Completer
}

// NewAIIntentParser creates the model-backed strategy.
func NewAIIntentParser(logger *observability.Logger, completer enrichment.Completer) *AIIntentParser {
	return &AIIntentParser{logger: logger, completer: completer}
}

// Parse asks the model for a structured intent, sanitizes it, and falls back
// to the keyword parser when the response is unusable.
func (p *AIIntentParser) Parse(ctx context.Context, query string) QueryIntent {
	if p.completer == nil {
		return ParseIntent(query)
	}

	raw, err := p.completer.Complete(ctx, intentSystemPrompt, query)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Intent parsing call failed, using keyword parser")
		return ParseIntent(query)
	}

	var payload intentPayload
	if err := json.Unmarshal([]byte(enrichment.ExtractJSON(raw)), &payload); err != nil {
		p.logger.Warn().Err(err).Msg("Unparseable intent response, using keyword parser")
		return ParseIntent(query)
	}

	intent := QueryIntent{
		SortBy: DefaultSortKey,
		Limit:  clampLimit(payload.Limit),
	}

	for _, u := range payload.Urgency {
		if urgency, ok := storage.ParseUrgency(u); ok {
			intent.Urgency = append(intent.Urgency, urgency)
		}
	}
	for _, s := range payload.Sentiment {
		if sentiment, ok := storage.ParseSentiment(s); ok {
			intent.Sentiments = append(intent.Sentiments, sentiment)
		}
	}

	switch strings.ToLower(strings.TrimSpace(payload.Tier)) {
	case "enterprise":
		intent.CustomerTier = storage.TierEnterprise
	case "pro":
		intent.CustomerTier = storage.TierPro
	case "free":
		intent.CustomerTier = storage.TierFree
	}

	intent.ProductArea = strings.TrimSpace(payload.Product)
	intent.Theme = sanitizeTheme(payload.Theme)

	return intent
}

// sanitizeTheme drops analytical phrases the model sometimes returns as
// themes.
func sanitizeTheme(theme string) string {
	theme = strings.TrimSpace(theme)
	lower := strings.ToLower(theme)
	for _, phrase := range analyticalPhrases {
		if strings.Contains(lower, phrase) {
			return ""
		}
	}
	return theme
}

func clampLimit(n int) int {
	if n < 1 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
