// Package inference provides deterministic keyword-based fallback labeling for
// feedback records. It supplies theme, sentiment, and urgency labels when the
// text-completion service is unavailable, and serves as ingestion-time ground
// truth for the heuristic scorer.
package inference

// ThemeRule maps a keyword set to a theme name. Rules are evaluated in order
// and the first match wins, so more specific rules must come before generic
// ones (rate-limit keywords before plain "request"/"feature").
type ThemeRule struct {
	Theme    string
	Keywords []string
}

// DefaultTheme is the catch-all theme when no rule matches.
const DefaultTheme = "General Feedback"

// ThemeVocabulary is the fixed, append-only catalog of themes checked during
// fallback inference. The order is load-bearing; do not sort or reorder.
var ThemeVocabulary = []ThemeRule{
	{Theme: "Rate Limiting", Keywords: []string{"rate limit", "rate-limit", "ratelimit", "429", "too many requests", "quota"}},
	{Theme: "Performance", Keywords: []string{"slow", "latency", "timeout", "performance", "lag", "cold start"}},
	{Theme: "Reliability", Keywords: []string{"outage", "down", "unavailable", "crash", "500", "error rate", "downtime"}},
	{Theme: "Pricing & Billing", Keywords: []string{"price", "pricing", "billing", "invoice", "cost", "expensive", "charge"}},
	{Theme: "Authentication", Keywords: []string{"login", "auth", "token", "credential", "password", "sso", "oauth"}},
	{Theme: "Documentation", Keywords: []string{"docs", "documentation", "tutorial", "example", "readme", "guide"}},
	{Theme: "Developer Experience", Keywords: []string{"wrangler", "cli", "sdk", "api design", "confusing", "dx"}},
	{Theme: "Data & Storage", Keywords: []string{"database", "storage", "bucket", "migration", "backup", "data loss"}},
	{Theme: "Security", Keywords: []string{"security", "vulnerability", "cve", "breach", "exploit", "compliance"}},
	{Theme: "Bug Report", Keywords: []string{"bug", "broken", "doesn't work", "does not work", "not working", "regression"}},
	{Theme: "Feature Request", Keywords: []string{"feature", "request", "would be great", "please add", "wish", "support for"}},
}

// ThemeNames returns the vocabulary theme names in rule order, with the
// catch-all appended.
func ThemeNames() []string {
	names := make([]string, 0, len(ThemeVocabulary)+1)
	for _, rule := range ThemeVocabulary {
		names = append(names, rule.Theme)
	}
	return append(names, DefaultTheme)
}

// KnownTheme reports whether name belongs to the controlled vocabulary.
func KnownTheme(name string) bool {
	if name == DefaultTheme {
		return true
	}
	for _, rule := range ThemeVocabulary {
		if rule.Theme == name {
			return true
		}
	}
	return false
}
