package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// Validation errors. These are rejected immediately, never silently defaulted.
var (
	ErrUnknownSource  = errors.New("unknown source tag")
	ErrMissingContent = errors.New("feedback content is required")
)

// Placeholder values for optional fields that arrive empty. Records are never
// stored with null text or author.
const (
	PlaceholderContent = "No description"
	PlaceholderAuthor  = "anonymous"
)

const maxContentLength = 5000

var (
	horizontalSpaceRe = regexp.MustCompile(`[ \t]+`)
	excessNewlinesRe  = regexp.MustCompile(`\n{3,}`)
)

// productSynonym maps a raw product label or content keyword to a canonical
// product area. Synonyms are checked before keyword inference; within each
// list, compound terms come before the single terms they contain.
type productSynonym struct {
	Match   string
	Product string
}

var productSynonyms = []productSynonym{
	{Match: "workers ai", Product: "Workers AI"},
	{Match: "workers-ai", Product: "Workers AI"},
	{Match: "ai", Product: "Workers AI"},
	{Match: "workers", Product: "Workers"},
	{Match: "worker", Product: "Workers"},
	{Match: "durable objects", Product: "Durable Objects"},
	{Match: "do", Product: "Durable Objects"},
	{Match: "r2", Product: "R2"},
	{Match: "object storage", Product: "R2"},
	{Match: "d1", Product: "D1"},
	{Match: "pages", Product: "Pages"},
	{Match: "kv", Product: "KV"},
	{Match: "dashboard", Product: "Dashboard"},
	{Match: "dash", Product: "Dashboard"},
	{Match: "api", Product: "API"},
}

// productContentKeywords is the ordered keyword list used to infer a product
// area from free text when no explicit field is present. Compound terms are
// checked before the single terms they contain; first match wins.
var productContentKeywords = []productSynonym{
	{Match: "workers ai", Product: "Workers AI"},
	{Match: "workers-ai", Product: "Workers AI"},
	{Match: "durable object", Product: "Durable Objects"},
	{Match: "worker", Product: "Workers"},
	{Match: "r2 bucket", Product: "R2"},
	{Match: "r2", Product: "R2"},
	{Match: "d1 database", Product: "D1"},
	{Match: "d1", Product: "D1"},
	{Match: "pages deploy", Product: "Pages"},
	{Match: "pages", Product: "Pages"},
	{Match: "kv namespace", Product: "KV"},
	{Match: "dashboard", Product: "Dashboard"},
	{Match: "api", Product: "API"},
}

// freeMailDomains are consumer mail providers; authors on them default to the
// Free tier unless another rule says otherwise.
var freeMailDomains = []string{
	"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "proton.me", "protonmail.com", "icloud.com",
}

// Normalizer maps raw, inconsistently formatted source rows into canonical
// feedback records. All outputs are fully populated; the only failures are
// validation faults on required input.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a normalizer using the wall clock.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerAt creates a normalizer with a fixed clock, for tests.
func NewNormalizerAt(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize converts one raw row tagged with its source into a FeedbackRecord.
// A missing content field or unknown source is a validation error; every other
// gap is filled with documented defaults.
func (n *Normalizer) Normalize(source storage.Source, raw map[string]interface{}) (*storage.FeedbackRecord, error) {
	if !storage.ValidSource(source) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}

	content := n.extractContent(source, raw)
	if content == "" {
		return nil, ErrMissingContent
	}

	rec := &storage.FeedbackRecord{
		Source:     source,
		Content:    CleanText(content),
		IngestedAt: n.now(),
	}

	n.applyAuthor(source, raw, rec)
	n.applyTimestamps(source, raw, rec)
	n.applyProductArea(raw, rec)
	n.applyTier(source, raw, rec)
	n.applyUrgency(source, raw, rec)

	metrics := ExtractEngagement(source, raw)
	if hasEngagement(source) {
		score := EngagementScore(metrics)
		rec.EngagementScore = &score
	}

	rec.UrgencyScore = UrgencyScore(rec.Urgency, rec.Content, rec.CustomerTier)
	rec.ValueScore = ValueScore(rec.CustomerTier, rec.Content, metrics)

	if meta := extractMetadata(raw); meta != nil {
		rec.Metadata = meta
	}

	return rec, nil
}

// CleanText trims, collapses runs of horizontal whitespace, collapses 3+
// consecutive newlines to 2, and truncates to the content length cap.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = horizontalSpaceRe.ReplaceAllString(s, " ")
	s = excessNewlinesRe.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	return truncateRunes(s, maxContentLength)
}

// truncateRunes cuts s to at most limit bytes without splitting a rune.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// extractContent assembles the record text from the fields each source uses.
// A title-plus-body source with an empty body falls back to the placeholder
// body rather than dropping the record.
func (n *Normalizer) extractContent(source storage.Source, raw map[string]interface{}) string {
	switch source {
	case storage.SourceSupport:
		return joinTitleBody(stringField(raw, "subject"), stringField(raw, "description"))
	case storage.SourceDiscord:
		return firstNonEmpty(stringField(raw, "message"), stringField(raw, "content"))
	case storage.SourceGitHub:
		return joinTitleBody(stringField(raw, "title"), stringField(raw, "body"))
	case storage.SourceEmail:
		return joinTitleBody(stringField(raw, "subject"), stringField(raw, "body"))
	case storage.SourceTwitter:
		return firstNonEmpty(stringField(raw, "text"), stringField(raw, "content"))
	case storage.SourceForum:
		return joinTitleBody(stringField(raw, "title"), stringField(raw, "post"))
	}
	return ""
}

func (n *Normalizer) applyAuthor(source storage.Source, raw map[string]interface{}, rec *storage.FeedbackRecord) {
	email := firstNonEmpty(
		stringField(raw, "customer_email"),
		stringField(raw, "from"),
		stringField(raw, "email"),
	)
	username := firstNonEmpty(
		stringField(raw, "username"),
		stringField(raw, "user"),
		stringField(raw, "handle"),
		stringField(raw, "author"),
	)

	if email != "" {
		email = strings.ToLower(strings.TrimSpace(email))
		rec.AuthorEmail = &email
	}
	if username == "" && email == "" {
		username = PlaceholderAuthor
	}
	if username != "" {
		username = strings.TrimSpace(username)
		rec.AuthorUsername = &username
	}
}

func (n *Normalizer) applyTimestamps(source storage.Source, raw map[string]interface{}, rec *storage.FeedbackRecord) {
	created := firstNonEmpty(
		stringField(raw, "created_at"),
		stringField(raw, "timestamp"),
		stringField(raw, "date"),
		stringField(raw, "posted_at"),
	)
	if t := ParseTimestamp(created); t != nil {
		rec.CreatedAt = *t
	} else {
		rec.CreatedAt = n.now()
	}

	if resolved := stringField(raw, "resolved_at"); resolved != "" {
		rec.ResolvedAt = ParseTimestamp(resolved)
	}
}

func (n *Normalizer) applyProductArea(raw map[string]interface{}, rec *storage.FeedbackRecord) {
	if explicit := firstNonEmpty(stringField(raw, "product"), stringField(raw, "product_area")); explicit != "" {
		key := strings.ToLower(strings.TrimSpace(explicit))
		for _, syn := range productSynonyms {
			if key == syn.Match {
				product := syn.Product
				rec.ProductArea = &product
				return
			}
		}
		// Unrecognized explicit label passes through as-is.
		label := strings.TrimSpace(explicit)
		rec.ProductArea = &label
		return
	}

	if product, ok := MatchProduct(rec.Content); ok {
		rec.ProductArea = &product
	}
}

// MatchProduct infers a product area from free text using the ordered keyword
// list. Compound terms win over the single terms they contain.
func MatchProduct(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, syn := range productContentKeywords {
		if strings.Contains(lower, syn.Match) {
			return syn.Product, true
		}
	}
	return "", false
}

func (n *Normalizer) applyTier(source storage.Source, raw map[string]interface{}, rec *storage.FeedbackRecord) {
	if plan := stringField(raw, "plan"); plan != "" {
		rec.CustomerTier = tierFromPlan(plan)
		return
	}
	if rec.AuthorEmail != nil {
		rec.CustomerTier = tierFromEmailDomain(*rec.AuthorEmail)
		return
	}
	if rec.AuthorUsername != nil {
		rec.CustomerTier = tierFromAuthor(*rec.AuthorUsername)
		return
	}
	rec.CustomerTier = storage.TierFree
}

func (n *Normalizer) applyUrgency(source storage.Source, raw map[string]interface{}, rec *storage.FeedbackRecord) {
	switch source {
	case storage.SourceSupport:
		rec.Urgency = urgencyFromLabel(stringField(raw, "priority"))
	case storage.SourceGitHub:
		rec.Urgency = urgencyFromLabels(stringSlice(raw, "labels"))
	case storage.SourceForum:
		rec.Urgency = urgencyFromForumCategory(stringField(raw, "category"))
	default:
		rec.Urgency = storage.UrgencyMedium
	}
}

// ExtractEngagement reads the interaction counters a source provides.
func ExtractEngagement(source storage.Source, raw map[string]interface{}) EngagementMetrics {
	return EngagementMetrics{
		Likes:    intField(raw, "likes"),
		Retweets: intField(raw, "retweets"),
		Upvotes:  intField(raw, "upvotes"),
		Comments: intField(raw, "comments"),
		Replies:  intField(raw, "replies"),
		Views:    intField(raw, "views"),
	}
}

// hasEngagement reports whether a source carries engagement metrics at all.
// Support tickets and email have none; their records keep a nil score.
func hasEngagement(source storage.Source) bool {
	switch source {
	case storage.SourceTwitter, storage.SourceForum, storage.SourceDiscord, storage.SourceGitHub:
		return true
	}
	return false
}

// tierFromPlan canonicalizes an explicit plan label.
func tierFromPlan(plan string) storage.CustomerTier {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case "enterprise", "ent", "business":
		return storage.TierEnterprise
	case "pro", "paid", "standard":
		return storage.TierPro
	default:
		return storage.TierFree
	}
}

// tierFromEmailDomain infers tier from the author's mail domain: consumer
// providers map to Free, anything else to Pro. Enterprise is only assigned
// from explicit plan data.
func tierFromEmailDomain(email string) storage.CustomerTier {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return storage.TierFree
	}
	domain := strings.ToLower(email[at+1:])
	for _, free := range freeMailDomains {
		if domain == free {
			return storage.TierFree
		}
	}
	return storage.TierPro
}

// tierFromAuthor infers tier from community-role markers in a username.
// "enterprise" is checked before "pro" since the longer marker is more
// specific.
func tierFromAuthor(username string) storage.CustomerTier {
	lower := strings.ToLower(username)
	if strings.Contains(lower, "enterprise") {
		return storage.TierEnterprise
	}
	if strings.Contains(lower, "[pro]") || strings.HasSuffix(lower, "-pro") {
		return storage.TierPro
	}
	return storage.TierFree
}

// urgencyFromLabel maps a single priority label to an urgency category.
func urgencyFromLabel(label string) storage.UrgencyCategory {
	lower := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(lower, "critical"), strings.Contains(lower, "urgent"), lower == "p0":
		return storage.UrgencyCritical
	case strings.Contains(lower, "high"), lower == "p1":
		return storage.UrgencyHigh
	case strings.Contains(lower, "low"), lower == "p3", strings.Contains(lower, "nice"):
		return storage.UrgencyLow
	default:
		return storage.UrgencyMedium
	}
}

// urgencyFromLabels scans issue labels in order and keeps the most severe
// match. Critical labels are checked first on each label.
func urgencyFromLabels(labels []string) storage.UrgencyCategory {
	result := storage.UrgencyMedium
	for _, label := range labels {
		switch urgencyFromLabel(label) {
		case storage.UrgencyCritical:
			return storage.UrgencyCritical
		case storage.UrgencyHigh:
			result = storage.UrgencyHigh
		case storage.UrgencyLow:
			if result == storage.UrgencyMedium {
				result = storage.UrgencyLow
			}
		}
	}
	return result
}

// urgencyFromForumCategory maps a forum board category to urgency.
func urgencyFromForumCategory(category string) storage.UrgencyCategory {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "outages", "incidents":
		return storage.UrgencyCritical
	case "bugs", "troubleshooting":
		return storage.UrgencyHigh
	case "feature-requests", "ideas", "feedback":
		return storage.UrgencyLow
	default:
		return storage.UrgencyMedium
	}
}

// joinTitleBody combines a title and body, substituting the body placeholder
// when only a title arrived.
func joinTitleBody(title, body string) string {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	switch {
	case title == "" && body == "":
		return ""
	case body == "":
		return title + "\n\n" + PlaceholderContent
	case title == "":
		return body
	default:
		return title + "\n\n" + body
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func stringField(raw map[string]interface{}, key string) string {
	if v, ok := raw[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func stringSlice(raw map[string]interface{}, key string) []string {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	switch vals := v.(type) {
	case []string:
		return vals
	case []interface{}:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func intField(raw map[string]interface{}, key string) int {
	v, ok := raw[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return 0
}

func extractMetadata(raw map[string]interface{}) json.RawMessage {
	meta, ok := raw["metadata"]
	if !ok {
		return nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return data
}
