package ingest

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

var fixedNow = time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

func testNormalizer() *Normalizer {
	return NewNormalizerAt(func() time.Time { return fixedNow })
}

func TestNormalize_UnknownSource(t *testing.T) {
	_, err := testNormalizer().Normalize(storage.Source("carrier-pigeon"), map[string]interface{}{
		"description": "something",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestNormalize_MissingContent(t *testing.T) {
	_, err := testNormalizer().Normalize(storage.SourceDiscord, map[string]interface{}{
		"username": "someone",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingContent)
}

func TestNormalize_TitleOnlyGetsPlaceholderBody(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceGitHub, map[string]interface{}{
		"title": "Crash on startup",
	})
	require.NoError(t, err)
	assert.Equal(t, "Crash on startup\n\n"+PlaceholderContent, rec.Content)
}

func TestNormalize_MissingAuthorDefaultsToAnonymous(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceDiscord, map[string]interface{}{
		"message": "the dashboard is broken",
	})
	require.NoError(t, err)
	require.NotNil(t, rec.AuthorUsername)
	assert.Equal(t, PlaceholderAuthor, *rec.AuthorUsername)
	assert.Nil(t, rec.AuthorEmail)
}

func TestNormalize_EmailIsLowercased(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceSupport, map[string]interface{}{
		"subject":        "Billing question",
		"description":    "Why was I charged twice?",
		"customer_email": "Jane.Doe@BigCorp.com",
	})
	require.NoError(t, err)
	require.NotNil(t, rec.AuthorEmail)
	assert.Equal(t, "jane.doe@bigcorp.com", *rec.AuthorEmail)
}

func TestNormalize_MissingDateDefaultsToIngestionTime(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceTwitter, map[string]interface{}{
		"text": "the api is slow today",
	})
	require.NoError(t, err)
	assert.True(t, rec.CreatedAt.Equal(fixedNow))
	assert.True(t, rec.IngestedAt.Equal(fixedNow))
}

func TestNormalize_ParsesCreatedAt(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceForum, map[string]interface{}{
		"title":     "KV latency",
		"post":      "reads are slow from eu-west",
		"posted_at": "2024-03-15T08:00:00Z",
	})
	require.NoError(t, err)
	assert.True(t, rec.CreatedAt.Equal(time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)))
}

func TestNormalize_TierFromPlan(t *testing.T) {
	tests := []struct {
		plan string
		want storage.CustomerTier
	}{
		{"Enterprise", storage.TierEnterprise},
		{"business", storage.TierEnterprise},
		{"pro", storage.TierPro},
		{"paid", storage.TierPro},
		{"free", storage.TierFree},
		{"hobby", storage.TierFree},
	}

	for _, tt := range tests {
		t.Run(tt.plan, func(t *testing.T) {
			rec, err := testNormalizer().Normalize(storage.SourceSupport, map[string]interface{}{
				"subject":     "Question",
				"description": "How do I rotate keys?",
				"plan":        tt.plan,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.CustomerTier)
		})
	}
}

func TestNormalize_TierFromEmailDomain(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceEmail, map[string]interface{}{
		"subject": "Feedback",
		"body":    "Loving the product so far",
		"from":    "dev@gmail.com",
	})
	require.NoError(t, err)
	assert.Equal(t, storage.TierFree, rec.CustomerTier)

	rec, err = testNormalizer().Normalize(storage.SourceEmail, map[string]interface{}{
		"subject": "Feedback",
		"body":    "Loving the product so far",
		"from":    "dev@acme.io",
	})
	require.NoError(t, err)
	assert.Equal(t, storage.TierPro, rec.CustomerTier)
}

func TestNormalize_TierFromUsernameMarkers(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceDiscord, map[string]interface{}{
		"message":  "need help with d1",
		"username": "jamie-enterprise",
	})
	require.NoError(t, err)
	assert.Equal(t, storage.TierEnterprise, rec.CustomerTier)

	rec, err = testNormalizer().Normalize(storage.SourceDiscord, map[string]interface{}{
		"message":  "need help with d1",
		"username": "sam [Pro]",
	})
	require.NoError(t, err)
	assert.Equal(t, storage.TierPro, rec.CustomerTier)
}

func TestNormalize_UrgencyFromSupportPriority(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceSupport, map[string]interface{}{
		"subject":     "Outage",
		"description": "Everything is down",
		"priority":    "P0",
	})
	require.NoError(t, err)
	assert.Equal(t, storage.UrgencyCritical, rec.Urgency)
}

func TestNormalize_UrgencyFromGitHubLabels(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceGitHub, map[string]interface{}{
		"title":  "Deploy fails",
		"body":   "pages deploy hangs at build step",
		"labels": []interface{}{"documentation", "high"},
	})
	require.NoError(t, err)
	assert.Equal(t, storage.UrgencyHigh, rec.Urgency)

	rec, err = testNormalizer().Normalize(storage.SourceGitHub, map[string]interface{}{
		"title":  "Deploy fails",
		"body":   "pages deploy hangs at build step",
		"labels": []interface{}{"low", "critical"},
	})
	require.NoError(t, err)
	assert.Equal(t, storage.UrgencyCritical, rec.Urgency)
}

func TestNormalize_UrgencyFromForumCategory(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceForum, map[string]interface{}{
		"title":    "Region down?",
		"post":     "anyone else seeing errors in apac",
		"category": "outages",
	})
	require.NoError(t, err)
	assert.Equal(t, storage.UrgencyCritical, rec.Urgency)
}

func TestNormalize_ProductFromExplicitField(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceSupport, map[string]interface{}{
		"subject":     "Question",
		"description": "How do I bind a namespace?",
		"product":     "workers-ai",
	})
	require.NoError(t, err)
	require.NotNil(t, rec.ProductArea)
	assert.Equal(t, "Workers AI", *rec.ProductArea)
}

func TestNormalize_UnrecognizedProductPassesThrough(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceSupport, map[string]interface{}{
		"subject":     "Question",
		"description": "General enquiry",
		"product":     "Turnstile",
	})
	require.NoError(t, err)
	require.NotNil(t, rec.ProductArea)
	assert.Equal(t, "Turnstile", *rec.ProductArea)
}

func TestMatchProduct_CompoundBeforeSingle(t *testing.T) {
	product, ok := MatchProduct("the workers ai inference endpoint times out")
	require.True(t, ok)
	assert.Equal(t, "Workers AI", product)

	product, ok = MatchProduct("my worker script throws a 500")
	require.True(t, ok)
	assert.Equal(t, "Workers", product)

	_, ok = MatchProduct("nothing product specific here")
	assert.False(t, ok)
}

func TestNormalize_EngagementOnlyForSocialSources(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceTwitter, map[string]interface{}{
		"text":     "the dash is unusable on mobile",
		"likes":    10,
		"retweets": 2,
	})
	require.NoError(t, err)
	require.NotNil(t, rec.EngagementScore)
	assert.Equal(t, 14.0, *rec.EngagementScore)

	rec, err = testNormalizer().Normalize(storage.SourceSupport, map[string]interface{}{
		"subject":     "Question",
		"description": "How do I export my data?",
	})
	require.NoError(t, err)
	assert.Nil(t, rec.EngagementScore)
}

func TestNormalize_ScoresAlwaysBounded(t *testing.T) {
	rec, err := testNormalizer().Normalize(storage.SourceSupport, map[string]interface{}{
		"subject":     "URGENT production outage",
		"description": "critical data loss, security and compliance exposure, revenue impact",
		"priority":    "critical",
		"plan":        "enterprise",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, rec.UrgencyScore)
	assert.GreaterOrEqual(t, rec.ValueScore, 1)
	assert.LessOrEqual(t, rec.ValueScore, 10)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses spaces and tabs", "too   many\t\tspaces", "too many spaces"},
		{"collapses newline runs", "a\n\n\n\nb", "a\n\nb"},
		{"normalizes crlf", "a\r\nb", "a\nb"},
		{"trims", "  padded  ", "padded"},
		{"keeps double newline", "a\n\nb", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestCleanText_TruncatesLongContent(t *testing.T) {
	long := strings.Repeat("x", 6000)
	assert.Len(t, CleanText(long), maxContentLength)
}

func TestCleanText_TruncatesOnRuneBoundary(t *testing.T) {
	// 3-byte runes, so the byte cap falls mid-rune.
	long := strings.Repeat("✓", 2000)

	got := CleanText(long)

	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxContentLength)
	assert.Equal(t, len(got), 3*utf8.RuneCountInString(got))
}
