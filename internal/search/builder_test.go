package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

func TestBuildQuery_NoFilters(t *testing.T) {
	query, args := BuildQuery(QueryIntent{SortBy: DefaultSortKey, Limit: DefaultLimit})

	assert.Empty(t, args)
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "GROUP BY f.id")
	assert.Contains(t, query, "ORDER BY f.urgency_score DESC, f.created_at DESC")
	assert.Contains(t, query, "LIMIT 20")
}

func TestBuildQuery_AllFilterValuesAreBound(t *testing.T) {
	intent := QueryIntent{
		Urgency:      []storage.UrgencyCategory{storage.UrgencyCritical, storage.UrgencyHigh},
		Sentiments:   []storage.Sentiment{storage.SentimentNegative},
		CustomerTier: storage.TierEnterprise,
		ProductArea:  "Workers AI",
		Theme:        "Performance",
		SortBy:       DefaultSortKey,
		Limit:        10,
	}

	query, args := BuildQuery(intent)

	// Every filter value travels as a parameter, never as query text.
	for _, arg := range args {
		assert.NotContains(t, query, arg.(string))
	}
	assert.Equal(t, []interface{}{"Critical", "High", "Negative", "Enterprise", "Workers AI", "%Performance%"}, args)

	assert.Contains(t, query, "f.urgency IN ($1, $2)")
	assert.Contains(t, query, "sa.sentiment IN ($3)")
	assert.Contains(t, query, "f.customer_tier = $4")
	assert.Contains(t, query, "f.product_area = $5")
	assert.Contains(t, query, "t.name LIKE $6")
	assert.Contains(t, query, "LIMIT 10")
}

func TestBuildQuery_ConditionsJoinedWithAnd(t *testing.T) {
	intent := QueryIntent{
		Urgency:      []storage.UrgencyCategory{storage.UrgencyCritical},
		CustomerTier: storage.TierPro,
		SortBy:       DefaultSortKey,
		Limit:        DefaultLimit,
	}

	query, args := BuildQuery(intent)

	require.Len(t, args, 2)
	assert.Contains(t, query, "WHERE f.urgency IN ($1) AND f.customer_tier = $2")
}

func TestBuildQuery_SortKeyWhitelist(t *testing.T) {
	for key, column := range map[string]string{
		"urgency_score":    "f.urgency_score",
		"value_score":      "f.value_score",
		"engagement_score": "f.engagement_score",
		"created_at":       "f.created_at",
	} {
		query, _ := BuildQuery(QueryIntent{SortBy: key, Limit: DefaultLimit})
		assert.Contains(t, query, "ORDER BY "+column+" DESC")
	}
}

func TestBuildQuery_UnknownSortKeyFallsBack(t *testing.T) {
	query, _ := BuildQuery(QueryIntent{SortBy: "id; DROP TABLE feedback", Limit: DefaultLimit})
	assert.NotContains(t, query, "DROP TABLE")
	assert.Contains(t, query, "ORDER BY f.urgency_score DESC")
}

func TestBuildQuery_LimitClamped(t *testing.T) {
	query, _ := BuildQuery(QueryIntent{SortBy: DefaultSortKey, Limit: 9999})
	assert.Contains(t, query, "LIMIT 100")
	assert.NotContains(t, query, "9999")

	query, _ = BuildQuery(QueryIntent{SortBy: DefaultSortKey})
	assert.Contains(t, query, "LIMIT 20")
}

func TestBuildQuery_ThemePatternWrapped(t *testing.T) {
	_, args := BuildQuery(QueryIntent{Theme: "Security", SortBy: DefaultSortKey, Limit: DefaultLimit})
	require.Len(t, args, 1)
	assert.Equal(t, "%Security%", args[0])
}

func TestBuildQuery_GroupsByFeedbackIdentity(t *testing.T) {
	query, _ := BuildQuery(QueryIntent{SortBy: DefaultSortKey, Limit: DefaultLimit})

	// The theme join fans out; grouping keeps one row per record.
	assert.Contains(t, query, "LEFT JOIN feedback_themes ft")
	groupIdx := strings.Index(query, "GROUP BY")
	orderIdx := strings.Index(query, "ORDER BY")
	require.Greater(t, groupIdx, 0)
	assert.Greater(t, orderIdx, groupIdx)
}
