package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

func TestUrgencyScore_BaseScores(t *testing.T) {
	assert.Equal(t, 10, UrgencyScore(storage.UrgencyCritical, "plain text", storage.TierFree))
	assert.Equal(t, 8, UrgencyScore(storage.UrgencyHigh, "plain text", storage.TierFree))
	assert.Equal(t, 5, UrgencyScore(storage.UrgencyMedium, "plain text", storage.TierFree))
	assert.Equal(t, 3, UrgencyScore(storage.UrgencyLow, "plain text", storage.TierFree))
}

func TestUrgencyScore_KeywordBoosts(t *testing.T) {
	base := UrgencyScore(storage.UrgencyLow, "plain text", storage.TierFree)

	boosted := UrgencyScore(storage.UrgencyLow, "this is urgent", storage.TierFree)
	assert.Equal(t, base+2, boosted)

	boosted = UrgencyScore(storage.UrgencyLow, "blocking our team", storage.TierFree)
	assert.Equal(t, base+1, boosted)

	// One boost per keyword set even when both set members appear.
	boosted = UrgencyScore(storage.UrgencyLow, "urgent and critical", storage.TierFree)
	assert.Equal(t, base+2, boosted)

	// Separate sets stack.
	boosted = UrgencyScore(storage.UrgencyLow, "urgent production issue", storage.TierFree)
	assert.Equal(t, base+4, boosted)
}

func TestUrgencyScore_EnterpriseBump(t *testing.T) {
	free := UrgencyScore(storage.UrgencyMedium, "plain text", storage.TierFree)
	enterprise := UrgencyScore(storage.UrgencyMedium, "plain text", storage.TierEnterprise)
	assert.Equal(t, free+1, enterprise)
}

func TestUrgencyScore_ClampedToTen(t *testing.T) {
	score := UrgencyScore(storage.UrgencyCritical, "urgent blocking production outage data loss", storage.TierEnterprise)
	assert.Equal(t, 10, score)
}

func TestUrgencyScore_UnknownCategoryDefaultsToMedium(t *testing.T) {
	assert.Equal(t, 5, UrgencyScore(storage.UrgencyCategory("Unknown"), "plain text", storage.TierFree))
}

func TestValueScore_BaseScores(t *testing.T) {
	none := EngagementMetrics{}
	assert.Equal(t, 9, ValueScore(storage.TierEnterprise, "plain text", none))
	assert.Equal(t, 7, ValueScore(storage.TierPro, "plain text", none))
	assert.Equal(t, 4, ValueScore(storage.TierFree, "plain text", none))
}

func TestValueScore_EngagementBoost(t *testing.T) {
	// Weighted engagement is likes + 2*upvotes + comments.
	mid := EngagementMetrics{Likes: 10, Upvotes: 5, Comments: 5} // 25
	assert.Equal(t, 5, ValueScore(storage.TierFree, "plain text", mid))

	heavy := EngagementMetrics{Likes: 20, Upvotes: 15, Comments: 5} // 55
	assert.Equal(t, 6, ValueScore(storage.TierFree, "plain text", heavy))

	// Boundary values do not trigger the boost.
	atTwenty := EngagementMetrics{Likes: 20}
	assert.Equal(t, 4, ValueScore(storage.TierFree, "plain text", atTwenty))
}

func TestValueScore_SignalKeywords(t *testing.T) {
	none := EngagementMetrics{}
	assert.Equal(t, 5, ValueScore(storage.TierFree, "this affects our revenue", none))
	assert.Equal(t, 5, ValueScore(storage.TierFree, "we have a compliance deadline", none))
	assert.Equal(t, 6, ValueScore(storage.TierFree, "revenue and compliance impact", none))
}

func TestValueScore_ClampedToTen(t *testing.T) {
	heavy := EngagementMetrics{Likes: 100, Upvotes: 100, Comments: 100}
	score := ValueScore(storage.TierEnterprise, "revenue and compliance impact", heavy)
	assert.Equal(t, 10, score)
}

func TestEngagementScore_Weights(t *testing.T) {
	score := EngagementScore(EngagementMetrics{
		Likes:    1,
		Retweets: 1,
		Upvotes:  1,
		Comments: 1,
		Replies:  1,
		Views:    100,
	})
	// 1 + 2 + 2 + 3 + 3 + 1
	assert.Equal(t, 12.0, score)
}

func TestEngagementScore_RoundsToTwoDecimals(t *testing.T) {
	score := EngagementScore(EngagementMetrics{Views: 123})
	assert.Equal(t, 1.23, score)

	score = EngagementScore(EngagementMetrics{Views: 1})
	assert.Equal(t, 0.01, score)
}

func TestEngagementScore_Unbounded(t *testing.T) {
	score := EngagementScore(EngagementMetrics{Likes: 500, Comments: 200})
	assert.Equal(t, 1100.0, score)
}
